package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"codeverse/internal/common/cache"
	"codeverse/internal/common/db"
	"codeverse/internal/judge"
)

const (
	defaultSubmissionCacheTTL      = 30 * time.Minute
	defaultSubmissionCacheEmptyTTL = 5 * time.Minute
	submissionCacheKeyPrefix       = "submission:"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyFinalized   = errors.New("submission already finalized")
)

// Submission represents one judged attempt at a problem.
type Submission struct {
	SubmissionID string
	UserID       int64
	ProblemID    int64
	Language     string
	SourceCode   string
	SourceKey    string

	Status          judge.VerdictStatus
	TestCasesPassed int
	TestCasesTotal  int
	Runtime         float64
	Memory          int
	ErrorMessage    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Verdict carries the final judge outcome applied to a pending submission.
type Verdict struct {
	Status          judge.VerdictStatus
	TestCasesPassed int
	Runtime         float64
	Memory          int
	ErrorMessage    string
}

// SubmissionRepository defines submission persistence interfaces.
type SubmissionRepository interface {
	Create(ctx context.Context, tx db.Transaction, submission *Submission) error
	FinalizeVerdict(ctx context.Context, tx db.Transaction, submissionID string, verdict Verdict) error
	GetByID(ctx context.Context, tx db.Transaction, submissionID string) (*Submission, error)
	ListByUserAndProblem(ctx context.Context, tx db.Transaction, userID, problemID int64) ([]*Submission, error)
}

// MySQLSubmissionRepository implements SubmissionRepository with MySQL.
type MySQLSubmissionRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewSubmissionRepository creates a submission repository with defaults.
func NewSubmissionRepository(database db.Database, cacheClient cache.Cache) SubmissionRepository {
	return NewSubmissionRepositoryWithTTL(database, cacheClient, defaultSubmissionCacheTTL, defaultSubmissionCacheEmptyTTL)
}

// NewSubmissionRepositoryWithTTL creates a submission repository with custom TTL.
func NewSubmissionRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) SubmissionRepository {
	if ttl <= 0 {
		ttl = defaultSubmissionCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultSubmissionCacheEmptyTTL
	}
	return &MySQLSubmissionRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

const submissionColumns = "submission_id, user_id, problem_id, language, source_code, source_key, status, test_cases_passed, test_cases_total, runtime, memory, error_message, created_at, updated_at"

// Create inserts a submission in pending state.
func (r *MySQLSubmissionRepository) Create(ctx context.Context, tx db.Transaction, submission *Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if submission.SubmissionID == "" {
		return errors.New("submissionID is required")
	}
	if submission.UserID <= 0 {
		return errors.New("userID is required")
	}
	if submission.ProblemID <= 0 {
		return errors.New("problemID is required")
	}
	if submission.Language == "" {
		return errors.New("language is required")
	}
	if submission.SourceCode == "" {
		return errors.New("sourceCode is required")
	}
	if submission.Status == "" {
		submission.Status = judge.StatusPending
	}

	query := `
		INSERT INTO submissions
		(submission_id, user_id, problem_id, language, source_code, source_key, status, test_cases_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		submission.SubmissionID,
		submission.UserID,
		submission.ProblemID,
		submission.Language,
		submission.SourceCode,
		submission.SourceKey,
		submission.Status,
		submission.TestCasesTotal,
	)
	return err
}

// FinalizeVerdict moves a pending submission to its terminal state. A
// submission that already left pending is not overwritten.
func (r *MySQLSubmissionRepository) FinalizeVerdict(ctx context.Context, tx db.Transaction, submissionID string, verdict Verdict) error {
	if submissionID == "" {
		return errors.New("submissionID is required")
	}
	if verdict.Status == "" || verdict.Status == judge.StatusPending {
		return errors.New("verdict status must be terminal")
	}

	query := `
		UPDATE submissions
		SET status = ?, test_cases_passed = ?, runtime = ?, memory = ?, error_message = ?
		WHERE submission_id = ? AND status = ?
	`
	result, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		verdict.Status,
		verdict.TestCasesPassed,
		verdict.Runtime,
		verdict.Memory,
		verdict.ErrorMessage,
		submissionID,
		judge.StatusPending,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.getByIDFromDB(ctx, tx, submissionID); err != nil {
			return err
		}
		return ErrAlreadyFinalized
	}
	if r.cache != nil && tx == nil {
		_ = r.cache.Del(ctx, submissionCacheKey(submissionID))
	}
	return nil
}

// GetByID retrieves a submission by id.
func (r *MySQLSubmissionRepository) GetByID(ctx context.Context, tx db.Transaction, submissionID string) (*Submission, error) {
	if submissionID == "" {
		return nil, errors.New("submissionID is required")
	}
	if r.cache != nil && tx == nil {
		submission, err := cache.GetWithCached[*Submission](
			ctx,
			r.cache,
			submissionCacheKey(submissionID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(submission *Submission) bool { return submission == nil },
			marshalSubmission,
			unmarshalSubmission,
			func(ctx context.Context) (*Submission, error) {
				submission, err := r.getByIDFromDB(ctx, nil, submissionID)
				if err != nil {
					if errors.Is(err, ErrSubmissionNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return submission, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if submission == nil {
			return nil, ErrSubmissionNotFound
		}
		// Pending records finish soon, keeping them cached would serve
		// stale verdicts.
		if submission.Status == judge.StatusPending {
			_ = r.cache.Del(ctx, submissionCacheKey(submissionID))
		}
		return submission, nil
	}
	return r.getByIDFromDB(ctx, tx, submissionID)
}

// ListByUserAndProblem returns a user's attempts at one problem, newest first.
func (r *MySQLSubmissionRepository) ListByUserAndProblem(ctx context.Context, tx db.Transaction, userID, problemID int64) ([]*Submission, error) {
	if userID <= 0 {
		return nil, errors.New("userID is required")
	}
	if problemID <= 0 {
		return nil, errors.New("problemID is required")
	}

	query := "SELECT " + submissionColumns + " FROM submissions WHERE user_id = ? AND problem_id = ? ORDER BY created_at DESC"
	rows, err := db.GetQuerier(r.db, tx).Query(ctx, query, userID, problemID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var submissions []*Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *MySQLSubmissionRepository) getByIDFromDB(ctx context.Context, tx db.Transaction, submissionID string) (*Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions WHERE submission_id = ? LIMIT 1"
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, query, submissionID)
	submission, err := scanSubmission(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row scanner) (*Submission, error) {
	submission := &Submission{}
	var status string
	var errorMessage *string
	if err := row.Scan(
		&submission.SubmissionID,
		&submission.UserID,
		&submission.ProblemID,
		&submission.Language,
		&submission.SourceCode,
		&submission.SourceKey,
		&status,
		&submission.TestCasesPassed,
		&submission.TestCasesTotal,
		&submission.Runtime,
		&submission.Memory,
		&errorMessage,
		&submission.CreatedAt,
		&submission.UpdatedAt,
	); err != nil {
		return nil, err
	}
	submission.Status = judge.VerdictStatus(status)
	if errorMessage != nil {
		submission.ErrorMessage = *errorMessage
	}
	return submission, nil
}

func submissionCacheKey(submissionID string) string {
	return submissionCacheKeyPrefix + submissionID
}

func marshalSubmission(submission *Submission) string {
	if submission == nil {
		return ""
	}
	data, err := json.Marshal(submission)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalSubmission(payload string) (*Submission, error) {
	if payload == "" {
		return nil, nil
	}
	submission := &Submission{}
	if err := json.Unmarshal([]byte(payload), submission); err != nil {
		return nil, err
	}
	return submission, nil
}
