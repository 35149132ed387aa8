package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"codeverse/internal/common/cache"
	"codeverse/internal/common/db"
)

const (
	defaultProblemCacheTTL      = 30 * time.Minute
	defaultProblemCacheEmptyTTL = 5 * time.Minute
	problemCacheKeyPrefix       = "problem:"
)

var (
	ErrProblemNotFound = errors.New("problem not found")
)

// TestCase is one input/output pair. Visible cases are shown to users
// and drive ungraded runs; hidden cases drive scored submissions.
type TestCase struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// CodeStub pairs a language with source code, used both for starter
// code and reference solutions.
type CodeStub struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Problem is a coding problem definition.
type Problem struct {
	ProblemID   int64
	Title       string
	Description string
	Difficulty  string
	Tags        []string

	VisibleTestCases   []TestCase
	HiddenTestCases    []TestCase
	StartCode          []CodeStub
	ReferenceSolutions []CodeStub

	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProblemRepository defines problem persistence interfaces.
type ProblemRepository interface {
	Create(ctx context.Context, tx db.Transaction, problem *Problem) error
	Update(ctx context.Context, tx db.Transaction, problem *Problem) error
	GetByID(ctx context.Context, tx db.Transaction, problemID int64) (*Problem, error)
	List(ctx context.Context, tx db.Transaction, limit, offset int) ([]*Problem, error)
	Delete(ctx context.Context, tx db.Transaction, problemID int64) error
}

// MySQLProblemRepository implements ProblemRepository with MySQL.
// Test cases, stubs and tags live in JSON columns.
type MySQLProblemRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewProblemRepository creates a problem repository with defaults.
func NewProblemRepository(database db.Database, cacheClient cache.Cache) ProblemRepository {
	return &MySQLProblemRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      defaultProblemCacheTTL,
		emptyTTL: defaultProblemCacheEmptyTTL,
	}
}

const problemColumns = "problem_id, title, description, difficulty, tags, visible_test_cases, hidden_test_cases, start_code, reference_solutions, created_by, created_at, updated_at"

// Create inserts a problem and fills in its generated id.
func (r *MySQLProblemRepository) Create(ctx context.Context, tx db.Transaction, problem *Problem) error {
	if err := validateProblem(problem); err != nil {
		return err
	}

	cols, err := marshalProblemColumns(problem)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO problems
		(title, description, difficulty, tags, visible_test_cases, hidden_test_cases, start_code, reference_solutions, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		problem.Title,
		problem.Description,
		problem.Difficulty,
		cols.tags,
		cols.visible,
		cols.hidden,
		cols.startCode,
		cols.reference,
		problem.CreatedBy,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	problem.ProblemID = id
	return nil
}

// Update rewrites a problem definition.
func (r *MySQLProblemRepository) Update(ctx context.Context, tx db.Transaction, problem *Problem) error {
	if problem == nil || problem.ProblemID <= 0 {
		return errors.New("problemID is required")
	}
	if err := validateProblem(problem); err != nil {
		return err
	}

	cols, err := marshalProblemColumns(problem)
	if err != nil {
		return err
	}
	query := `
		UPDATE problems
		SET title = ?, description = ?, difficulty = ?, tags = ?, visible_test_cases = ?, hidden_test_cases = ?, start_code = ?, reference_solutions = ?
		WHERE problem_id = ?
	`
	result, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		problem.Title,
		problem.Description,
		problem.Difficulty,
		cols.tags,
		cols.visible,
		cols.hidden,
		cols.startCode,
		cols.reference,
		problem.ProblemID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a missing row from an unchanged one.
		if _, err := r.getByIDFromDB(ctx, tx, problem.ProblemID); err != nil {
			return err
		}
	}
	if r.cache != nil && tx == nil {
		_ = r.cache.Del(ctx, problemCacheKey(problem.ProblemID))
	}
	return nil
}

// GetByID retrieves a problem by id.
func (r *MySQLProblemRepository) GetByID(ctx context.Context, tx db.Transaction, problemID int64) (*Problem, error) {
	if problemID <= 0 {
		return nil, errors.New("problemID is required")
	}
	if r.cache != nil && tx == nil {
		problem, err := cache.GetWithCached[*Problem](
			ctx,
			r.cache,
			problemCacheKey(problemID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(problem *Problem) bool { return problem == nil },
			marshalProblem,
			unmarshalProblem,
			func(ctx context.Context) (*Problem, error) {
				problem, err := r.getByIDFromDB(ctx, nil, problemID)
				if err != nil {
					if errors.Is(err, ErrProblemNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return problem, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if problem == nil {
			return nil, ErrProblemNotFound
		}
		return problem, nil
	}
	return r.getByIDFromDB(ctx, tx, problemID)
}

// List returns problems ordered by id. Callers decide which fields to
// expose; hidden cases and reference solutions never leave the service
// layer.
func (r *MySQLProblemRepository) List(ctx context.Context, tx db.Transaction, limit, offset int) ([]*Problem, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + problemColumns + " FROM problems ORDER BY problem_id LIMIT ? OFFSET ?"
	rows, err := db.GetQuerier(r.db, tx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var problems []*Problem
	for rows.Next() {
		problem, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, problem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return problems, nil
}

// Delete removes a problem.
func (r *MySQLProblemRepository) Delete(ctx context.Context, tx db.Transaction, problemID int64) error {
	if problemID <= 0 {
		return errors.New("problemID is required")
	}

	result, err := db.GetQuerier(r.db, tx).Exec(ctx, "DELETE FROM problems WHERE problem_id = ?", problemID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProblemNotFound
	}
	if r.cache != nil && tx == nil {
		_ = r.cache.Del(ctx, problemCacheKey(problemID))
	}
	return nil
}

func (r *MySQLProblemRepository) getByIDFromDB(ctx context.Context, tx db.Transaction, problemID int64) (*Problem, error) {
	query := "SELECT " + problemColumns + " FROM problems WHERE problem_id = ? LIMIT 1"
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, query, problemID)
	problem, err := scanProblem(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	return problem, nil
}

func validateProblem(problem *Problem) error {
	if problem == nil {
		return errors.New("problem is nil")
	}
	if problem.Title == "" {
		return errors.New("title is required")
	}
	if len(problem.HiddenTestCases) == 0 {
		return errors.New("at least one hidden test case is required")
	}
	return nil
}

type problemColumnsJSON struct {
	tags      string
	visible   string
	hidden    string
	startCode string
	reference string
}

func marshalProblemColumns(problem *Problem) (problemColumnsJSON, error) {
	var cols problemColumnsJSON
	var err error
	if cols.tags, err = marshalJSON(problem.Tags); err != nil {
		return cols, err
	}
	if cols.visible, err = marshalJSON(problem.VisibleTestCases); err != nil {
		return cols, err
	}
	if cols.hidden, err = marshalJSON(problem.HiddenTestCases); err != nil {
		return cols, err
	}
	if cols.startCode, err = marshalJSON(problem.StartCode); err != nil {
		return cols, err
	}
	cols.reference, err = marshalJSON(problem.ReferenceSolutions)
	return cols, err
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProblem(row scanner) (*Problem, error) {
	problem := &Problem{}
	var tags, visible, hidden, startCode, reference string
	if err := row.Scan(
		&problem.ProblemID,
		&problem.Title,
		&problem.Description,
		&problem.Difficulty,
		&tags,
		&visible,
		&hidden,
		&startCode,
		&reference,
		&problem.CreatedBy,
		&problem.CreatedAt,
		&problem.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalInto(tags, &problem.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalInto(visible, &problem.VisibleTestCases); err != nil {
		return nil, err
	}
	if err := unmarshalInto(hidden, &problem.HiddenTestCases); err != nil {
		return nil, err
	}
	if err := unmarshalInto(startCode, &problem.StartCode); err != nil {
		return nil, err
	}
	if err := unmarshalInto(reference, &problem.ReferenceSolutions); err != nil {
		return nil, err
	}
	return problem, nil
}

func unmarshalInto(raw string, target interface{}) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), target)
}

func problemCacheKey(problemID int64) string {
	return problemCacheKeyPrefix + strconv.FormatInt(problemID, 10)
}

func marshalProblem(problem *Problem) string {
	if problem == nil {
		return ""
	}
	data, err := json.Marshal(problem)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalProblem(payload string) (*Problem, error) {
	if payload == "" {
		return nil, nil
	}
	problem := &Problem{}
	if err := json.Unmarshal([]byte(payload), problem); err != nil {
		return nil, err
	}
	return problem, nil
}
