package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"codeverse/internal/common/storage"
	"codeverse/internal/judge"
	problemRepo "codeverse/internal/problem/repository"
	"codeverse/internal/submission/repository"
	userRepo "codeverse/internal/user/repository"
	appErr "codeverse/pkg/errors"
	"codeverse/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSourcePrefix = "submissions"
	defaultMaxCodeBytes = 64 * 1024
)

// TimeoutConfig holds timeout settings for external calls. The judge
// pipeline carries its own attempt budget and is not bounded here.
type TimeoutConfig struct {
	DB      time.Duration
	Cache   time.Duration
	Storage time.Duration
}

// Config holds submission service dependencies and settings.
type Config struct {
	SubmissionRepo repository.SubmissionRepository
	ProblemRepo    problemRepo.ProblemRepository
	UserRepo       userRepo.UserRepository
	Judge          judge.Executor
	Limiter        *CooldownLimiter
	Storage        storage.ObjectStorage
	Verdicts       repository.VerdictEventPublisher

	SourceBucket    string
	SourceKeyPrefix string
	MaxCodeBytes    int
	Timeouts        TimeoutConfig
}

// SubmissionService owns the submission lifecycle: intake, judging,
// verdict finalization and the user's solved set.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    problemRepo.ProblemRepository
	userRepo       userRepo.UserRepository
	judge          judge.Executor
	limiter        *CooldownLimiter
	storage        storage.ObjectStorage
	verdicts       repository.VerdictEventPublisher

	sourceBucket    string
	sourceKeyPrefix string
	maxCodeBytes    int
	timeouts        TimeoutConfig
}

// SubmitInput describes a scored submission request.
type SubmitInput struct {
	UserID     int64
	ProblemID  int64
	Language   string
	SourceCode string
}

// RunInput describes an ungraded run against visible test cases.
type RunInput struct {
	UserID     int64
	ProblemID  int64
	Language   string
	SourceCode string
}

// CaseResult is one raw per-case outcome of an ungraded run.
type CaseResult struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Stdout         string `json:"stdout"`
	Stderr         string `json:"stderr,omitempty"`
	StatusID       int    `json:"status_id"`
	Passed         bool   `json:"passed"`
	Time           string `json:"time,omitempty"`
	Memory         int    `json:"memory,omitempty"`
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(cfg Config) (*SubmissionService, error) {
	if cfg.SubmissionRepo == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.ProblemRepo == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if cfg.Judge == nil {
		return nil, fmt.Errorf("judge executor is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("cooldown limiter is required")
	}
	if cfg.SourceKeyPrefix == "" {
		cfg.SourceKeyPrefix = defaultSourcePrefix
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
	return &SubmissionService{
		submissionRepo:  cfg.SubmissionRepo,
		problemRepo:     cfg.ProblemRepo,
		userRepo:        cfg.UserRepo,
		judge:           cfg.Judge,
		limiter:         cfg.Limiter,
		storage:         cfg.Storage,
		verdicts:        cfg.Verdicts,
		sourceBucket:    cfg.SourceBucket,
		sourceKeyPrefix: cfg.SourceKeyPrefix,
		maxCodeBytes:    cfg.MaxCodeBytes,
		timeouts:        cfg.Timeouts,
	}, nil
}

// Submit runs the scored pipeline: rate limit, create a pending record
// over the problem's hidden cases, judge, finalize, and mark the
// problem solved on an accepted verdict. A judge failure leaves the
// record pending; nothing is finalized with partial results.
func (s *SubmissionService) Submit(ctx context.Context, input SubmitInput) (*repository.Submission, error) {
	if err := s.validateInput(input.UserID, input.ProblemID, input.Language, input.SourceCode); err != nil {
		return nil, err
	}
	languageID, err := judge.ResolveLanguage(input.Language)
	if err != nil {
		return nil, err
	}

	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	allowed, err := s.limiter.Allow(ctxCache.ctx, input.UserID)
	ctxCache.cancel()
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "rate limit check failed")
	}
	if !allowed {
		return nil, appErr.New(appErr.SubmitTooFrequently).WithMessage("please wait before submitting again")
	}

	problem, err := s.loadProblem(ctx, input.ProblemID)
	if err != nil {
		return nil, err
	}

	submission := &repository.Submission{
		SubmissionID:   uuid.NewString(),
		UserID:         input.UserID,
		ProblemID:      input.ProblemID,
		Language:       input.Language,
		SourceCode:     input.SourceCode,
		Status:         judge.StatusPending,
		TestCasesTotal: len(problem.HiddenTestCases),
	}
	submission.SourceKey = s.archiveSource(ctx, submission)

	ctxDB := withTimeout(ctx, s.timeouts.DB)
	err = s.submissionRepo.Create(ctxDB.ctx, nil, submission)
	ctxDB.cancel()
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
	}

	results, err := s.judge.Execute(ctx, buildBatch(languageID, input.SourceCode, problem.HiddenTestCases))
	if err != nil {
		logger.Error(ctx, "judge pipeline failed, submission left pending",
			zap.String("submission_id", submission.SubmissionID),
			zap.Error(err))
		return nil, err
	}

	verdict := judge.Classify(results)
	ctxDB = withTimeout(ctx, s.timeouts.DB)
	err = s.submissionRepo.FinalizeVerdict(ctxDB.ctx, nil, submission.SubmissionID, repository.Verdict{
		Status:          verdict.Status,
		TestCasesPassed: verdict.TestCasesPassed,
		Runtime:         verdict.Runtime,
		Memory:          verdict.Memory,
		ErrorMessage:    verdict.ErrorMessage,
	})
	ctxDB.cancel()
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "finalize submission failed")
	}

	submission.Status = verdict.Status
	submission.TestCasesPassed = verdict.TestCasesPassed
	submission.Runtime = verdict.Runtime
	submission.Memory = verdict.Memory
	submission.ErrorMessage = verdict.ErrorMessage

	if verdict.Status == judge.StatusAccepted {
		ctxDB = withTimeout(ctx, s.timeouts.DB)
		err = s.userRepo.AddSolvedProblem(ctxDB.ctx, nil, input.UserID, input.ProblemID)
		ctxDB.cancel()
		if err != nil {
			logger.Error(ctx, "record solved problem failed",
				zap.Int64("user_id", input.UserID),
				zap.Int64("problem_id", input.ProblemID),
				zap.Error(err))
		}
	}

	s.publishVerdict(ctx, submission)
	return submission, nil
}

// Run executes code against the problem's visible cases and returns
// raw per-case results. Nothing is persisted and no cooldown applies.
func (s *SubmissionService) Run(ctx context.Context, input RunInput) ([]CaseResult, error) {
	if err := s.validateInput(input.UserID, input.ProblemID, input.Language, input.SourceCode); err != nil {
		return nil, err
	}
	languageID, err := judge.ResolveLanguage(input.Language)
	if err != nil {
		return nil, err
	}
	problem, err := s.loadProblem(ctx, input.ProblemID)
	if err != nil {
		return nil, err
	}
	if len(problem.VisibleTestCases) == 0 {
		return nil, appErr.New(appErr.TestCaseInvalid).WithMessage("problem has no visible test cases")
	}

	results, err := s.judge.Execute(ctx, buildBatch(languageID, input.SourceCode, problem.VisibleTestCases))
	if err != nil {
		return nil, err
	}

	cases := make([]CaseResult, 0, len(results))
	for i, r := range results {
		item := CaseResult{
			Stdout:   r.Stdout,
			Stderr:   r.Stderr,
			StatusID: r.Status.ID,
			Passed:   r.Accepted(),
			Time:     r.Time,
			Memory:   r.Memory,
		}
		if i < len(problem.VisibleTestCases) {
			item.Input = problem.VisibleTestCases[i].Input
			item.ExpectedOutput = problem.VisibleTestCases[i].Output
		}
		cases = append(cases, item)
	}
	return cases, nil
}

// Get returns a submission visible to its owner.
func (s *SubmissionService) Get(ctx context.Context, userID int64, submissionID string) (*repository.Submission, error) {
	if submissionID == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	submission, err := s.submissionRepo.GetByID(ctxDB.ctx, nil, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, appErr.New(appErr.SubmissionNotFound).WithMessage("submission not found")
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load submission failed")
	}
	if userID > 0 && submission.UserID != userID {
		return nil, appErr.New(appErr.Forbidden).WithMessage("submission belongs to another user")
	}
	return submission, nil
}

// ListForProblem returns the caller's attempts at one problem.
func (s *SubmissionService) ListForProblem(ctx context.Context, userID, problemID int64) ([]*repository.Submission, error) {
	if userID <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	if problemID <= 0 {
		return nil, appErr.ValidationError("problem_id", "required")
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	submissions, err := s.submissionRepo.ListByUserAndProblem(ctxDB.ctx, nil, userID, problemID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
	}
	return submissions, nil
}

func (s *SubmissionService) validateInput(userID, problemID int64, language, sourceCode string) error {
	if userID <= 0 {
		return appErr.ValidationError("user_id", "required")
	}
	if problemID <= 0 {
		return appErr.ValidationError("problem_id", "required")
	}
	if language == "" {
		return appErr.ValidationError("language", "required")
	}
	if sourceCode == "" {
		return appErr.ValidationError("code", "required")
	}
	if len(sourceCode) > s.maxCodeBytes {
		return appErr.Newf(appErr.CodeTooLarge, "code exceeds %d bytes", s.maxCodeBytes)
	}
	return nil
}

func (s *SubmissionService) loadProblem(ctx context.Context, problemID int64) (*problemRepo.Problem, error) {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	problem, err := s.problemRepo.GetByID(ctxDB.ctx, nil, problemID)
	if err != nil {
		if errors.Is(err, problemRepo.ErrProblemNotFound) {
			return nil, appErr.New(appErr.ProblemNotFound).WithMessage("problem not found")
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load problem failed")
	}
	return problem, nil
}

// archiveSource stores the raw source in object storage. Archival is
// best-effort: a storage outage must not block judging.
func (s *SubmissionService) archiveSource(ctx context.Context, submission *repository.Submission) string {
	if s.storage == nil || s.sourceBucket == "" {
		return ""
	}
	key := fmt.Sprintf("%s/%d/%s.%s", s.sourceKeyPrefix, submission.ProblemID, submission.SubmissionID, "txt")
	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	defer ctxStorage.cancel()
	body := []byte(submission.SourceCode)
	err := s.storage.PutObject(ctxStorage.ctx, s.sourceBucket, key, bytes.NewReader(body), int64(len(body)), "text/plain")
	if err != nil {
		logger.Warn(ctx, "archive source failed",
			zap.String("submission_id", submission.SubmissionID),
			zap.Error(err))
		return ""
	}
	return key
}

func (s *SubmissionService) publishVerdict(ctx context.Context, submission *repository.Submission) {
	if s.verdicts == nil {
		return
	}
	err := s.verdicts.PublishVerdict(ctx, repository.VerdictEvent{
		SubmissionID:    submission.SubmissionID,
		UserID:          submission.UserID,
		ProblemID:       submission.ProblemID,
		Language:        submission.Language,
		Status:          submission.Status,
		TestCasesPassed: submission.TestCasesPassed,
		TestCasesTotal:  submission.TestCasesTotal,
		Runtime:         submission.Runtime,
		Memory:          submission.Memory,
	})
	if err != nil {
		logger.Warn(ctx, "publish verdict event failed",
			zap.String("submission_id", submission.SubmissionID),
			zap.Error(err))
	}
}

func buildBatch(languageID int, sourceCode string, cases []problemRepo.TestCase) []judge.BatchItem {
	items := make([]judge.BatchItem, 0, len(cases))
	for _, tc := range cases {
		items = append(items, judge.BatchItem{
			SourceCode:     sourceCode,
			LanguageID:     languageID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		})
	}
	return items
}

type timeoutCtx struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func withTimeout(ctx context.Context, timeout time.Duration) timeoutCtx {
	if timeout <= 0 {
		return timeoutCtx{ctx: ctx, cancel: func() {}}
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	return timeoutCtx{ctx: ctxTimeout, cancel: cancel}
}
