package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeverse/internal/judge"
	"codeverse/internal/problem/repository"
	appErr "codeverse/pkg/errors"
	"codeverse/pkg/utils/logger"

	"go.uber.org/zap"
)

// Config holds problem service dependencies.
type Config struct {
	ProblemRepo repository.ProblemRepository
	Judge       judge.Executor
	DBTimeout   time.Duration
}

// ProblemService owns problem authoring and lookup. Writes are gated
// on every reference solution passing the problem's visible cases.
type ProblemService struct {
	problemRepo repository.ProblemRepository
	judge       judge.Executor
	dbTimeout   time.Duration
}

// NewProblemService creates a new problem service.
func NewProblemService(cfg Config) (*ProblemService, error) {
	if cfg.ProblemRepo == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Judge == nil {
		return nil, fmt.Errorf("judge executor is required")
	}
	return &ProblemService{
		problemRepo: cfg.ProblemRepo,
		judge:       cfg.Judge,
		dbTimeout:   cfg.DBTimeout,
	}, nil
}

// Create validates and persists a new problem definition.
func (s *ProblemService) Create(ctx context.Context, problem *repository.Problem) error {
	if err := s.validateDefinition(problem); err != nil {
		return err
	}
	if err := s.ValidateReferenceSolutions(ctx, problem); err != nil {
		return err
	}

	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.problemRepo.Create(ctxDB, nil, problem); err != nil {
		return appErr.Wrapf(err, appErr.ProblemCreateFailed, "create problem failed")
	}
	logger.Info(ctx, "problem created",
		zap.Int64("problem_id", problem.ProblemID),
		zap.String("title", problem.Title))
	return nil
}

// Update validates and rewrites an existing problem definition.
func (s *ProblemService) Update(ctx context.Context, problem *repository.Problem) error {
	if problem == nil || problem.ProblemID <= 0 {
		return appErr.ValidationError("problem_id", "required")
	}
	if err := s.validateDefinition(problem); err != nil {
		return err
	}
	if err := s.ValidateReferenceSolutions(ctx, problem); err != nil {
		return err
	}

	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.problemRepo.Update(ctxDB, nil, problem); err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return appErr.New(appErr.ProblemNotFound).WithMessage("problem not found")
		}
		return appErr.Wrapf(err, appErr.ProblemUpdateFailed, "update problem failed")
	}
	return nil
}

// Get returns one problem.
func (s *ProblemService) Get(ctx context.Context, problemID int64) (*repository.Problem, error) {
	if problemID <= 0 {
		return nil, appErr.ValidationError("problem_id", "required")
	}
	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()
	problem, err := s.problemRepo.GetByID(ctxDB, nil, problemID)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, appErr.New(appErr.ProblemNotFound).WithMessage("problem not found")
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load problem failed")
	}
	return problem, nil
}

// List returns a page of problems.
func (s *ProblemService) List(ctx context.Context, limit, offset int) ([]*repository.Problem, error) {
	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()
	problems, err := s.problemRepo.List(ctxDB, nil, limit, offset)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list problems failed")
	}
	return problems, nil
}

// Delete removes a problem.
func (s *ProblemService) Delete(ctx context.Context, problemID int64) error {
	if problemID <= 0 {
		return appErr.ValidationError("problem_id", "required")
	}
	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.problemRepo.Delete(ctxDB, nil, problemID); err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return appErr.New(appErr.ProblemNotFound).WithMessage("problem not found")
		}
		return appErr.Wrapf(err, appErr.ProblemDeleteFailed, "delete problem failed")
	}
	return nil
}

// ValidateReferenceSolutions runs every declared reference solution
// against the problem's visible cases and rejects the definition on
// any non-accepted verdict, naming the failing case.
func (s *ProblemService) ValidateReferenceSolutions(ctx context.Context, problem *repository.Problem) error {
	for _, solution := range problem.ReferenceSolutions {
		languageID, err := judge.ResolveLanguage(solution.Language)
		if err != nil {
			return err
		}

		items := make([]judge.BatchItem, 0, len(problem.VisibleTestCases))
		for _, tc := range problem.VisibleTestCases {
			items = append(items, judge.BatchItem{
				SourceCode:     solution.Code,
				LanguageID:     languageID,
				Stdin:          tc.Input,
				ExpectedOutput: tc.Output,
			})
		}

		results, err := s.judge.Execute(ctx, items)
		if err != nil {
			return err
		}
		for i, r := range results {
			if r.Accepted() {
				continue
			}
			detail := appErr.Newf(appErr.ReferenceSolutionRejected,
				"%s reference solution failed case %d", solution.Language, i+1)
			if i < len(problem.VisibleTestCases) {
				detail = detail.
					WithDetail("expected", problem.VisibleTestCases[i].Output).
					WithDetail("actual", r.Stdout)
			}
			return detail.WithDetail("status_id", r.Status.ID)
		}
	}
	return nil
}

func (s *ProblemService) validateDefinition(problem *repository.Problem) error {
	if problem == nil {
		return appErr.ValidationError("problem", "required")
	}
	if problem.Title == "" {
		return appErr.ValidationError("title", "required")
	}
	if problem.Description == "" {
		return appErr.ValidationError("description", "required")
	}
	if len(problem.VisibleTestCases) == 0 {
		return appErr.New(appErr.TestCaseInvalid).WithMessage("at least one visible test case is required")
	}
	if len(problem.HiddenTestCases) == 0 {
		return appErr.New(appErr.TestCaseInvalid).WithMessage("at least one hidden test case is required")
	}
	return nil
}

func (s *ProblemService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.dbTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.dbTimeout)
}
