package service

import (
	"context"
	"testing"

	"codeverse/internal/common/db"
	"codeverse/internal/judge"
	"codeverse/internal/problem/repository"
	appErr "codeverse/pkg/errors"
)

type fakeProblemRepo struct {
	created []*repository.Problem
	updated []*repository.Problem
}

func (f *fakeProblemRepo) Create(_ context.Context, _ db.Transaction, problem *repository.Problem) error {
	problem.ProblemID = int64(len(f.created) + 1)
	f.created = append(f.created, problem)
	return nil
}
func (f *fakeProblemRepo) Update(_ context.Context, _ db.Transaction, problem *repository.Problem) error {
	f.updated = append(f.updated, problem)
	return nil
}
func (f *fakeProblemRepo) GetByID(_ context.Context, _ db.Transaction, _ int64) (*repository.Problem, error) {
	return nil, repository.ErrProblemNotFound
}
func (f *fakeProblemRepo) List(_ context.Context, _ db.Transaction, _, _ int) ([]*repository.Problem, error) {
	return nil, nil
}
func (f *fakeProblemRepo) Delete(_ context.Context, _ db.Transaction, _ int64) error {
	return nil
}

type fakeExecutor struct {
	results []judge.Result
	calls   int
}

func (f *fakeExecutor) Execute(_ context.Context, items []judge.BatchItem) ([]judge.Result, error) {
	f.calls++
	if f.results != nil {
		return f.results, nil
	}
	out := make([]judge.Result, len(items))
	for i := range out {
		out[i] = judge.Result{Status: judge.ResultStatus{ID: 3}, Time: "0.01", Memory: 500}
	}
	return out, nil
}

func validProblem() *repository.Problem {
	return &repository.Problem{
		Title:       "Sum of Two",
		Description: "Read two integers, print their sum.",
		Difficulty:  "easy",
		VisibleTestCases: []repository.TestCase{
			{Input: "1 2", Output: "3"},
			{Input: "4 5", Output: "9"},
		},
		HiddenTestCases: []repository.TestCase{
			{Input: "10 20", Output: "30"},
		},
		ReferenceSolutions: []repository.CodeStub{
			{Language: "python", Code: "print(sum(map(int, input().split())))"},
		},
	}
}

func TestCreateValidatesReferenceSolutions(t *testing.T) {
	repo := &fakeProblemRepo{}
	executor := &fakeExecutor{}
	svc, err := NewProblemService(Config{ProblemRepo: repo, Judge: executor})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	if err := svc.Create(context.Background(), validProblem()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created problem, got %d", len(repo.created))
	}
	if executor.calls != 1 {
		t.Errorf("expected one judge run per reference solution, got %d", executor.calls)
	}
}

func TestCreateRejectsFailingReferenceSolution(t *testing.T) {
	repo := &fakeProblemRepo{}
	executor := &fakeExecutor{
		results: []judge.Result{
			{Status: judge.ResultStatus{ID: 3}, Time: "0.01"},
			{Status: judge.ResultStatus{ID: 4}, Stdout: "8"},
		},
	}
	svc, err := NewProblemService(Config{ProblemRepo: repo, Judge: executor})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	err = svc.Create(context.Background(), validProblem())
	if appErr.GetCode(err) != appErr.ReferenceSolutionRejected {
		t.Fatalf("expected ReferenceSolutionRejected, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("a failing reference solution must block persistence")
	}
}

func TestCreateRejectsUnsupportedReferenceLanguage(t *testing.T) {
	repo := &fakeProblemRepo{}
	svc, err := NewProblemService(Config{ProblemRepo: repo, Judge: &fakeExecutor{}})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	problem := validProblem()
	problem.ReferenceSolutions[0].Language = "fortran"
	err = svc.Create(context.Background(), problem)
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("problem must not be persisted")
	}
}

func TestCreateRequiresTestCases(t *testing.T) {
	svc, err := NewProblemService(Config{ProblemRepo: &fakeProblemRepo{}, Judge: &fakeExecutor{}})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	problem := validProblem()
	problem.HiddenTestCases = nil
	if err := svc.Create(context.Background(), problem); appErr.GetCode(err) != appErr.TestCaseInvalid {
		t.Errorf("expected TestCaseInvalid for missing hidden cases, got %v", err)
	}

	problem = validProblem()
	problem.VisibleTestCases = nil
	if err := svc.Create(context.Background(), problem); appErr.GetCode(err) != appErr.TestCaseInvalid {
		t.Errorf("expected TestCaseInvalid for missing visible cases, got %v", err)
	}
}

func TestUpdateRunsValidationToo(t *testing.T) {
	repo := &fakeProblemRepo{}
	executor := &fakeExecutor{
		results: []judge.Result{{Status: judge.ResultStatus{ID: 6}, CompileOutput: "syntax error"}},
	}
	svc, err := NewProblemService(Config{ProblemRepo: repo, Judge: executor})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	problem := validProblem()
	problem.ProblemID = 5
	err = svc.Update(context.Background(), problem)
	if appErr.GetCode(err) != appErr.ReferenceSolutionRejected {
		t.Fatalf("expected ReferenceSolutionRejected, got %v", err)
	}
	if len(repo.updated) != 0 {
		t.Error("a failing reference solution must block the update")
	}
}
