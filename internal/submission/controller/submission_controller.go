package controller

import (
	"strconv"
	"time"

	"codeverse/internal/common/http/middleware"
	"codeverse/internal/submission/repository"
	"codeverse/internal/submission/service"
	"codeverse/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmissionController handles submission HTTP endpoints.
type SubmissionController struct {
	submissionService *service.SubmissionService
}

// NewSubmissionController creates a new SubmissionController.
func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{submissionService: submissionService}
}

// Submit handles scored submissions against a problem's hidden cases.
func (h *SubmissionController) Submit(c *gin.Context) {
	problemID, ok := problemIDParam(c)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	submission, err := h.submissionService.Submit(c.Request.Context(), service.SubmitInput{
		UserID:     middleware.SessionUserID(c),
		ProblemID:  problemID,
		Language:   req.Language,
		SourceCode: req.Code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toSubmissionResponse(submission))
}

// Run executes code against a problem's visible cases without scoring.
func (h *SubmissionController) Run(c *gin.Context) {
	problemID, ok := problemIDParam(c)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	cases, err := h.submissionService.Run(c.Request.Context(), service.RunInput{
		UserID:     middleware.SessionUserID(c),
		ProblemID:  problemID,
		Language:   req.Language,
		SourceCode: req.Code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, RunResponse{Cases: cases})
}

// Get returns one of the caller's submissions.
func (h *SubmissionController) Get(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	submission, err := h.submissionService.Get(c.Request.Context(), middleware.SessionUserID(c), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toSubmissionResponse(submission))
}

// ListForProblem returns the caller's attempts at one problem.
func (h *SubmissionController) ListForProblem(c *gin.Context) {
	problemID, ok := problemIDParam(c)
	if !ok {
		return
	}
	submissions, err := h.submissionService.ListForProblem(c.Request.Context(), middleware.SessionUserID(c), problemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, toSubmissionResponse(submission))
	}
	response.Success(c, ListResponse{Items: items})
}

func problemIDParam(c *gin.Context) (int64, bool) {
	problemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || problemID <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return 0, false
	}
	return problemID, true
}

func toSubmissionResponse(submission *repository.Submission) SubmissionResponse {
	return SubmissionResponse{
		SubmissionID:    submission.SubmissionID,
		ProblemID:       submission.ProblemID,
		Language:        submission.Language,
		Status:          string(submission.Status),
		TestCasesPassed: submission.TestCasesPassed,
		TestCasesTotal:  submission.TestCasesTotal,
		Runtime:         submission.Runtime,
		Memory:          submission.Memory,
		ErrorMessage:    submission.ErrorMessage,
		CreatedAt:       submission.CreatedAt.Format(time.RFC3339),
	}
}

// SubmitRequest defines the submit/run payload.
type SubmitRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
}

// SubmissionResponse defines the submission view returned to callers.
type SubmissionResponse struct {
	SubmissionID    string  `json:"submission_id"`
	ProblemID       int64   `json:"problem_id"`
	Language        string  `json:"language"`
	Status          string  `json:"status"`
	TestCasesPassed int     `json:"test_cases_passed"`
	TestCasesTotal  int     `json:"test_cases_total"`
	Runtime         float64 `json:"runtime"`
	Memory          int     `json:"memory"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// RunResponse defines the ungraded run response payload.
type RunResponse struct {
	Cases []service.CaseResult `json:"cases"`
}

// ListResponse defines the submission list response payload.
type ListResponse struct {
	Items []SubmissionResponse `json:"items"`
}
