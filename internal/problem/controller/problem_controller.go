package controller

import (
	"strconv"

	"codeverse/internal/common/http/middleware"
	"codeverse/internal/problem/repository"
	"codeverse/internal/problem/service"
	"codeverse/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles problem HTTP endpoints.
type ProblemController struct {
	problemService *service.ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService *service.ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// Create handles admin problem creation. Every reference solution is
// judged against the visible cases before anything is persisted.
func (h *ProblemController) Create(c *gin.Context) {
	var req ProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem := req.toProblem()
	problem.CreatedBy = middleware.SessionUserID(c)
	if err := h.problemService.Create(c.Request.Context(), problem); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, CreateResponse{ProblemID: problem.ProblemID})
}

// Update handles admin problem updates.
func (h *ProblemController) Update(c *gin.Context) {
	problemID, ok := problemIDParam(c)
	if !ok {
		return
	}
	var req ProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem := req.toProblem()
	problem.ProblemID = problemID
	if err := h.problemService.Update(c.Request.Context(), problem); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, CreateResponse{ProblemID: problemID})
}

// Get returns one problem. Hidden cases and reference solutions are
// only included for admin callers.
func (h *ProblemController) Get(c *gin.Context) {
	problemID, ok := problemIDParam(c)
	if !ok {
		return
	}
	problem, err := h.problemService.Get(c.Request.Context(), problemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	admin := c.GetString(middleware.ContextUserRole) == "admin"
	response.Success(c, toProblemResponse(problem, admin))
}

// List returns a page of problems without their test case bodies.
func (h *ProblemController) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	problems, err := h.problemService.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]ProblemSummary, 0, len(problems))
	for _, problem := range problems {
		items = append(items, ProblemSummary{
			ProblemID:  problem.ProblemID,
			Title:      problem.Title,
			Difficulty: problem.Difficulty,
			Tags:       problem.Tags,
		})
	}
	response.Success(c, ProblemListResponse{Items: items})
}

// Delete removes a problem.
func (h *ProblemController) Delete(c *gin.Context) {
	problemID, ok := problemIDParam(c)
	if !ok {
		return
	}
	if err := h.problemService.Delete(c.Request.Context(), problemID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": problemID})
}

func problemIDParam(c *gin.Context) (int64, bool) {
	problemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || problemID <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return 0, false
	}
	return problemID, true
}

func toProblemResponse(problem *repository.Problem, admin bool) ProblemResponse {
	resp := ProblemResponse{
		ProblemID:        problem.ProblemID,
		Title:            problem.Title,
		Description:      problem.Description,
		Difficulty:       problem.Difficulty,
		Tags:             problem.Tags,
		VisibleTestCases: problem.VisibleTestCases,
		StartCode:        problem.StartCode,
	}
	if admin {
		resp.HiddenTestCases = problem.HiddenTestCases
		resp.ReferenceSolutions = problem.ReferenceSolutions
	}
	return resp
}

// ProblemRequest defines the create/update payload.
type ProblemRequest struct {
	Title              string                `json:"title" binding:"required"`
	Description        string                `json:"description" binding:"required"`
	Difficulty         string                `json:"difficulty"`
	Tags               []string              `json:"tags"`
	VisibleTestCases   []repository.TestCase `json:"visible_test_cases" binding:"required"`
	HiddenTestCases    []repository.TestCase `json:"hidden_test_cases" binding:"required"`
	StartCode          []repository.CodeStub `json:"start_code"`
	ReferenceSolutions []repository.CodeStub `json:"reference_solutions" binding:"required"`
}

func (r ProblemRequest) toProblem() *repository.Problem {
	return &repository.Problem{
		Title:              r.Title,
		Description:        r.Description,
		Difficulty:         r.Difficulty,
		Tags:               r.Tags,
		VisibleTestCases:   r.VisibleTestCases,
		HiddenTestCases:    r.HiddenTestCases,
		StartCode:          r.StartCode,
		ReferenceSolutions: r.ReferenceSolutions,
	}
}

// CreateResponse defines the problem write response payload.
type CreateResponse struct {
	ProblemID int64 `json:"problem_id"`
}

// ProblemResponse defines the full problem view.
type ProblemResponse struct {
	ProblemID          int64                 `json:"problem_id"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	Difficulty         string                `json:"difficulty"`
	Tags               []string              `json:"tags,omitempty"`
	VisibleTestCases   []repository.TestCase `json:"visible_test_cases"`
	StartCode          []repository.CodeStub `json:"start_code,omitempty"`
	HiddenTestCases    []repository.TestCase `json:"hidden_test_cases,omitempty"`
	ReferenceSolutions []repository.CodeStub `json:"reference_solutions,omitempty"`
}

// ProblemSummary is the list item view.
type ProblemSummary struct {
	ProblemID  int64    `json:"problem_id"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags,omitempty"`
}

// ProblemListResponse defines the list response payload.
type ProblemListResponse struct {
	Items []ProblemSummary `json:"items"`
}
