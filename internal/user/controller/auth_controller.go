package controller

import (
	"time"

	"codeverse/internal/common/http/middleware"
	"codeverse/internal/user/repository"
	"codeverse/internal/user/service"
	"codeverse/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// AuthController handles account HTTP endpoints.
type AuthController struct {
	authService *service.AuthService
}

// NewAuthController creates a new AuthController.
func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// Register handles signup.
func (h *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Age:       req.Age,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	setSessionCookie(c, result)
	response.Created(c, toAuthResponse(result))
}

// Login handles credential login.
func (h *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	setSessionCookie(c, result)
	response.Success(c, toAuthResponse(result))
}

// Logout revokes the caller's session token.
func (h *AuthController) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.SetCookie("token", "", -1, "/", "", false, true)
	response.Success(c, gin.H{"logged_out": true})
}

// Profile returns the caller's account.
func (h *AuthController) Profile(c *gin.Context) {
	user, err := h.authService.GetProfile(c.Request.Context(), middleware.SessionUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toUserResponse(user))
}

// SolvedProblems returns the ids of problems the caller has solved.
func (h *AuthController) SolvedProblems(c *gin.Context) {
	problemIDs, err := h.authService.SolvedProblems(c.Request.Context(), middleware.SessionUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SolvedResponse{ProblemIDs: problemIDs})
}

// Delete removes the caller's account.
func (h *AuthController) Delete(c *gin.Context) {
	if err := h.authService.DeleteAccount(c.Request.Context(), middleware.SessionUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.SetCookie("token", "", -1, "/", "", false, true)
	response.Success(c, gin.H{"deleted": true})
}

func setSessionCookie(c *gin.Context, result service.AuthResult) {
	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetCookie("token", result.Token, maxAge, "/", "", false, true)
}

func toAuthResponse(result service.AuthResult) AuthResponse {
	return AuthResponse{
		User:      toUserResponse(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
	}
}

func toUserResponse(user *repository.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Age:       user.Age,
		Role:      string(user.Role),
	}
}

// RegisterRequest defines the signup payload.
type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Age       int    `json:"age"`
}

// LoginRequest defines the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse defines the account view returned to callers.
type UserResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Age       int    `json:"age,omitempty"`
	Role      string `json:"role"`
}

// AuthResponse defines the register/login response payload.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
}

// SolvedResponse defines the solved-problem list payload.
type SolvedResponse struct {
	ProblemIDs []int64 `json:"problem_ids"`
}
