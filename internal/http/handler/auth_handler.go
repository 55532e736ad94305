package handler

import (
	"net/http"

	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles login and the authenticated user's identity
type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(authService *service.AuthService, userService *service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		logger:      logger,
	}
}

// Login godoc
// @Summary Log in with email and password
// @Description Verifies the credentials and returns a bearer token valid for eight days by default
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.LoginResponse
// @Failure 400 {object} domain.APIError "Inactive user or invalid body"
// @Failure 401 {object} domain.APIError "Incorrect email or password"
// @Router /auth/login-json [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "log in")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Me godoc
// @Summary Get current authenticated user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetMe(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get current user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
