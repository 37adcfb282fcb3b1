package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/educheck-service/internal/auth"
	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
	}
}

// Register creates an account and signs the user in
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.RegisterRequest true "Account data"
// @Success 201 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "User registered", "new_user_id", resp.User.ID, "role", resp.User.Role)
	c.JSON(http.StatusCreated, resp)
}

// Login signs in with an OAuth code or an access token for the selected role
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginRequest true "Credentials"
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout ends the current session
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} services.LogoutResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(auth.ContextSessionToken)
	if token == "" {
		// Authenticated with a provider token: there is no session to end.
		c.JSON(http.StatusOK, services.LogoutResponse{})
		return
	}

	resp, err := h.authService.Logout(c.Request.Context(), token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Session returns the current session
// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} session.Session
// @Failure 401 {object} ErrorResponse
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	token := c.GetString(auth.ContextSessionToken)
	if token == "" {
		c.JSON(http.StatusOK, gin.H{
			"user_id": auth.UserID(c),
			"role":    auth.UserRole(c),
			"email":   c.GetString(auth.ContextUserEmail),
		})
		return
	}

	sess, err := h.authService.Session(c.Request.Context(), token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}
