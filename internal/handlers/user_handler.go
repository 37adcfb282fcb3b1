package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
	}
}

// Me returns the caller's profile
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} services.UserProfile
// @Failure 404 {object} ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	profile, err := h.userService.Me(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Contacts lists users of the opposite role
// @Summary Chat contacts
// @Tags users
// @Produce json
// @Success 200 {array} services.Contact
// @Router /users/contacts [get]
func (h *UserHandler) Contacts(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	contacts, err := h.userService.Contacts(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, contacts)
}
