package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
}

func NewResultHandler(resultService services.ResultService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
	}
}

// ListMyResults lists the calling student's results, newest first
// @Summary My results
// @Tags results
// @Produce json
// @Success 200 {array} services.ResultSummary
// @Router /results/mine [get]
func (h *ResultHandler) ListMyResults(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	results, err := h.resultService.ListByStudent(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ReviewResult returns a result with every question and the chosen answer
// @Summary Review result
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} services.ResultReview
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /results/{id} [get]
func (h *ResultHandler) ReviewResult(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, role, ok := h.caller(c)
	if !ok {
		return
	}

	review, err := h.resultService.Review(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}
