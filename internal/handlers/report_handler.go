package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// FileReport reports a problem with a question to the test's author
// @Summary File report
// @Tags reports
// @Accept json
// @Produce json
// @Param report body services.FileReportRequest true "Report"
// @Success 201 {object} models.QuestionReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /reports [post]
func (h *ReportHandler) FileReport(c *gin.Context) {
	var req services.FileReportRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	report, err := h.reportService.File(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// ListReports lists reports addressed to the calling teacher
// @Summary List reports
// @Tags reports
// @Produce json
// @Param status query string false "pending, resolved or all"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.QuestionReport
// @Router /reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	filters := repositories.ReportFilters{
		Status: models.ReportStatus(c.DefaultQuery("status", string(models.ReportStatusAll))),
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	}

	reports, err := h.reportService.ListForTeacher(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reports)
}

// RespondReport answers a report
// @Summary Respond to report
// @Tags reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param response body services.RespondReportRequest true "Response"
// @Success 200 {object} models.QuestionReport
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /reports/{id} [put]
func (h *ReportHandler) RespondReport(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req services.RespondReportRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	report, err := h.reportService.Respond(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
