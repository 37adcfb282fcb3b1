package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatisticsHandler struct {
	BaseHandler
	statisticsService services.StatisticsService
	exportService     services.ExportService
}

func NewStatisticsHandler(statisticsService services.StatisticsService, exportService services.ExportService, logger utils.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		BaseHandler:       NewBaseHandler(logger),
		statisticsService: statisticsService,
		exportService:     exportService,
	}
}

// TeacherOverview lists the teacher's tests with participation counts
// @Summary Statistics overview
// @Tags statistics
// @Produce json
// @Success 200 {array} services.TestParticipation
// @Router /statistics/tests [get]
func (h *StatisticsHandler) TeacherOverview(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	overview, err := h.statisticsService.TeacherOverview(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// TestStatistics returns score distribution and per-question statistics
// @Summary Test statistics
// @Tags statistics
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} services.TestStatistics
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /statistics/tests/{id} [get]
func (h *StatisticsHandler) TestStatistics(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	stats, err := h.statisticsService.TestStatistics(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportTestResults downloads the results of a test as xlsx
// @Summary Export test results
// @Tags statistics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Test ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /statistics/tests/{id}/export [get]
func (h *StatisticsHandler) ExportTestResults(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	file, err := h.exportService.ExportTestResults(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, xlsxContentType, file.Data)
}

// StudentProgress returns a student's score history
// @Summary Student progress
// @Tags statistics
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} services.StudentProgress
// @Failure 403 {object} ErrorResponse
// @Router /statistics/students/{id} [get]
func (h *StatisticsHandler) StudentProgress(c *gin.Context) {
	studentID := ParseStringIDParam(c, "id")
	if studentID == "" {
		return
	}
	userID, role, ok := h.caller(c)
	if !ok {
		return
	}

	progress, err := h.statisticsService.StudentProgress(c.Request.Context(), studentID, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
