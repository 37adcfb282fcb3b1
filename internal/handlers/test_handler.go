package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type TestHandler struct {
	BaseHandler
	testService   services.TestService
	resultService services.ResultService
}

func NewTestHandler(testService services.TestService, resultService services.ResultService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler:   NewBaseHandler(logger),
		testService:   testService,
		resultService: resultService,
	}
}

// CreateTest creates a new test
// @Summary Create test
// @Description Creates a multiple-choice test owned by the calling teacher
// @Tags tests
// @Accept json
// @Produce json
// @Param test body services.CreateTestRequest true "Test data"
// @Success 201 {object} services.TestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req services.CreateTestRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	test, err := h.testService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Test created", "test_id", test.ID, "questions", len(test.Questions))
	c.JSON(http.StatusCreated, test)
}

// GetTest retrieves a test. Correct answers are only included for its author.
// @Summary Get test
// @Tags tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} services.TestResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, role, ok := h.caller(c)
	if !ok {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// ListTests lists every test, newest first
// @Summary List tests
// @Tags tests
// @Produce json
// @Success 200 {array} services.TestSummary
// @Router /tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	userID, role, ok := h.caller(c)
	if !ok {
		return
	}

	tests, err := h.testService.List(c.Request.Context(), userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tests)
}

// ListMyTests lists the calling teacher's tests
// @Summary List my tests
// @Tags tests
// @Produce json
// @Success 200 {array} services.TestSummary
// @Router /tests/mine [get]
func (h *TestHandler) ListMyTests(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	tests, err := h.testService.ListByTeacher(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tests)
}

// UpdateTest replaces the title and questions of a test
// @Summary Update test
// @Tags tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param test body services.UpdateTestRequest true "Test data"
// @Success 200 {object} services.TestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [put]
func (h *TestHandler) UpdateTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req services.UpdateTestRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	test, err := h.testService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest deletes a test; stored results are kept
// @Summary Delete test
// @Tags tests
// @Param id path string true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [delete]
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Test deleted successfully", nil)
}

// RemoveQuestion deletes one question. Removing the last question deletes the test.
// @Summary Remove question
// @Tags tests
// @Produce json
// @Param id path string true "Test ID"
// @Param question_id path string true "Question ID"
// @Success 200 {object} services.RemoveQuestionResult
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/questions/{question_id} [delete]
func (h *TestHandler) RemoveQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	questionID := ParseStringIDParam(c, "question_id")
	if questionID == "" {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	result, err := h.testService.RemoveQuestion(c.Request.Context(), id, questionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitTest grades a submission and keeps the best score
// @Summary Submit test
// @Tags tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param submission body services.SubmitTestRequest true "Answers"
// @Success 200 {object} services.SubmissionOutcome
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /tests/{id}/submit [post]
func (h *TestHandler) SubmitTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req services.SubmitTestRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	outcome, err := h.resultService.Submit(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Test submitted", "test_id", id, "score", outcome.Score, "best", outcome.IsBestScore)
	c.JSON(http.StatusOK, outcome)
}
