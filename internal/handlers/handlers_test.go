package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SAP-F-2025/educheck-service/internal/auth"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTestService struct {
	mock.Mock
}

func (m *MockTestService) Create(ctx context.Context, req *services.CreateTestRequest, teacherID string) (*services.TestResponse, error) {
	args := m.Called(ctx, req, teacherID)
	resp, _ := args.Get(0).(*services.TestResponse)
	return resp, args.Error(1)
}

func (m *MockTestService) Update(ctx context.Context, id string, req *services.UpdateTestRequest, teacherID string) (*services.TestResponse, error) {
	args := m.Called(ctx, id, req, teacherID)
	resp, _ := args.Get(0).(*services.TestResponse)
	return resp, args.Error(1)
}

func (m *MockTestService) GetByID(ctx context.Context, id, userID string, role models.UserRole) (*services.TestResponse, error) {
	args := m.Called(ctx, id, userID, role)
	resp, _ := args.Get(0).(*services.TestResponse)
	return resp, args.Error(1)
}

func (m *MockTestService) List(ctx context.Context, userID string, role models.UserRole) ([]*services.TestSummary, error) {
	args := m.Called(ctx, userID, role)
	resp, _ := args.Get(0).([]*services.TestSummary)
	return resp, args.Error(1)
}

func (m *MockTestService) ListByTeacher(ctx context.Context, teacherID string) ([]*services.TestSummary, error) {
	args := m.Called(ctx, teacherID)
	resp, _ := args.Get(0).([]*services.TestSummary)
	return resp, args.Error(1)
}

func (m *MockTestService) RemoveQuestion(ctx context.Context, testID, questionID, teacherID string) (*services.RemoveQuestionResult, error) {
	args := m.Called(ctx, testID, questionID, teacherID)
	resp, _ := args.Get(0).(*services.RemoveQuestionResult)
	return resp, args.Error(1)
}

func (m *MockTestService) Delete(ctx context.Context, id, teacherID string) error {
	args := m.Called(ctx, id, teacherID)
	return args.Error(0)
}

type MockResultService struct {
	mock.Mock
}

func (m *MockResultService) Submit(ctx context.Context, testID string, req *services.SubmitTestRequest, studentID string) (*services.SubmissionOutcome, error) {
	args := m.Called(ctx, testID, req, studentID)
	resp, _ := args.Get(0).(*services.SubmissionOutcome)
	return resp, args.Error(1)
}

func (m *MockResultService) ListByStudent(ctx context.Context, studentID string) ([]*services.ResultSummary, error) {
	args := m.Called(ctx, studentID)
	resp, _ := args.Get(0).([]*services.ResultSummary)
	return resp, args.Error(1)
}

func (m *MockResultService) Review(ctx context.Context, resultID, userID string, role models.UserRole) (*services.ResultReview, error) {
	args := m.Called(ctx, resultID, userID, role)
	resp, _ := args.Get(0).(*services.ResultReview)
	return resp, args.Error(1)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// asUser stands in for the auth middleware.
func asUser(userID string, role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserID, userID)
		c.Set(auth.ContextUserRole, role)
		c.Next()
	}
}

func newTestRouter(h *TestHandler, userID string, role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tests := router.Group("/tests", asUser(userID, role))
	tests.POST("", auth.RequireRole(models.RoleTeacher), h.CreateTest)
	tests.GET("/:id", h.GetTest)
	tests.DELETE("/:id", auth.RequireRole(models.RoleTeacher), h.DeleteTest)
	tests.POST("/:id/submit", auth.RequireRole(models.RoleStudent), h.SubmitTest)
	return router
}

func doJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", services.ValidationErrors{*services.NewValidationError("title", "required", "")}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"business rule", services.NewBusinessRuleError("chat_participants", "no", nil), http.StatusUnprocessableEntity, "BUSINESS_RULE"},
		{"permission", services.NewPermissionError("u1", "t1", "test", "update", "not owner"), http.StatusForbidden, "FORBIDDEN"},
		{"empty test", services.ErrEmptyTest, http.StatusUnprocessableEntity, ""},
		{"role mismatch", services.ErrRoleMismatch, http.StatusForbidden, ""},
		{"not found", fmt.Errorf("load: %w", services.ErrTestNotFound), http.StatusNotFound, ""},
		{"unauthorized", services.ErrInvalidCredentials, http.StatusUnauthorized, ""},
		{"conflict", services.ErrEmailTaken, http.StatusConflict, ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			h := NewBaseHandler(testLogger())

			h.handleServiceError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestTestHandler_CreateTest(t *testing.T) {
	t.Run("teacher creates a test", func(t *testing.T) {
		testService := &MockTestService{}
		h := NewTestHandler(testService, &MockResultService{}, testLogger())
		router := newTestRouter(h, "teacher-1", models.RoleTeacher)
		created := &services.TestResponse{ID: "t1", Title: "Go basics"}
		testService.On("Create", mock.Anything, mock.MatchedBy(func(r *services.CreateTestRequest) bool {
			return r.Title == "Go basics" && len(r.Questions) == 1
		}), "teacher-1").Return(created, nil)

		w := doJSON(router, http.MethodPost, "/tests", map[string]interface{}{
			"title": "Go basics",
			"questions": []map[string]interface{}{
				{"text": "Zero value of int?", "options": []string{"0", "nil"}, "correct_option_index": 0},
			},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp services.TestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "t1", resp.ID)
	})

	t.Run("students cannot create tests", func(t *testing.T) {
		testService := &MockTestService{}
		h := NewTestHandler(testService, &MockResultService{}, testLogger())
		router := newTestRouter(h, "student-1", models.RoleStudent)

		w := doJSON(router, http.MethodPost, "/tests", map[string]interface{}{"title": "x"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		testService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewTestHandler(&MockTestService{}, &MockResultService{}, testLogger())
		router := newTestRouter(h, "teacher-1", models.RoleTeacher)

		req := httptest.NewRequest(http.MethodPost, "/tests", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTestHandler_SubmitTest(t *testing.T) {
	t.Run("returns the graded outcome", func(t *testing.T) {
		resultService := &MockResultService{}
		h := NewTestHandler(&MockTestService{}, resultService, testLogger())
		router := newTestRouter(h, "student-1", models.RoleStudent)
		outcome := &services.SubmissionOutcome{Score: 75, CorrectAnswers: 3, TotalQuestions: 4, IsFirstAttempt: true, IsBestScore: true}
		resultService.On("Submit", mock.Anything, "t1", mock.MatchedBy(func(r *services.SubmitTestRequest) bool {
			return len(r.Answers) == 2 && r.Answers[1].SelectedOptionIndex == -1
		}), "student-1").Return(outcome, nil)

		w := doJSON(router, http.MethodPost, "/tests/t1/submit", map[string]interface{}{
			"answers": []map[string]interface{}{
				{"question_id": "q1", "selected_option_index": 0},
				{"question_id": "q2", "selected_option_index": -1},
			},
		})

		require.Equal(t, http.StatusOK, w.Code)
		var resp services.SubmissionOutcome
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 75.0, resp.Score)
		assert.True(t, resp.IsBestScore)
	})

	t.Run("empty test", func(t *testing.T) {
		resultService := &MockResultService{}
		h := NewTestHandler(&MockTestService{}, resultService, testLogger())
		router := newTestRouter(h, "student-1", models.RoleStudent)
		resultService.On("Submit", mock.Anything, "t1", mock.Anything, "student-1").Return(nil, services.ErrEmptyTest)

		w := doJSON(router, http.MethodPost, "/tests/t1/submit", map[string]interface{}{"answers": []interface{}{}})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("teachers cannot submit", func(t *testing.T) {
		h := NewTestHandler(&MockTestService{}, &MockResultService{}, testLogger())
		router := newTestRouter(h, "teacher-1", models.RoleTeacher)

		w := doJSON(router, http.MethodPost, "/tests/t1/submit", map[string]interface{}{"answers": []interface{}{}})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTestHandler_DeleteTest(t *testing.T) {
	testService := &MockTestService{}
	h := NewTestHandler(testService, &MockResultService{}, testLogger())
	router := newTestRouter(h, "teacher-2", models.RoleTeacher)
	testService.On("Delete", mock.Anything, "t1", "teacher-2").
		Return(services.NewPermissionError("teacher-2", "t1", "test", "delete", "not the author"))

	w := doJSON(router, http.MethodDelete, "/tests/t1", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	testService.AssertExpectations(t)
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := doJSON(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "educheck-service")
}
