package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/cache"
	"github.com/SAP-F-2025/educheck-service/internal/events"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/validator"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// ===== REQUESTS & RESPONSES =====

type QuestionInput struct {
	// ID keeps the identity of an existing question on update. Empty creates a
	// new question.
	ID                 string   `json:"id"`
	Text               string   `json:"text" validate:"max=1000"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
	Points             *int     `json:"points" validate:"omitempty,min=1,max=100"`
}

type CreateTestRequest struct {
	Title     string          `json:"title" validate:"max=200"`
	Questions []QuestionInput `json:"questions" validate:"dive"`
}

type UpdateTestRequest = CreateTestRequest

func (r CreateTestRequest) ValidateBusiness(v *validator.Validator) ValidationErrors {
	errs := v.Question().ValidateTest(r.Title, len(r.Questions))
	for i, q := range r.Questions {
		errs = append(errs, v.Question().ValidateQuestion(i, q.Text, q.Options, q.CorrectOptionIndex)...)
	}
	return errs
}

func (r *CreateTestRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	for i := range r.Questions {
		r.Questions[i].Text = strings.TrimSpace(r.Questions[i].Text)
		r.Questions[i].Options = validator.NormalizeOptions(r.Questions[i].Options)
	}
}

type QuestionResponse struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	// CorrectOptionIndex is hidden from students.
	CorrectOptionIndex *int `json:"correct_option_index,omitempty"`
	Points             int  `json:"points"`
}

type TestResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	TotalPoints int                `json:"total_points"`
	Questions   []QuestionResponse `json:"questions"`
}

type TestSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	QuestionCount int       `json:"question_count"`
	TotalPoints   int       `json:"total_points"`
	// Completed and BestScore are filled for students only.
	Completed bool     `json:"completed"`
	BestScore *float64 `json:"best_score,omitempty"`
}

type RemoveQuestionResult struct {
	TestDeleted bool          `json:"test_deleted"`
	Test        *TestResponse `json:"test,omitempty"`
}

// ===== SERVICE =====

type TestService interface {
	Create(ctx context.Context, req *CreateTestRequest, teacherID string) (*TestResponse, error)
	Update(ctx context.Context, id string, req *UpdateTestRequest, teacherID string) (*TestResponse, error)
	GetByID(ctx context.Context, id, userID string, role models.UserRole) (*TestResponse, error)
	// List returns every test, newest first.
	List(ctx context.Context, userID string, role models.UserRole) ([]*TestSummary, error)
	// ListByTeacher returns the teacher's own tests, newest first.
	ListByTeacher(ctx context.Context, teacherID string) ([]*TestSummary, error)
	// RemoveQuestion deletes one question; removing the last one deletes the test.
	RemoveQuestion(ctx context.Context, testID, questionID, teacherID string) (*RemoveQuestionResult, error)
	// Delete removes the test and flags its stored results as orphaned.
	Delete(ctx context.Context, id, teacherID string) error
}

type testService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	notifier  *eventNotifier
	validator *validator.Validator
	logger    *slog.Logger
	ops       *ServiceLogger
}

func NewTestService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) TestService {
	return &testService{
		repo:      repo,
		cache:     cacheService,
		notifier:  newEventNotifier(publisher, logger),
		validator: validator,
		logger:    logger,
		ops:       NewServiceLogger(logger, "test"),
	}
}

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, teacherID string) (resp *TestResponse, err error) {
	done := s.ops.Track(ctx, "create_test", teacherID, "", "test")
	defer func() { done(err) }()

	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test := &models.Test{
		ID:        uuid.NewString(),
		Title:     req.Title,
		CreatedBy: teacherID,
	}
	test.Questions = buildQuestions(test.ID, req.Questions, nil)

	if err := s.repo.Test().Create(ctx, nil, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.notifier.notify(ctx, events.EventTestCreated, testChangedEvent(test), nil)
	return toTestResponse(test, true), nil
}

func (s *testService) Update(ctx context.Context, id string, req *UpdateTestRequest, teacherID string) (resp *TestResponse, err error) {
	done := s.ops.Track(ctx, "update_test", teacherID, id, "test")
	defer func() { done(err) }()

	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var test *models.Test
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := s.ownedTest(ctx, tx, id, teacherID, "update")
		if err != nil {
			return err
		}

		current.Title = req.Title
		current.Questions = buildQuestions(current.ID, req.Questions, current)
		if err := s.repo.Test().Update(ctx, tx, current); err != nil {
			return fmt.Errorf("failed to update test: %w", err)
		}
		test = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateTestStatistics(ctx, s.cache, s.logger, id)
	s.notifier.notify(ctx, events.EventTestUpdated, testChangedEvent(test), nil)
	return toTestResponse(test, true), nil
}

func (s *testService) GetByID(ctx context.Context, id, userID string, role models.UserRole) (*TestResponse, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	reveal := role == models.RoleTeacher && test.CreatedBy == userID
	return toTestResponse(test, reveal), nil
}

func (s *testService) List(ctx context.Context, userID string, role models.UserRole) ([]*TestSummary, error) {
	tests, err := s.repo.Test().List(ctx, nil, repositories.TestFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	summaries := toTestSummaries(tests)
	if role != models.RoleStudent {
		return summaries, nil
	}

	results, err := s.repo.Result().ListByStudent(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student results: %w", err)
	}
	best := make(map[string]float64, len(results))
	for _, r := range results {
		if prev, ok := best[r.TestID]; !ok || r.Score > prev {
			best[r.TestID] = r.Score
		}
	}
	for _, summary := range summaries {
		if score, ok := best[summary.ID]; ok {
			score := score
			summary.Completed = true
			summary.BestScore = &score
		}
	}
	return summaries, nil
}

func (s *testService) ListByTeacher(ctx context.Context, teacherID string) ([]*TestSummary, error) {
	tests, err := s.repo.Test().List(ctx, nil, repositories.TestFilters{CreatedBy: &teacherID})
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher tests: %w", err)
	}
	return toTestSummaries(tests), nil
}

func (s *testService) RemoveQuestion(ctx context.Context, testID, questionID, teacherID string) (result *RemoveQuestionResult, err error) {
	done := s.ops.Track(ctx, "remove_question", teacherID, testID, "test")
	defer func() { done(err) }()

	var test *models.Test
	deleted := false
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := s.ownedTest(ctx, tx, testID, teacherID, "edit")
		if err != nil {
			return err
		}
		if current.QuestionByID(questionID) == nil {
			return ErrQuestionNotFound
		}

		if len(current.Questions) == 1 {
			if err := s.deleteTest(ctx, tx, current.ID); err != nil {
				return err
			}
			test, deleted = current, true
			return nil
		}

		if err := s.repo.Test().DeleteQuestion(ctx, tx, testID, questionID); err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}
		remaining := current.Questions[:0]
		for _, q := range current.Questions {
			if q.ID != questionID {
				remaining = append(remaining, q)
			}
		}
		current.Questions = remaining
		test = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateTestStatistics(ctx, s.cache, s.logger, testID)
	if deleted {
		invalidateAllStudentProgress(ctx, s.cache, s.logger)
		s.logger.Info("Last question removed, test deleted", "test_id", testID)
		s.notifier.notify(ctx, events.EventTestDeleted, testChangedEvent(test), nil)
		return &RemoveQuestionResult{TestDeleted: true}, nil
	}

	s.notifier.notify(ctx, events.EventTestUpdated, testChangedEvent(test), nil)
	return &RemoveQuestionResult{Test: toTestResponse(test, true)}, nil
}

func (s *testService) Delete(ctx context.Context, id, teacherID string) (err error) {
	done := s.ops.Track(ctx, "delete_test", teacherID, id, "test")
	defer func() { done(err) }()

	var test *models.Test
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := s.ownedTest(ctx, tx, id, teacherID, "delete")
		if err != nil {
			return err
		}
		test = current
		return s.deleteTest(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	invalidateTestStatistics(ctx, s.cache, s.logger, id)
	invalidateAllStudentProgress(ctx, s.cache, s.logger)
	s.notifier.notify(ctx, events.EventTestDeleted, testChangedEvent(test), nil)
	return nil
}

// deleteTest keeps the results of the test but marks them, so reviews can
// still be served from their question snapshots.
func (s *testService) deleteTest(ctx context.Context, tx *gorm.DB, id string) error {
	if err := s.repo.Result().MarkTestDeleted(ctx, tx, id); err != nil {
		return fmt.Errorf("failed to flag results of deleted test: %w", err)
	}
	if err := s.repo.Test().Delete(ctx, tx, id); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	return nil
}

func (s *testService) ownedTest(ctx context.Context, tx *gorm.DB, id, teacherID, action string) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, id, "test", action, "only the author can modify a test")
	}
	return test, nil
}

// ===== HELPERS =====

// buildQuestions turns inputs into ordered questions. IDs that belong to the
// current test are kept so stored answers keep pointing at them.
func buildQuestions(testID string, inputs []QuestionInput, current *models.Test) []models.Question {
	questions := make([]models.Question, 0, len(inputs))
	used := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		id := in.ID
		if id == "" || used[id] || current == nil || current.QuestionByID(id) == nil {
			id = uuid.NewString()
		}
		used[id] = true

		points := models.DefaultPoints
		if in.Points != nil {
			points = *in.Points
		}
		questions = append(questions, models.Question{
			ID:                 id,
			TestID:             testID,
			Position:           i,
			Text:               in.Text,
			Options:            in.Options,
			CorrectOptionIndex: in.CorrectOptionIndex,
			Points:             points,
		})
	}
	return questions
}

func totalPoints(questions []models.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}

func toTestResponse(test *models.Test, revealAnswers bool) *TestResponse {
	var resp TestResponse
	copier.Copy(&resp, test)
	resp.TotalPoints = totalPoints(test.Questions)
	if resp.Questions == nil {
		resp.Questions = []QuestionResponse{}
	}
	if !revealAnswers {
		for i := range resp.Questions {
			resp.Questions[i].CorrectOptionIndex = nil
		}
	}
	return &resp
}

func toTestSummaries(tests []*models.Test) []*TestSummary {
	summaries := make([]*TestSummary, 0, len(tests))
	for _, t := range tests {
		var summary TestSummary
		copier.Copy(&summary, t)
		summary.QuestionCount = len(t.Questions)
		summary.TotalPoints = totalPoints(t.Questions)
		summaries = append(summaries, &summary)
	}
	return summaries
}

func testChangedEvent(test *models.Test) events.TestChangedEvent {
	return events.TestChangedEvent{
		TestID:        test.ID,
		Title:         test.Title,
		TeacherID:     test.CreatedBy,
		QuestionCount: len(test.Questions),
	}
}
