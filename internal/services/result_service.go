package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/cache"
	"github.com/SAP-F-2025/educheck-service/internal/events"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/scoring"
	"github.com/SAP-F-2025/educheck-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ===== REQUESTS & RESPONSES =====

type AnswerInput struct {
	QuestionID          string `json:"question_id" validate:"required"`
	SelectedOptionIndex int    `json:"selected_option_index" validate:"gte=-1,lte=3"`
}

type SubmitTestRequest struct {
	Answers []AnswerInput `json:"answers" validate:"dive"`
}

type SubmissionOutcome struct {
	// Result is the result stored after the submission: the new one when it
	// beat the previous best, otherwise the untouched previous best.
	Result         *models.TestResult `json:"result"`
	Score          float64            `json:"score"`
	Bucket         scoring.Bucket     `json:"bucket"`
	CorrectAnswers int                `json:"correct_answers"`
	TotalQuestions int                `json:"total_questions"`
	PreviousBest   *float64           `json:"previous_best,omitempty"`
	IsFirstAttempt bool               `json:"is_first_attempt"`
	IsBestScore    bool               `json:"is_best_score"`
}

type ResultSummary struct {
	ID          string         `json:"id"`
	TestID      string         `json:"test_id"`
	TestTitle   string         `json:"test_title"`
	Score       float64        `json:"score"`
	Bucket      scoring.Bucket `json:"bucket"`
	SubmittedAt time.Time      `json:"submitted_at"`
	TestDeleted bool           `json:"test_deleted"`
}

type ReviewedQuestion struct {
	ID                  string   `json:"id"`
	Text                string   `json:"text"`
	Options             []string `json:"options"`
	CorrectOptionIndex  int      `json:"correct_option_index"`
	SelectedOptionIndex int      `json:"selected_option_index"`
	Answered            bool     `json:"answered"`
	IsCorrect           bool     `json:"is_correct"`
}

type ResultReview struct {
	ResultID       string             `json:"result_id"`
	TestID         string             `json:"test_id"`
	TestTitle      string             `json:"test_title"`
	StudentID      string             `json:"student_id"`
	Score          float64            `json:"score"`
	Bucket         scoring.Bucket     `json:"bucket"`
	SubmittedAt    time.Time          `json:"submitted_at"`
	CorrectAnswers int                `json:"correct_answers"`
	TotalQuestions int                `json:"total_questions"`
	FromSnapshot   bool               `json:"from_snapshot"`
	TestDeleted    bool               `json:"test_deleted"`
	TestUpdated    bool               `json:"test_updated"`
	Questions      []ReviewedQuestion `json:"questions"`
}

// ===== SERVICE =====

type ResultService interface {
	// Submit grades a submission and applies best-score retention.
	Submit(ctx context.Context, testID string, req *SubmitTestRequest, studentID string) (*SubmissionOutcome, error)
	// ListByStudent returns the student's results, newest first.
	ListByStudent(ctx context.Context, studentID string) ([]*ResultSummary, error)
	Review(ctx context.Context, resultID, userID string, role models.UserRole) (*ResultReview, error)
}

type resultService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	notifier  *eventNotifier
	validator *validator.Validator
	logger    *slog.Logger
	ops       *ServiceLogger
	now       func() time.Time
}

func NewResultService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		repo:      repo,
		cache:     cacheService,
		notifier:  newEventNotifier(publisher, logger),
		validator: validator,
		logger:    logger,
		ops:       NewServiceLogger(logger, "result"),
		now:       time.Now,
	}
}

func (s *resultService) Submit(ctx context.Context, testID string, req *SubmitTestRequest, studentID string) (outcome *SubmissionOutcome, err error) {
	done := s.ops.Track(ctx, "submit_test", studentID, testID, "test")
	defer func() { done(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if len(test.Questions) == 0 {
		return nil, ErrEmptyTest
	}

	answers := answeredQuestions(test, req.Answers)
	score, correct := scoring.Score(test.Questions, answers)

	snapshots := make([]models.QuestionSnapshot, len(test.Questions))
	for i := range test.Questions {
		snapshots[i] = test.Questions[i].Snapshot()
	}

	candidate := &models.TestResult{
		ID:                uuid.NewString(),
		TestID:            test.ID,
		TestTitle:         test.Title,
		StudentID:         studentID,
		TeacherID:         test.CreatedBy,
		Answers:           answers,
		Score:             score,
		SubmittedAt:       s.now().UTC(),
		QuestionSnapshots: snapshots,
	}

	outcome, err = s.retainBest(ctx, candidate)
	if repositories.IsDuplicateError(err) {
		// A concurrent first submission won the insert; the second pass sees it.
		outcome, err = s.retainBest(ctx, candidate)
	}
	if err != nil {
		return nil, err
	}
	outcome.CorrectAnswers = correct
	outcome.TotalQuestions = len(test.Questions)

	if outcome.IsBestScore {
		submissionsTotal.WithLabelValues("stored").Inc()
	} else {
		submissionsTotal.WithLabelValues("kept_previous").Inc()
	}
	submissionScores.Observe(score)

	invalidateTestStatistics(ctx, s.cache, s.logger, test.ID)
	invalidateStudentProgress(ctx, s.cache, s.logger, studentID)

	s.notifier.notify(ctx, events.EventResultSubmitted, events.ResultSubmittedEvent{
		ResultID:     outcome.Result.ID,
		TestID:       test.ID,
		TestTitle:    test.Title,
		StudentID:    studentID,
		TeacherID:    test.CreatedBy,
		Score:        score,
		Bucket:       string(outcome.Bucket),
		PreviousBest: outcome.PreviousBest,
		IsBestScore:  outcome.IsBestScore,
	}, nil)

	return outcome, nil
}

// retainBest stores candidate only when it beats every stored result of the
// pair. Existing rows are locked so concurrent submissions serialize.
func (s *resultService) retainBest(ctx context.Context, candidate *models.TestResult) (*SubmissionOutcome, error) {
	outcome := &SubmissionOutcome{
		Score:  candidate.Score,
		Bucket: scoring.BucketOf(candidate.Score),
	}

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.repo.Result().GetByStudentAndTest(ctx, tx, candidate.StudentID, candidate.TestID, true)
		if err != nil {
			return fmt.Errorf("failed to load previous results: %w", err)
		}

		var best *models.TestResult
		ids := make([]string, 0, len(existing))
		for _, r := range existing {
			ids = append(ids, r.ID)
			if best == nil || r.Score > best.Score {
				best = r
			}
		}

		bestScore := 0.0
		outcome.IsFirstAttempt = best == nil
		if best != nil {
			bestScore = best.Score
			outcome.PreviousBest = &bestScore
		}

		if !scoring.ShouldReplace(best != nil, bestScore, candidate.Score) {
			outcome.Result = best
			return nil
		}

		if err := s.repo.Result().DeleteByIDs(ctx, tx, ids); err != nil {
			return fmt.Errorf("failed to delete previous results: %w", err)
		}
		if err := s.repo.Result().Create(ctx, tx, candidate); err != nil {
			return fmt.Errorf("failed to store result: %w", err)
		}
		outcome.Result = candidate
		outcome.IsBestScore = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *resultService) ListByStudent(ctx context.Context, studentID string) ([]*ResultSummary, error) {
	results, err := s.repo.Result().ListByStudent(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	summaries := make([]*ResultSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, &ResultSummary{
			ID:          r.ID,
			TestID:      r.TestID,
			TestTitle:   r.TestTitle,
			Score:       r.Score,
			Bucket:      scoring.BucketOf(r.Score),
			SubmittedAt: r.SubmittedAt,
			TestDeleted: r.TestDeleted,
		})
	}
	return summaries, nil
}

func (s *resultService) Review(ctx context.Context, resultID, userID string, role models.UserRole) (*ResultReview, error) {
	result, err := s.repo.Result().GetByID(ctx, nil, resultID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	switch {
	case role == models.RoleStudent && result.StudentID == userID:
	case role == models.RoleTeacher && result.TeacherID == userID:
	default:
		return nil, ErrResultAccessDenied
	}

	review := &ResultReview{
		ResultID:    result.ID,
		TestID:      result.TestID,
		TestTitle:   result.TestTitle,
		StudentID:   result.StudentID,
		Score:       result.Score,
		Bucket:      scoring.BucketOf(result.Score),
		SubmittedAt: result.SubmittedAt,
		TestDeleted: result.TestDeleted,
	}

	var questions []models.QuestionSnapshot
	if len(result.QuestionSnapshots) > 0 {
		questions = result.QuestionSnapshots
		review.FromSnapshot = true
	} else {
		test, err := s.repo.Test().GetByID(ctx, nil, result.TestID)
		switch {
		case repositories.IsNotFoundError(err):
			review.TestDeleted = true
		case err != nil:
			return nil, fmt.Errorf("failed to get test: %w", err)
		default:
			for i := range test.Questions {
				questions = append(questions, test.Questions[i].Snapshot())
			}
			for _, a := range result.Answers {
				if test.QuestionByID(a.QuestionID) == nil {
					review.TestUpdated = true
					break
				}
			}
		}
	}

	review.Questions = make([]ReviewedQuestion, 0, len(questions))
	for _, q := range questions {
		selected := result.AnswerFor(q.ID)
		item := ReviewedQuestion{
			ID:                  q.ID,
			Text:                q.Text,
			Options:             q.Options,
			CorrectOptionIndex:  q.CorrectOptionIndex,
			SelectedOptionIndex: selected,
			Answered:            selected != models.UnansweredIndex,
			IsCorrect:           selected != models.UnansweredIndex && selected == q.CorrectOptionIndex,
		}
		if item.IsCorrect {
			review.CorrectAnswers++
		}
		review.Questions = append(review.Questions, item)
	}
	review.TotalQuestions = len(review.Questions)

	return review, nil
}

// answeredQuestions keeps one answer per question of the test, in test order,
// dropping skipped questions and ids the test does not contain.
func answeredQuestions(test *models.Test, inputs []AnswerInput) []models.StudentAnswer {
	selected := make(map[string]int, len(inputs))
	for _, in := range inputs {
		if in.SelectedOptionIndex == models.UnansweredIndex {
			continue
		}
		selected[in.QuestionID] = in.SelectedOptionIndex
	}

	answers := make([]models.StudentAnswer, 0, len(selected))
	for _, q := range test.Questions {
		if idx, ok := selected[q.ID]; ok {
			answers = append(answers, models.StudentAnswer{QuestionID: q.ID, SelectedOptionIndex: idx})
		}
	}
	return answers
}
