package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/events"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/validator"
	"github.com/google/uuid"
)

type FileReportRequest struct {
	TestID     string `json:"test_id" validate:"required"`
	QuestionID string `json:"question_id" validate:"required"`
	ReportText string `json:"report_text" validate:"required,not_blank,max=2000"`
}

type RespondReportRequest struct {
	Response string `json:"response" validate:"max=2000"`
	// Resolved defaults to true when omitted.
	Resolved *bool `json:"resolved"`
}

type ReportService interface {
	File(ctx context.Context, req *FileReportRequest, studentID string) (*models.QuestionReport, error)
	// ListForTeacher returns reports about the teacher's tests, newest first.
	ListForTeacher(ctx context.Context, teacherID string, filters repositories.ReportFilters) ([]*models.QuestionReport, error)
	Respond(ctx context.Context, reportID string, req *RespondReportRequest, teacherID string) (*models.QuestionReport, error)
}

type reportService struct {
	repo      repositories.Repository
	notifier  *eventNotifier
	validator *validator.Validator
	logger    *slog.Logger
	ops       *ServiceLogger
	now       func() time.Time
}

func NewReportService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) ReportService {
	return &reportService{
		repo:      repo,
		notifier:  newEventNotifier(publisher, logger),
		validator: validator,
		logger:    logger,
		ops:       NewServiceLogger(logger, "report"),
		now:       time.Now,
	}
}

func (s *reportService) File(ctx context.Context, req *FileReportRequest, studentID string) (report *models.QuestionReport, err error) {
	done := s.ops.Track(ctx, "file_report", studentID, req.TestID, "test")
	defer func() { done(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, nil, req.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	question := test.QuestionByID(req.QuestionID)
	if question == nil {
		return nil, ErrQuestionNotFound
	}

	student, err := s.repo.User().GetByID(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	report = &models.QuestionReport{
		ID:           uuid.NewString(),
		TestID:       test.ID,
		TestTitle:    test.Title,
		QuestionID:   question.ID,
		QuestionText: question.Text,
		ReportedBy:   studentID,
		StudentName:  student.FullName(),
		ReportText:   strings.TrimSpace(req.ReportText),
		ReportedAt:   s.now().UTC(),
		TeacherID:    test.CreatedBy,
	}
	if err := s.repo.Report().Create(ctx, nil, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.notifier.notify(ctx, events.EventReportFiled, events.ReportFiledEvent{
		ReportID:   report.ID,
		TestID:     report.TestID,
		QuestionID: report.QuestionID,
		StudentID:  studentID,
		TeacherID:  report.TeacherID,
	}, nil)
	return report, nil
}

func (s *reportService) ListForTeacher(ctx context.Context, teacherID string, filters repositories.ReportFilters) ([]*models.QuestionReport, error) {
	switch filters.Status {
	case "", models.ReportStatusAll, models.ReportStatusPending, models.ReportStatusResolved:
	default:
		return nil, ValidationErrors{*NewValidationError("status", "must be one of: all pending resolved", filters.Status)}
	}

	reports, err := s.repo.Report().ListByTeacher(ctx, nil, teacherID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (s *reportService) Respond(ctx context.Context, reportID string, req *RespondReportRequest, teacherID string) (report *models.QuestionReport, err error) {
	done := s.ops.Track(ctx, "respond_report", teacherID, reportID, "report")
	defer func() { done(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	report, err = s.repo.Report().GetByID(ctx, nil, reportID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if report.TeacherID != teacherID {
		return nil, ErrReportAccessDenied
	}

	resolved := true
	if req.Resolved != nil {
		resolved = *req.Resolved
	}
	response := strings.TrimSpace(req.Response)

	if err := s.repo.Report().UpdateResolution(ctx, nil, reportID, response, resolved); err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	report.TeacherResponse = response
	report.Resolved = resolved

	s.notifier.notify(ctx, events.EventReportResolved, events.ReportResolvedEvent{
		ReportID:  report.ID,
		StudentID: report.ReportedBy,
		TeacherID: teacherID,
		Resolved:  resolved,
	}, nil)
	return report, nil
}
