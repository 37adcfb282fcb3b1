package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/scoring"
	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet   = "Results"
	questionsSheet = "Questions"
	exportTimeFmt  = "2006-01-02 15:04:05"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

type ExportFile struct {
	Filename string
	Data     []byte
}

type ExportService interface {
	// ExportTestResults builds an xlsx workbook with the stored results of a
	// test and its per-question statistics. Owner only.
	ExportTestResults(ctx context.Context, testID, teacherID string) (*ExportFile, error)
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) ExportTestResults(ctx context.Context, testID, teacherID string) (*ExportFile, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, testID, "test", "export_results", "only the author can export results")
	}

	results, err := s.repo.Result().ListByTest(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	studentIDs := make([]string, 0, len(results))
	for _, r := range results {
		studentIDs = append(studentIDs, r.StudentID)
	}
	students, err := s.repo.User().GetByIDs(ctx, nil, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}
	byID := make(map[string]*models.User, len(students))
	for _, u := range students {
		byID[u.ID] = u
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := writeRow(f, resultsSheet, 1, []interface{}{
		"Student ID", "Student Name", "Email", "Score", "Bucket", "Correct Answers", "Submitted At",
	}); err != nil {
		return nil, err
	}
	for i, r := range results {
		name, email := r.StudentID, ""
		if u, ok := byID[r.StudentID]; ok {
			name, email = u.FullName(), u.Email
		}
		graded := gradedQuestions(test, r)
		_, correct := scoring.Score(graded, r.Answers)
		row := []interface{}{
			r.StudentID,
			name,
			email,
			r.Score,
			string(scoring.BucketOf(r.Score)),
			fmt.Sprintf("%d/%d", correct, len(graded)),
			r.SubmittedAt.UTC().Format(exportTimeFmt),
		}
		if err := writeRow(f, resultsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(questionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := writeRow(f, questionsSheet, 1, []interface{}{
		"#", "Question", "Option A", "Option B", "Option C", "Option D",
		"Correct Option", "Total Answers", "Correct Rate (%)",
	}); err != nil {
		return nil, err
	}
	stats := BuildTestStatistics(test, results)
	for i, qs := range stats.Questions {
		row := []interface{}{qs.Position + 1, qs.Text}
		for opt := 0; opt < models.MaxOptions; opt++ {
			label := ""
			if opt < len(qs.Options) {
				label = fmt.Sprintf("%s (%d)", qs.Options[opt], qs.OptionCounts[opt])
			}
			row = append(row, label)
		}
		row = append(row, optionLetter(qs.CorrectOptionIndex), qs.TotalAnswers, qs.CorrectRate)
		if err := writeRow(f, questionsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Results exported", "test_id", testID, "rows", len(results))
	return &ExportFile{
		Filename: exportFilename(test.Title),
		Data:     buf.Bytes(),
	}, nil
}

// gradedQuestions returns the questions a result was scored against: its
// snapshots when present, otherwise the live test.
func gradedQuestions(test *models.Test, r *models.TestResult) []models.Question {
	if len(r.QuestionSnapshots) == 0 {
		return test.Questions
	}
	questions := make([]models.Question, 0, len(r.QuestionSnapshots))
	for _, snap := range r.QuestionSnapshots {
		questions = append(questions, models.Question{
			ID:                 snap.ID,
			Text:               snap.Text,
			Options:            snap.Options,
			CorrectOptionIndex: snap.CorrectOptionIndex,
		})
	}
	return questions
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to resolve cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}

func optionLetter(idx int) string {
	if idx < 0 || idx >= models.MaxOptions {
		return ""
	}
	return string(rune('A' + idx))
}

func exportFilename(title string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(title, "_"), "_")
	if base == "" {
		base = "test"
	}
	return base + "_results.xlsx"
}
