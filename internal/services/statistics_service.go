package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/cache"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/scoring"
)

// ProgressLabelLayout formats chart labels as day/month.
const ProgressLabelLayout = "02/01"

// ===== RESPONSES =====

type TestParticipation struct {
	TestID        string    `json:"test_id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	QuestionCount int       `json:"question_count"`
	Submissions   int       `json:"submissions"`
}

type RangeCount struct {
	Range scoring.Range `json:"range"`
	Count int           `json:"count"`
}

type BucketCount struct {
	Bucket scoring.Bucket `json:"bucket"`
	Count  int            `json:"count"`
}

type QuestionStatistics struct {
	QuestionID         string    `json:"question_id"`
	Position           int       `json:"position"`
	Text               string    `json:"text"`
	Options            []string  `json:"options"`
	CorrectOptionIndex int       `json:"correct_option_index"`
	OptionCounts       []int     `json:"option_counts"`
	OptionPercentages  []float64 `json:"option_percentages"`
	TotalAnswers       int       `json:"total_answers"`
	CorrectRate        float64   `json:"correct_rate"`
}

type TestStatistics struct {
	TestID       string               `json:"test_id"`
	Title        string               `json:"title"`
	Submissions  int                  `json:"submissions"`
	AverageScore float64              `json:"average_score"`
	MinScore     float64              `json:"min_score"`
	MaxScore     float64              `json:"max_score"`
	Distribution []RangeCount         `json:"distribution"`
	Buckets      []BucketCount        `json:"buckets"`
	Questions    []QuestionStatistics `json:"questions"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

type ProgressPoint struct {
	ResultID    string    `json:"result_id"`
	TestID      string    `json:"test_id"`
	TestTitle   string    `json:"test_title"`
	Score       float64   `json:"score"`
	Label       string    `json:"label"`
	SubmittedAt time.Time `json:"submitted_at"`
	TestDeleted bool      `json:"test_deleted,omitempty"`
}

type ProgressSummary struct {
	TotalTests   int            `json:"total_tests"`
	AverageScore float64        `json:"average_score"`
	BestScore    float64        `json:"best_score"`
	LatestScore  float64        `json:"latest_score"`
	LatestBucket scoring.Bucket `json:"latest_bucket,omitempty"`
}

type StudentProgress struct {
	StudentID string          `json:"student_id"`
	Points    []ProgressPoint `json:"points"`
	// Buckets only lists buckets that hold at least one result.
	Buckets []BucketCount   `json:"buckets"`
	Summary ProgressSummary `json:"summary"`
}

// ===== SERVICE =====

type StatisticsService interface {
	// TeacherOverview lists the teacher's tests, newest first, with the number
	// of students holding a result for each.
	TeacherOverview(ctx context.Context, teacherID string) ([]*TestParticipation, error)
	TestStatistics(ctx context.Context, testID, teacherID string) (*TestStatistics, error)
	StudentProgress(ctx context.Context, studentID, viewerID string, viewerRole models.UserRole) (*StudentProgress, error)
}

type statisticsService struct {
	repo     repositories.Repository
	cache    cache.CacheService
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewStatisticsService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	cacheTTL time.Duration,
	logger *slog.Logger,
) StatisticsService {
	return &statisticsService{
		repo:     repo,
		cache:    cacheService,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *statisticsService) TeacherOverview(ctx context.Context, teacherID string) ([]*TestParticipation, error) {
	tests, err := s.repo.Test().List(ctx, nil, repositories.TestFilters{CreatedBy: &teacherID})
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher tests: %w", err)
	}

	ids := make([]string, len(tests))
	for i, t := range tests {
		ids[i] = t.ID
	}
	counts, err := s.repo.Result().CountByTests(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	overview := make([]*TestParticipation, 0, len(tests))
	for _, t := range tests {
		overview = append(overview, &TestParticipation{
			TestID:        t.ID,
			Title:         t.Title,
			CreatedAt:     t.CreatedAt,
			QuestionCount: len(t.Questions),
			Submissions:   counts[t.ID],
		})
	}
	return overview, nil
}

func (s *statisticsService) TestStatistics(ctx context.Context, testID, teacherID string) (*TestStatistics, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, testID, "test", "view_statistics", "only the author can view test statistics")
	}

	key := cache.TestStatisticsKey(testID)
	var cached TestStatistics
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	results, err := s.repo.Result().ListByTest(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	stats := BuildTestStatistics(test, results)
	stats.GeneratedAt = s.now().UTC()
	s.store(ctx, key, stats)
	return stats, nil
}

func (s *statisticsService) StudentProgress(ctx context.Context, studentID, viewerID string, viewerRole models.UserRole) (*StudentProgress, error) {
	if viewerRole != models.RoleTeacher && viewerID != studentID {
		return nil, NewPermissionError(viewerID, studentID, "student_progress", "view", "students can only view their own progress")
	}

	key := cache.StudentProgressKey(studentID)
	var cached StudentProgress
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	results, err := s.repo.Result().ListByStudent(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	progress := BuildStudentProgress(studentID, results)
	s.store(ctx, key, progress)
	return progress, nil
}

func (s *statisticsService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	switch {
	case err == nil:
		statsCacheLookups.WithLabelValues("hit").Inc()
		return true
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Warn("Statistics cache read failed", "key", key, "error", err)
	}
	statsCacheLookups.WithLabelValues("miss").Inc()
	return false
}

func (s *statisticsService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("Statistics cache write failed", "key", key, "error", err)
	}
}

// ===== AGGREGATION =====

// BuildTestStatistics aggregates the stored results of a test against its
// current questions. Option counts only consider indices 0..3.
func BuildTestStatistics(test *models.Test, results []*models.TestResult) *TestStatistics {
	stats := &TestStatistics{
		TestID:      test.ID,
		Title:       test.Title,
		Submissions: len(results),
	}

	rangeCounts := make(map[scoring.Range]int)
	bucketCounts := make(map[scoring.Bucket]int)
	if len(results) > 0 {
		sum := 0.0
		stats.MinScore = math.Inf(1)
		stats.MaxScore = math.Inf(-1)
		for _, r := range results {
			sum += r.Score
			stats.MinScore = math.Min(stats.MinScore, r.Score)
			stats.MaxScore = math.Max(stats.MaxScore, r.Score)
			rangeCounts[scoring.RangeOf(r.Score)]++
			bucketCounts[scoring.BucketOf(r.Score)]++
		}
		stats.AverageScore = sum / float64(len(results))
	}

	for _, rg := range scoring.AllRanges() {
		stats.Distribution = append(stats.Distribution, RangeCount{Range: rg, Count: rangeCounts[rg]})
	}
	for _, b := range scoring.AllBuckets() {
		stats.Buckets = append(stats.Buckets, BucketCount{Bucket: b, Count: bucketCounts[b]})
	}

	stats.Questions = make([]QuestionStatistics, 0, len(test.Questions))
	for _, q := range test.Questions {
		qs := QuestionStatistics{
			QuestionID:         q.ID,
			Position:           q.Position,
			Text:               q.Text,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
			OptionCounts:       make([]int, models.MaxOptions),
			OptionPercentages:  make([]float64, models.MaxOptions),
		}
		for _, r := range results {
			idx := r.AnswerFor(q.ID)
			if idx < 0 || idx >= models.MaxOptions {
				continue
			}
			qs.OptionCounts[idx]++
			qs.TotalAnswers++
		}
		if qs.TotalAnswers > 0 {
			for i, c := range qs.OptionCounts {
				qs.OptionPercentages[i] = scoring.Percentage(c, qs.TotalAnswers)
			}
			if q.CorrectOptionIndex >= 0 && q.CorrectOptionIndex < models.MaxOptions {
				qs.CorrectRate = scoring.Percentage(qs.OptionCounts[q.CorrectOptionIndex], qs.TotalAnswers)
			}
		}
		stats.Questions = append(stats.Questions, qs)
	}

	return stats
}

// BuildStudentProgress orders results by submission time for charting and
// summarizes them.
func BuildStudentProgress(studentID string, results []*models.TestResult) *StudentProgress {
	sorted := make([]*models.TestResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
	})

	progress := &StudentProgress{
		StudentID: studentID,
		Points:    make([]ProgressPoint, 0, len(sorted)),
		Buckets:   make([]BucketCount, 0),
	}

	counts := make(map[scoring.Bucket]int)
	sum := 0.0
	for _, r := range sorted {
		progress.Points = append(progress.Points, ProgressPoint{
			ResultID:    r.ID,
			TestID:      r.TestID,
			TestTitle:   r.TestTitle,
			Score:       r.Score,
			Label:       r.SubmittedAt.Format(ProgressLabelLayout),
			SubmittedAt: r.SubmittedAt,
			TestDeleted: r.TestDeleted,
		})
		counts[scoring.BucketOf(r.Score)]++
		sum += r.Score
		if r.Score > progress.Summary.BestScore {
			progress.Summary.BestScore = r.Score
		}
	}

	for _, b := range scoring.AllBuckets() {
		if counts[b] > 0 {
			progress.Buckets = append(progress.Buckets, BucketCount{Bucket: b, Count: counts[b]})
		}
	}

	progress.Summary.TotalTests = len(sorted)
	if len(sorted) > 0 {
		latest := sorted[len(sorted)-1]
		progress.Summary.AverageScore = sum / float64(len(sorted))
		progress.Summary.LatestScore = latest.Score
		progress.Summary.LatestBucket = scoring.BucketOf(latest.Score)
	}

	return progress
}

// ===== CACHE INVALIDATION =====

func invalidateTestStatistics(ctx context.Context, c cache.CacheService, logger *slog.Logger, testID string) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, cache.TestStatisticsKey(testID)); err != nil {
		logger.Warn("Failed to invalidate test statistics", "test_id", testID, "error", err)
	}
}

func invalidateStudentProgress(ctx context.Context, c cache.CacheService, logger *slog.Logger, studentID string) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, cache.StudentProgressKey(studentID)); err != nil {
		logger.Warn("Failed to invalidate student progress", "student_id", studentID, "error", err)
	}
}

// invalidateAllStudentProgress drops every cached progress entry. Deleting a
// test flags results of students we do not enumerate here.
func invalidateAllStudentProgress(ctx context.Context, c cache.CacheService, logger *slog.Logger) {
	if c == nil {
		return
	}
	if err := c.DeletePattern(ctx, cache.StudentProgressPattern()); err != nil {
		logger.Warn("Failed to invalidate student progress", "error", err)
	}
}
