package scoring

import (
	"fmt"
	"testing"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func makeQuestions(correct ...int) []models.Question {
	questions := make([]models.Question, len(correct))
	for i, c := range correct {
		questions[i] = models.Question{
			ID:                 fmt.Sprintf("q%d", i+1),
			Options:            []string{"a", "b", "c", "d"},
			CorrectOptionIndex: c,
			Points:             models.DefaultPoints,
		}
	}
	return questions
}

func TestScore(t *testing.T) {
	t.Run("two of four correct", func(t *testing.T) {
		questions := makeQuestions(1, 3, 2, 0)
		answers := []models.StudentAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 1},
			{QuestionID: "q3", SelectedOptionIndex: 2},
		}

		score, correct := Score(questions, answers)
		assert.Equal(t, 2, correct)
		assert.InDelta(t, 50.0, score, 1e-9)
		assert.Equal(t, BucketFail, BucketOf(score))
	})

	t.Run("all correct", func(t *testing.T) {
		questions := makeQuestions(0, 1, 2)
		answers := []models.StudentAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 0},
			{QuestionID: "q2", SelectedOptionIndex: 1},
			{QuestionID: "q3", SelectedOptionIndex: 2},
		}

		score, correct := Score(questions, answers)
		assert.Equal(t, 3, correct)
		assert.InDelta(t, 100.0, score, 1e-9)
	})

	t.Run("fraction is kept as float", func(t *testing.T) {
		questions := makeQuestions(0, 0, 0)
		answers := []models.StudentAnswer{{QuestionID: "q1", SelectedOptionIndex: 0}}

		score, _ := Score(questions, answers)
		assert.InDelta(t, 100.0/3.0, score, 1e-9)
	})

	t.Run("no questions scores zero", func(t *testing.T) {
		score, correct := Score(nil, []models.StudentAnswer{{QuestionID: "q1", SelectedOptionIndex: 0}})
		assert.Equal(t, 0, correct)
		assert.Equal(t, 0.0, score)
	})

	t.Run("unanswered and unknown questions are not correct", func(t *testing.T) {
		questions := makeQuestions(0, 1)
		answers := []models.StudentAnswer{
			{QuestionID: "q1", SelectedOptionIndex: models.UnansweredIndex},
			{QuestionID: "gone", SelectedOptionIndex: 0},
			{QuestionID: "q2", SelectedOptionIndex: 1},
		}

		score, correct := Score(questions, answers)
		assert.Equal(t, 1, correct)
		assert.InDelta(t, 50.0, score, 1e-9)
	})

	t.Run("duplicate answers count once", func(t *testing.T) {
		questions := makeQuestions(0, 1)
		answers := []models.StudentAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 0},
			{QuestionID: "q1", SelectedOptionIndex: 0},
		}

		_, correct := Score(questions, answers)
		assert.Equal(t, 1, correct)
	})

	t.Run("last answer for a question wins", func(t *testing.T) {
		questions := makeQuestions(0, 1)

		_, correct := Score(questions, []models.StudentAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 2},
			{QuestionID: "q1", SelectedOptionIndex: 0},
		})
		assert.Equal(t, 1, correct)

		_, correct = Score(questions, []models.StudentAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 0},
			{QuestionID: "q1", SelectedOptionIndex: 2},
		})
		assert.Equal(t, 0, correct)

		_, correct = Score(questions, []models.StudentAnswer{
			{QuestionID: "q2", SelectedOptionIndex: 1},
			{QuestionID: "q2", SelectedOptionIndex: models.UnansweredIndex},
		})
		assert.Equal(t, 1, correct, "a trailing skip does not erase the pick")
	})
}

func TestScoreMatchesFormula(t *testing.T) {
	for n := 1; n <= 12; n++ {
		correctIdx := make([]int, n)
		questions := makeQuestions(correctIdx...)
		for k := 0; k <= n; k++ {
			answers := make([]models.StudentAnswer, 0, n)
			for i := 0; i < n; i++ {
				selected := 1
				if i < k {
					selected = 0
				}
				answers = append(answers, models.StudentAnswer{QuestionID: questions[i].ID, SelectedOptionIndex: selected})
			}
			score, correct := Score(questions, answers)
			assert.Equal(t, k, correct)
			assert.InDelta(t, 100*float64(k)/float64(n), score, 1e-9, "n=%d k=%d", n, k)
		}
	}
}

func TestShouldReplace(t *testing.T) {
	tests := []struct {
		name        string
		hasExisting bool
		existing    float64
		candidate   float64
		want        bool
	}{
		{"first submission", false, 0, 0, true},
		{"higher score", true, 50, 75, true},
		{"equal score", true, 75, 75, false},
		{"lower score", true, 75, 50, false},
		{"zero after zero", true, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldReplace(tt.hasExisting, tt.existing, tt.candidate))
		})
	}
}

func TestBucketOf(t *testing.T) {
	tests := []struct {
		score float64
		want  Bucket
	}{
		{100, BucketExcellent},
		{95, BucketExcellent},
		{90, BucketExcellent},
		{89.99, BucketVeryGood},
		{85, BucketVeryGood},
		{80, BucketVeryGood},
		{75, BucketGood},
		{70, BucketGood},
		{65, BucketAverage},
		{60, BucketAverage},
		{59.9, BucketFail},
		{40, BucketFail},
		{0, BucketFail},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, BucketOf(tt.score))
		})
	}
}

func TestRangeOf(t *testing.T) {
	assert.Equal(t, Range90To100, RangeOf(90))
	assert.Equal(t, Range80To89, RangeOf(89.5))
	assert.Equal(t, Range70To79, RangeOf(70))
	assert.Equal(t, Range60To69, RangeOf(60))
	assert.Equal(t, Range0To59, RangeOf(59))
	assert.Len(t, AllRanges(), 5)
	assert.Equal(t, []Bucket{"Excellent", "Very Good", "Good", "Average", "Fail"}, AllBuckets())
}

func BenchmarkScore(b *testing.B) {
	questions := makeQuestions(0, 1, 2, 3, 0, 1, 2, 3, 0, 1)
	answers := make([]models.StudentAnswer, len(questions))
	for i, q := range questions {
		answers[i] = models.StudentAnswer{QuestionID: q.ID, SelectedOptionIndex: i % 4}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Score(questions, answers)
	}
}
