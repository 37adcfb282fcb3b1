// Package scoring holds the grading arithmetic shared by submissions and
// statistics.
package scoring

import (
	"github.com/SAP-F-2025/educheck-service/internal/models"
)

// Score grades answers against the questions of a test. The denominator is the
// number of questions in the test, so skipped questions count as wrong.
// A test without questions scores 0.
func Score(questions []models.Question, answers []models.StudentAnswer) (float64, int) {
	if len(questions) == 0 {
		return 0, 0
	}

	// Skips are ignored; the last option picked for a question wins.
	selected := make(map[string]int, len(answers))
	for _, a := range answers {
		if a.SelectedOptionIndex == models.UnansweredIndex {
			continue
		}
		selected[a.QuestionID] = a.SelectedOptionIndex
	}

	correct := 0
	for _, q := range questions {
		if idx, ok := selected[q.ID]; ok && idx == q.CorrectOptionIndex {
			correct++
		}
	}

	return Percentage(correct, len(questions)), correct
}

// Percentage returns part/total*100, or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// ShouldReplace reports whether a candidate score displaces the stored best.
// Ties keep the stored result.
func ShouldReplace(hasExisting bool, existing, candidate float64) bool {
	if !hasExisting {
		return true
	}
	return candidate > existing
}
