package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/educheck-service/internal/models"
)

// QuestionValidator checks the shape of authored tests and questions
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateTest checks the test level rules: a title and at least one question.
func (v *QuestionValidator) ValidateTest(title string, questionCount int) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(title) == "" {
		errs = append(errs, *NewValidationErrorWithRule("title", "is required", "required", title))
	}
	if questionCount == 0 {
		errs = append(errs, *NewValidationErrorWithRule("questions", "must contain at least one question", "min", questionCount))
	}
	return errs
}

// ValidateQuestion checks one question. position is zero based and only used
// to build field paths.
func (v *QuestionValidator) ValidateQuestion(position int, text string, options []string, correctIndex int) ValidationErrors {
	var errs ValidationErrors
	field := func(name string) string {
		return fmt.Sprintf("questions[%d].%s", position, name)
	}

	if strings.TrimSpace(text) == "" {
		errs = append(errs, *NewValidationErrorWithRule(field("text"), "is required", "required", text))
	}

	if len(options) > models.MaxOptions {
		errs = append(errs, *NewValidationErrorWithRule(field("options"),
			fmt.Sprintf("must have at most %d options", models.MaxOptions), "max", len(options)))
	}

	filled := 0
	for _, o := range options {
		if strings.TrimSpace(o) != "" {
			filled++
		}
	}
	if filled < models.MinOptions {
		errs = append(errs, *NewValidationErrorWithRule(field("options"),
			fmt.Sprintf("must have at least %d non-empty options", models.MinOptions), "min", filled))
	}

	switch {
	case correctIndex < 0 || correctIndex >= len(options):
		errs = append(errs, *NewValidationErrorWithRule(field("correct_option_index"),
			"must point to one of the options", "option_index", correctIndex))
	case strings.TrimSpace(options[correctIndex]) == "":
		errs = append(errs, *NewValidationErrorWithRule(field("correct_option_index"),
			"must point to a non-empty option", "not_blank", correctIndex))
	}

	return errs
}

// NormalizeOptions trims options and drops blank trailing entries while keeping
// the position of every filled option, so the correct index stays valid.
func NormalizeOptions(options []string) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = strings.TrimSpace(o)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
