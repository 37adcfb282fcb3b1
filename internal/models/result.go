package models

import (
	"time"

	"gorm.io/datatypes"
)

// UnansweredIndex marks a question the student skipped.
const UnansweredIndex = -1

type StudentAnswer struct {
	QuestionID          string `json:"question_id"`
	SelectedOptionIndex int    `json:"selected_option_index"`
}

type QuestionSnapshot struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
}

// TestResult is the best scored submission of a student for a test.
type TestResult struct {
	ID                string                                `json:"id" gorm:"primaryKey;size:36"`
	TestID            string                                `json:"test_id" gorm:"not null;size:36;uniqueIndex:idx_result_student_test;index"`
	TestTitle         string                                `json:"test_title" gorm:"not null;size:200"`
	StudentID         string                                `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_result_student_test"`
	TeacherID         string                                `json:"teacher_id" gorm:"size:255;index"`
	Answers           datatypes.JSONSlice[StudentAnswer]    `json:"answers" gorm:"type:jsonb"`
	Score             float64                               `json:"score" gorm:"not null"`
	SubmittedAt       time.Time                             `json:"submitted_at" gorm:"not null;index"`
	TestDeleted       bool                                  `json:"test_deleted" gorm:"not null;default:false"`
	QuestionSnapshots datatypes.JSONSlice[QuestionSnapshot] `json:"question_snapshots,omitempty" gorm:"type:jsonb"`
}

func (TestResult) TableName() string {
	return "test_results"
}

// AnswerFor returns the selected option for a question, or UnansweredIndex.
func (r *TestResult) AnswerFor(questionID string) int {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a.SelectedOptionIndex
		}
	}
	return UnansweredIndex
}
