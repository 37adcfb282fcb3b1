package models

import (
	"time"
)

const (
	MaxOptions    = 4
	MinOptions    = 2
	DefaultPoints = 10
)

// Test is a named set of multiple-choice questions authored by a teacher.
type Test struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Title     string     `json:"title" gorm:"not null;size:200"`
	CreatedBy string     `json:"created_by" gorm:"not null;size:255;index"`
	Questions []Question `json:"questions" gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Test) TableName() string {
	return "tests"
}

// QuestionByID returns the question with the given id, or nil.
func (t *Test) QuestionByID(id string) *Question {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i]
		}
	}
	return nil
}

type Question struct {
	ID                 string   `json:"id" gorm:"primaryKey;size:36"`
	TestID             string   `json:"test_id" gorm:"not null;size:36;index"`
	Position           int      `json:"position" gorm:"not null"`
	Text               string   `json:"text" gorm:"type:text;not null"`
	Options            []string `json:"options" gorm:"serializer:json;type:jsonb;not null"`
	CorrectOptionIndex int      `json:"correct_option_index" gorm:"not null"`
	Points             int      `json:"points" gorm:"not null;default:10"`
}

func (Question) TableName() string {
	return "questions"
}

// Snapshot freezes the question as the student saw it.
func (q *Question) Snapshot() QuestionSnapshot {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return QuestionSnapshot{
		ID:                 q.ID,
		Text:               q.Text,
		Options:            options,
		CorrectOptionIndex: q.CorrectOptionIndex,
	}
}
