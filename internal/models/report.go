package models

import "time"

type ReportStatus string

const (
	ReportStatusAll      ReportStatus = "all"
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusResolved ReportStatus = "resolved"
)

// QuestionReport is a complaint a student filed against a question.
type QuestionReport struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	TestID          string    `json:"test_id" gorm:"not null;size:36;index"`
	TestTitle       string    `json:"test_title" gorm:"size:200"`
	QuestionID      string    `json:"question_id" gorm:"not null;size:36"`
	QuestionText    string    `json:"question_text" gorm:"type:text"`
	ReportedBy      string    `json:"reported_by" gorm:"not null;size:255;index"`
	StudentName     string    `json:"student_name" gorm:"size:200"`
	ReportText      string    `json:"report_text" gorm:"type:text;not null"`
	ReportedAt      time.Time `json:"reported_at" gorm:"not null;index"`
	Resolved        bool      `json:"resolved" gorm:"not null;default:false"`
	TeacherResponse string    `json:"teacher_response" gorm:"type:text"`
	TeacherID       string    `json:"teacher_id" gorm:"not null;size:255;index"`
}

func (QuestionReport) TableName() string {
	return "question_reports"
}
