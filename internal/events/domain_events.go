package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of domain events the service emits
type EventType string

const (
	// Test events
	EventTestCreated EventType = "test.created"
	EventTestUpdated EventType = "test.updated"
	EventTestDeleted EventType = "test.deleted"

	// Result events
	EventResultSubmitted EventType = "result.submitted"

	// Report events
	EventReportFiled    EventType = "report.filed"
	EventReportResolved EventType = "report.resolved"

	// Chat events
	EventChatMessageSent EventType = "chat.message_sent"
)

const (
	eventSource  = "educheck-service"
	eventVersion = "1.0"
)

// DomainEvent is the envelope published for every event
type DomainEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewDomainEvent wraps a payload in a new envelope.
func NewDomainEvent(eventType EventType, data interface{}) *DomainEvent {
	return &DomainEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
		Metadata:  map[string]interface{}{},
	}
}

// Test event payloads

type TestChangedEvent struct {
	TestID        string `json:"test_id"`
	Title         string `json:"title"`
	TeacherID     string `json:"teacher_id"`
	QuestionCount int    `json:"question_count"`
}

// Result event payloads

type ResultSubmittedEvent struct {
	ResultID     string   `json:"result_id"`
	TestID       string   `json:"test_id"`
	TestTitle    string   `json:"test_title"`
	StudentID    string   `json:"student_id"`
	TeacherID    string   `json:"teacher_id"`
	Score        float64  `json:"score"`
	Bucket       string   `json:"bucket"`
	PreviousBest *float64 `json:"previous_best,omitempty"`
	IsBestScore  bool     `json:"is_best_score"`
}

// Report event payloads

type ReportFiledEvent struct {
	ReportID   string `json:"report_id"`
	TestID     string `json:"test_id"`
	QuestionID string `json:"question_id"`
	StudentID  string `json:"student_id"`
	TeacherID  string `json:"teacher_id"`
}

type ReportResolvedEvent struct {
	ReportID  string `json:"report_id"`
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	Resolved  bool   `json:"resolved"`
}

// Chat event payloads

type ChatMessageSentEvent struct {
	ChatID     string `json:"chat_id"`
	MessageID  string `json:"message_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	IsTeacher  bool   `json:"is_teacher"`
}
