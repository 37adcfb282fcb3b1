package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ChatDateTimeLayout is the human readable form stored next to each timestamp.
const ChatDateTimeLayout = "2006-01-02 15:04:05"

// ChatID derives the conversation id from two user ids, independent of order.
func ChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "-")
}

type ChatMessage struct {
	ID           string `json:"id"`
	ChatID       string `json:"chat_id"`
	SenderID     string `json:"sender_id"`
	SenderName   string `json:"sender_name"`
	ReceiverID   string `json:"receiver_id"`
	ReceiverName string `json:"receiver_name"`
	IsTeacher    bool   `json:"is_teacher"`
	Text         string `json:"text"`
	Timestamp    int64  `json:"timestamp"`
	DateTime     string `json:"date_time"`
	IsRead       bool   `json:"is_read"`
}

// Chat holds the whole conversation of two participants in one row.
type Chat struct {
	ID               string                           `json:"id" gorm:"primaryKey;size:520"`
	ParticipantA     string                           `json:"participant_a" gorm:"not null;size:255;index"`
	ParticipantB     string                           `json:"participant_b" gorm:"not null;size:255;index"`
	ParticipantNames datatypes.JSONMap                `json:"participant_names" gorm:"type:jsonb"`
	Messages         datatypes.JSONSlice[ChatMessage] `json:"messages" gorm:"type:jsonb"`
	LastUpdated      time.Time                        `json:"last_updated" gorm:"index"`
	CreatedAt        time.Time                        `json:"created_at"`
}

func (Chat) TableName() string {
	return "chats"
}

func (c *Chat) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the id of the participant that is not userID.
func (c *Chat) OtherParticipant(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

func (c *Chat) NameOf(userID string) string {
	if name, ok := c.ParticipantNames[userID].(string); ok {
		return name
	}
	return ""
}

// UnreadFor counts messages addressed to userID that are not read yet.
func (c *Chat) UnreadFor(userID string) int {
	count := 0
	for _, m := range c.Messages {
		if m.ReceiverID == userID && !m.IsRead {
			count++
		}
	}
	return count
}

// MarkReadFrom flags messages sent by senderID to readerID as read and
// returns how many changed.
func (c *Chat) MarkReadFrom(senderID, readerID string) int {
	changed := 0
	for i := range c.Messages {
		m := &c.Messages[i]
		if m.SenderID == senderID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			changed++
		}
	}
	return changed
}

func (c *Chat) LastMessage() *ChatMessage {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
