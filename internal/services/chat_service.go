package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/events"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// badgeLimit is the largest unread count shown as a number.
const badgeLimit = 9

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,not_blank,max=2000"`
}

type Participant struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Role models.UserRole `json:"role"`
}

type Conversation struct {
	ChatID   string               `json:"chat_id"`
	With     Participant          `json:"with"`
	Messages []models.ChatMessage `json:"messages"`
}

type ConversationSummary struct {
	ChatID      string              `json:"chat_id"`
	With        Participant         `json:"with"`
	LastMessage *models.ChatMessage `json:"last_message,omitempty"`
	Unread      int                 `json:"unread"`
	LastUpdated time.Time           `json:"last_updated"`
}

type UnreadSummary struct {
	Total    int            `json:"total"`
	Badge    string         `json:"badge"`
	BySender map[string]int `json:"by_sender"`
}

type ChatService interface {
	// Open returns the conversation with another user, creating it on first
	// access, and marks the other user's messages as read.
	Open(ctx context.Context, userID, otherID string) (*Conversation, error)
	Send(ctx context.Context, senderID, receiverID string, req *SendMessageRequest) (*models.ChatMessage, error)
	MarkRead(ctx context.Context, userID, otherID string) (int, error)
	Unread(ctx context.Context, userID string) (*UnreadSummary, error)
	// Conversations lists the user's chats, most recently active first.
	Conversations(ctx context.Context, userID string) ([]*ConversationSummary, error)
	Stream(ctx context.Context, userID string) (<-chan events.LiveEvent, error)
}

type chatService struct {
	repo      repositories.Repository
	broker    *events.LiveBroker
	notifier  *eventNotifier
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewChatService(
	repo repositories.Repository,
	broker *events.LiveBroker,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) ChatService {
	return &chatService{
		repo:      repo,
		broker:    broker,
		notifier:  newEventNotifier(publisher, logger),
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// BadgeText renders an unread count for a badge; zero renders empty.
func BadgeText(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > badgeLimit:
		return strconv.Itoa(badgeLimit) + "+"
	default:
		return strconv.Itoa(count)
	}
}

func (s *chatService) participants(ctx context.Context, userID, otherID string) (*models.User, *models.User, error) {
	if userID == otherID {
		return nil, nil, ErrChatWithSelf
	}

	users, err := s.repo.User().GetByIDs(ctx, nil, []string{userID, otherID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load participants: %w", err)
	}
	var me, other *models.User
	for _, u := range users {
		switch u.ID {
		case userID:
			me = u
		case otherID:
			other = u
		}
	}
	if me == nil || other == nil {
		return nil, nil, ErrUserNotFound
	}
	if me.Role == other.Role {
		return nil, nil, NewBusinessRuleError("chat_participants",
			"conversations are between a student and a teacher",
			map[string]interface{}{"role": me.Role})
	}
	return me, other, nil
}

// lockedChat loads the chat for update, creating it first when missing.
func (s *chatService) lockedChat(ctx context.Context, tx *gorm.DB, a, b *models.User) (*models.Chat, error) {
	id := models.ChatID(a.ID, b.ID)
	chat, err := s.repo.Chat().GetByID(ctx, tx, id, true)
	if err == nil {
		return chat, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	first, second := a.ID, b.ID
	if second < first {
		first, second = second, first
	}
	now := s.now().UTC()
	chat = &models.Chat{
		ID:           id,
		ParticipantA: first,
		ParticipantB: second,
		ParticipantNames: datatypes.JSONMap{
			a.ID: a.FullName(),
			b.ID: b.FullName(),
		},
		Messages:    datatypes.JSONSlice[models.ChatMessage]{},
		LastUpdated: now,
		CreatedAt:   now,
	}
	if err := s.repo.Chat().Create(ctx, tx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	// Re-read under lock: a concurrent request may have created it first.
	chat, err = s.repo.Chat().GetByID(ctx, tx, id, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	return chat, nil
}

func (s *chatService) Open(ctx context.Context, userID, otherID string) (*Conversation, error) {
	me, other, err := s.participants(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}

	var chat *models.Chat
	changed := 0
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		c, err := s.lockedChat(ctx, tx, me, other)
		if err != nil {
			return err
		}
		changed = c.MarkReadFrom(other.ID, me.ID)
		if changed > 0 {
			if err := s.repo.Chat().Save(ctx, tx, c); err != nil {
				return fmt.Errorf("failed to save chat: %w", err)
			}
		}
		chat = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed > 0 {
		s.pushReadReceipt(chat.ID, me.ID, other.ID, changed)
	}

	messages := []models.ChatMessage(chat.Messages)
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return &Conversation{
		ChatID:   chat.ID,
		With:     Participant{ID: other.ID, Name: other.FullName(), Role: other.Role},
		Messages: messages,
	}, nil
}

func (s *chatService) Send(ctx context.Context, senderID, receiverID string, req *SendMessageRequest) (*models.ChatMessage, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sender, receiver, err := s.participants(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	msg := models.ChatMessage{
		ID:           uuid.NewString(),
		ChatID:       models.ChatID(senderID, receiverID),
		SenderID:     sender.ID,
		SenderName:   sender.FullName(),
		ReceiverID:   receiver.ID,
		ReceiverName: receiver.FullName(),
		IsTeacher:    sender.Role == models.RoleTeacher,
		Text:         strings.TrimSpace(req.Text),
		Timestamp:    now.UnixMilli(),
		DateTime:     now.Format(models.ChatDateTimeLayout),
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		chat, err := s.lockedChat(ctx, tx, sender, receiver)
		if err != nil {
			return err
		}
		chat.Messages = append(chat.Messages, msg)
		chat.LastUpdated = now
		if err := s.repo.Chat().Save(ctx, tx, chat); err != nil {
			return fmt.Errorf("failed to save chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	chatMessagesSent.Inc()
	live := events.LiveEvent{Kind: events.LiveChatMessage, ChatID: msg.ChatID, Data: msg}
	for _, uid := range []string{receiver.ID, sender.ID} {
		if err := s.broker.Notify(uid, live); err != nil {
			s.logger.Warn("Failed to push live chat message", "user_id", uid, "error", err)
		}
	}

	s.notifier.notify(ctx, events.EventChatMessageSent, events.ChatMessageSentEvent{
		ChatID:     msg.ChatID,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		IsTeacher:  msg.IsTeacher,
	}, nil)

	return &msg, nil
}

func (s *chatService) MarkRead(ctx context.Context, userID, otherID string) (int, error) {
	if userID == otherID {
		return 0, ErrChatWithSelf
	}

	id := models.ChatID(userID, otherID)
	changed := 0
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		chat, err := s.repo.Chat().GetByID(ctx, tx, id, true)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil
			}
			return fmt.Errorf("failed to load chat: %w", err)
		}
		changed = chat.MarkReadFrom(otherID, userID)
		if changed == 0 {
			return nil
		}
		return s.repo.Chat().Save(ctx, tx, chat)
	})
	if err != nil {
		return 0, err
	}

	if changed > 0 {
		s.pushReadReceipt(id, userID, otherID, changed)
	}
	return changed, nil
}

func (s *chatService) Unread(ctx context.Context, userID string) (*UnreadSummary, error) {
	chats, err := s.repo.Chat().ListByParticipant(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	summary := &UnreadSummary{BySender: make(map[string]int)}
	for _, chat := range chats {
		for _, m := range chat.Messages {
			if m.ReceiverID == userID && !m.IsRead {
				summary.BySender[m.SenderID]++
				summary.Total++
			}
		}
	}
	summary.Badge = BadgeText(summary.Total)
	return summary, nil
}

func (s *chatService) Conversations(ctx context.Context, userID string) ([]*ConversationSummary, error) {
	chats, err := s.repo.Chat().ListByParticipant(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	otherIDs := make([]string, 0, len(chats))
	for _, chat := range chats {
		otherIDs = append(otherIDs, chat.OtherParticipant(userID))
	}
	users, err := s.repo.User().GetByIDs(ctx, nil, otherIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	summaries := make([]*ConversationSummary, 0, len(chats))
	for _, chat := range chats {
		otherID := chat.OtherParticipant(userID)
		with := Participant{ID: otherID, Name: chat.NameOf(otherID)}
		if u, ok := byID[otherID]; ok {
			with.Name = u.FullName()
			with.Role = u.Role
		}
		summaries = append(summaries, &ConversationSummary{
			ChatID:      chat.ID,
			With:        with,
			LastMessage: chat.LastMessage(),
			Unread:      chat.UnreadFor(userID),
			LastUpdated: chat.LastUpdated,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	return summaries, nil
}

func (s *chatService) Stream(ctx context.Context, userID string) (<-chan events.LiveEvent, error) {
	return s.broker.Subscribe(ctx, userID)
}

func (s *chatService) pushReadReceipt(chatID, readerID, senderID string, count int) {
	receipt := events.LiveEvent{
		Kind:   events.LiveChatRead,
		ChatID: chatID,
		Data:   map[string]interface{}{"reader_id": readerID, "count": count},
	}
	if err := s.broker.Notify(senderID, receipt); err != nil {
		s.logger.Warn("Failed to push read receipt", "user_id", senderID, "error", err)
	}
}
