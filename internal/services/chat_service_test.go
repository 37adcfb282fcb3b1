package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/events"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	alice = &models.User{ID: "alice", FirstName: "Alice", LastName: "Nguyen", Email: "alice@example.com", Role: models.RoleStudent}
	bob   = &models.User{ID: "bob", FirstName: "Bob", LastName: "Tran", Email: "bob@example.com", Role: models.RoleTeacher}
	carol = &models.User{ID: "carol", FirstName: "Carol", LastName: "Le", Email: "carol@example.com", Role: models.RoleStudent}
)

type chatServiceFixture struct {
	repo      *MockRepository
	broker    *events.LiveBroker
	publisher *events.MemoryEventPublisher
	service   ChatService
}

func newChatServiceFixture(t *testing.T) *chatServiceFixture {
	repo := NewMockRepository()
	broker := events.NewLiveBroker(testLogger())
	t.Cleanup(func() { _ = broker.Close() })
	publisher := events.NewMemoryEventPublisher(testLogger())
	return &chatServiceFixture{
		repo:      repo,
		broker:    broker,
		publisher: publisher,
		service:   NewChatService(repo, broker, publisher, validator.New(), testLogger()),
	}
}

func existingChat(messages ...models.ChatMessage) *models.Chat {
	return &models.Chat{
		ID:               models.ChatID(alice.ID, bob.ID),
		ParticipantA:     alice.ID,
		ParticipantB:     bob.ID,
		ParticipantNames: datatypes.JSONMap{alice.ID: alice.FullName(), bob.ID: bob.FullName()},
		Messages:         messages,
		LastUpdated:      time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC),
	}
}

func message(from, to *models.User, text string, read bool) models.ChatMessage {
	return models.ChatMessage{
		ID:         text,
		ChatID:     models.ChatID(from.ID, to.ID),
		SenderID:   from.ID,
		ReceiverID: to.ID,
		IsTeacher:  from.Role == models.RoleTeacher,
		Text:       text,
		IsRead:     read,
	}
}

func TestBadgeText(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, ""},
		{1, "1"},
		{9, "9"},
		{10, "9+"},
		{250, "9+"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("count_%d", tt.count), func(t *testing.T) {
			assert.Equal(t, tt.want, BadgeText(tt.count))
		})
	}
}

func TestChatService_Send(t *testing.T) {
	ctx := context.Background()
	chatID := models.ChatID(alice.ID, bob.ID)

	t.Run("appends message and pushes it live", func(t *testing.T) {
		f := newChatServiceFixture(t)
		chat := existingChat(message(alice, bob, "hello", true))
		f.repo.users.On("GetByIDs", ctx, (*gorm.DB)(nil), []string{bob.ID, alice.ID}).Return([]*models.User{alice, bob}, nil)
		f.repo.chats.On("GetByID", ctx, (*gorm.DB)(nil), chatID, true).Return(chat, nil)
		f.repo.chats.On("Save", ctx, (*gorm.DB)(nil), chat).Return(nil)

		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		live, err := f.broker.Subscribe(streamCtx, alice.ID)
		require.NoError(t, err)

		msg, err := f.service.Send(ctx, bob.ID, alice.ID, &SendMessageRequest{Text: "  Check question 3  "})

		require.NoError(t, err)
		assert.Equal(t, "Check question 3", msg.Text)
		assert.True(t, msg.IsTeacher)
		assert.Equal(t, chatID, msg.ChatID)
		assert.Equal(t, "Bob Tran", msg.SenderName)
		assert.Equal(t, "Alice Nguyen", msg.ReceiverName)
		assert.NotZero(t, msg.Timestamp)
		assert.NotEmpty(t, msg.DateTime)
		assert.False(t, msg.IsRead)

		require.Len(t, chat.Messages, 2)
		assert.Equal(t, msg.ID, chat.Messages[1].ID)
		assert.Len(t, f.publisher.EventsOfType(events.EventChatMessageSent), 1)

		select {
		case event := <-live:
			assert.Equal(t, events.LiveChatMessage, event.Kind)
			assert.Equal(t, chatID, event.ChatID)
		case <-time.After(2 * time.Second):
			t.Fatal("live event not delivered")
		}
	})

	t.Run("creates the chat on first message", func(t *testing.T) {
		f := newChatServiceFixture(t)
		created := existingChat()
		f.repo.users.On("GetByIDs", ctx, (*gorm.DB)(nil), []string{alice.ID, bob.ID}).Return([]*models.User{alice, bob}, nil)
		f.repo.chats.On("GetByID", ctx, (*gorm.DB)(nil), chatID, true).Return(nil, gorm.ErrRecordNotFound).Once()
		f.repo.chats.On("Create", ctx, (*gorm.DB)(nil), mock.MatchedBy(func(c *models.Chat) bool {
			return c.ID == chatID && c.NameOf(bob.ID) == "Bob Tran" && c.ParticipantA == alice.ID
		})).Return(nil)
		f.repo.chats.On("GetByID", ctx, (*gorm.DB)(nil), chatID, true).Return(created, nil).Once()
		f.repo.chats.On("Save", ctx, (*gorm.DB)(nil), created).Return(nil)

		msg, err := f.service.Send(ctx, alice.ID, bob.ID, &SendMessageRequest{Text: "hi"})

		require.NoError(t, err)
		assert.False(t, msg.IsTeacher)
		require.Len(t, created.Messages, 1)
		f.repo.chats.AssertExpectations(t)
	})

	t.Run("rejects blank text", func(t *testing.T) {
		f := newChatServiceFixture(t)

		_, err := f.service.Send(ctx, alice.ID, bob.ID, &SendMessageRequest{Text: "   "})
		assert.True(t, IsValidation(err))
	})

	t.Run("rejects chatting with yourself", func(t *testing.T) {
		f := newChatServiceFixture(t)

		_, err := f.service.Send(ctx, alice.ID, alice.ID, &SendMessageRequest{Text: "me"})
		assert.ErrorIs(t, err, ErrChatWithSelf)
	})

	t.Run("rejects two users with the same role", func(t *testing.T) {
		f := newChatServiceFixture(t)
		f.repo.users.On("GetByIDs", ctx, (*gorm.DB)(nil), []string{alice.ID, carol.ID}).Return([]*models.User{alice, carol}, nil)

		_, err := f.service.Send(ctx, alice.ID, carol.ID, &SendMessageRequest{Text: "hey"})
		assert.True(t, IsBusinessRule(err))
	})

	t.Run("unknown receiver", func(t *testing.T) {
		f := newChatServiceFixture(t)
		f.repo.users.On("GetByIDs", ctx, (*gorm.DB)(nil), []string{alice.ID, "ghost"}).Return([]*models.User{alice}, nil)

		_, err := f.service.Send(ctx, alice.ID, "ghost", &SendMessageRequest{Text: "hey"})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestChatService_Open(t *testing.T) {
	ctx := context.Background()
	f := newChatServiceFixture(t)
	chat := existingChat(
		message(alice, bob, "question", true),
		message(bob, alice, "answer 1", false),
		message(bob, alice, "answer 2", false),
		message(alice, bob, "thanks", false),
	)
	f.repo.users.On("GetByIDs", ctx, (*gorm.DB)(nil), []string{alice.ID, bob.ID}).Return([]*models.User{alice, bob}, nil)
	f.repo.chats.On("GetByID", ctx, (*gorm.DB)(nil), chat.ID, true).Return(chat, nil)
	f.repo.chats.On("Save", ctx, (*gorm.DB)(nil), chat).Return(nil).Once()

	conversation, err := f.service.Open(ctx, alice.ID, bob.ID)

	require.NoError(t, err)
	assert.Equal(t, bob.ID, conversation.With.ID)
	assert.Equal(t, models.RoleTeacher, conversation.With.Role)
	require.Len(t, conversation.Messages, 4)
	assert.True(t, conversation.Messages[1].IsRead)
	assert.True(t, conversation.Messages[2].IsRead)
	// messages alice sent stay unread until bob opens the chat
	assert.False(t, conversation.Messages[3].IsRead)
	f.repo.chats.AssertExpectations(t)
}

func TestChatService_MarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("marks messages from the other user", func(t *testing.T) {
		f := newChatServiceFixture(t)
		chat := existingChat(message(alice, bob, "a", false), message(alice, bob, "b", false))
		f.repo.chats.On("GetByID", ctx, (*gorm.DB)(nil), chat.ID, true).Return(chat, nil)
		f.repo.chats.On("Save", ctx, (*gorm.DB)(nil), chat).Return(nil)

		marked, err := f.service.MarkRead(ctx, bob.ID, alice.ID)

		require.NoError(t, err)
		assert.Equal(t, 2, marked)
		assert.Zero(t, chat.UnreadFor(bob.ID))
	})

	t.Run("no chat yet", func(t *testing.T) {
		f := newChatServiceFixture(t)
		f.repo.chats.On("GetByID", ctx, (*gorm.DB)(nil), models.ChatID(alice.ID, bob.ID), true).Return(nil, gorm.ErrRecordNotFound)

		marked, err := f.service.MarkRead(ctx, bob.ID, alice.ID)

		require.NoError(t, err)
		assert.Zero(t, marked)
		f.repo.chats.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestChatService_Unread(t *testing.T) {
	ctx := context.Background()
	f := newChatServiceFixture(t)
	messages := make([]models.ChatMessage, 0, 11)
	for i := 0; i < 10; i++ {
		messages = append(messages, message(alice, bob, fmt.Sprintf("m%d", i), false))
	}
	messages = append(messages, message(bob, alice, "reply", false))
	f.repo.chats.On("ListByParticipant", ctx, (*gorm.DB)(nil), bob.ID).Return([]*models.Chat{existingChat(messages...)}, nil)

	summary, err := f.service.Unread(ctx, bob.ID)

	require.NoError(t, err)
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, "9+", summary.Badge)
	assert.Equal(t, map[string]int{alice.ID: 10}, summary.BySender)
}

func TestChatService_Conversations(t *testing.T) {
	ctx := context.Background()
	f := newChatServiceFixture(t)

	older := existingChat(message(alice, bob, "old", true))
	newer := &models.Chat{
		ID:               models.ChatID(carol.ID, bob.ID),
		ParticipantA:     bob.ID,
		ParticipantB:     carol.ID,
		ParticipantNames: datatypes.JSONMap{carol.ID: carol.FullName()},
		Messages:         []models.ChatMessage{message(carol, bob, "new", false)},
		LastUpdated:      older.LastUpdated.Add(time.Hour),
	}
	f.repo.chats.On("ListByParticipant", ctx, (*gorm.DB)(nil), bob.ID).Return([]*models.Chat{older, newer}, nil)
	f.repo.users.On("GetByIDs", ctx, (*gorm.DB)(nil), []string{alice.ID, carol.ID}).Return([]*models.User{alice}, nil)

	conversations, err := f.service.Conversations(ctx, bob.ID)

	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, carol.ID, conversations[0].With.ID)
	// carol's profile was not loaded; the stored name is used
	assert.Equal(t, "Carol Le", conversations[0].With.Name)
	assert.Equal(t, 1, conversations[0].Unread)
	require.NotNil(t, conversations[0].LastMessage)
	assert.Equal(t, "new", conversations[0].LastMessage.Text)
	assert.Equal(t, models.RoleStudent, conversations[1].With.Role)
	assert.Zero(t, conversations[1].Unread)
}
