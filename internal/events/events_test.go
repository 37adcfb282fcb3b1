package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryEventPublisher(t *testing.T) {
	publisher := NewMemoryEventPublisher(testLogger())
	ctx := context.Background()

	require.NoError(t, publisher.Publish(ctx, NewDomainEvent(EventTestCreated, TestChangedEvent{TestID: "t1"})))
	require.NoError(t, publisher.Publish(ctx, NewDomainEvent(EventResultSubmitted, ResultSubmittedEvent{TestID: "t1", Score: 50})))

	assert.Len(t, publisher.PublishedEvents(), 2)
	submitted := publisher.EventsOfType(EventResultSubmitted)
	require.Len(t, submitted, 1)
	assert.Equal(t, "educheck-service", submitted[0].Source)
	assert.NotEmpty(t, submitted[0].ID)

	publisher.Clear()
	assert.Empty(t, publisher.PublishedEvents())
}

func TestToMessageSetsMetadata(t *testing.T) {
	event := NewDomainEvent(EventChatMessageSent, ChatMessageSentEvent{ChatID: "a-b"})

	msg, err := toMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.ID, msg.UUID)
	assert.Equal(t, "chat.message_sent", msg.Metadata.Get("event_type"))
	assert.Equal(t, "1.0", msg.Metadata.Get("version"))
	assert.Contains(t, string(msg.Payload), `"chat_id":"a-b"`)
}

func TestLiveBrokerDeliversToSubscriber(t *testing.T) {
	broker := NewLiveBroker(testLogger())
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := broker.Subscribe(ctx, "student-1")
	require.NoError(t, err)

	require.NoError(t, broker.Notify("student-1", LiveEvent{Kind: LiveChatMessage, ChatID: "a-b", Data: "hello"}))
	require.NoError(t, broker.Notify("someone-else", LiveEvent{Kind: LiveChatMessage, ChatID: "c-d"}))

	select {
	case event := <-stream:
		assert.Equal(t, LiveChatMessage, event.Kind)
		assert.Equal(t, "a-b", event.ChatID)
		assert.Equal(t, "hello", event.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("live event not delivered")
	}
}
