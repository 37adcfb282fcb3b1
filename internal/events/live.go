package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type LiveEventKind string

const (
	LiveChatMessage LiveEventKind = "chat_message"
	LiveChatRead    LiveEventKind = "chat_read"
)

// LiveEvent is pushed to connected clients of a single user.
type LiveEvent struct {
	Kind   LiveEventKind `json:"kind"`
	ChatID string        `json:"chat_id"`
	Data   interface{}   `json:"data"`
}

// LiveBroker fans out per-user events to open streams inside this process.
type LiveBroker struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

func NewLiveBroker(logger *slog.Logger) *LiveBroker {
	return &LiveBroker{
		// Non-persistent: a per-user topic is dropped when its last subscriber leaves.
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NewSlogLogger(logger)),
		logger: logger,
	}
}

func userTopic(userID string) string {
	return "live." + userID
}

// Notify delivers an event to every open stream of userID. Users without a
// stream drop the event.
func (b *LiveBroker) Notify(userID string, event LiveEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal live event: %w", err)
	}
	if err := b.pubsub.Publish(userTopic(userID), message.NewMessage(uuid.NewString(), payload)); err != nil {
		return fmt.Errorf("failed to publish live event: %w", err)
	}
	return nil
}

// Subscribe opens a stream for userID that ends when ctx is cancelled.
func (b *LiveBroker) Subscribe(ctx context.Context, userID string) (<-chan LiveEvent, error) {
	messages, err := b.pubsub.Subscribe(ctx, userTopic(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to live events: %w", err)
	}

	out := make(chan LiveEvent)
	go func() {
		defer close(out)
		for msg := range messages {
			var event LiveEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("Dropping malformed live event", "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *LiveBroker) Close() error {
	return b.pubsub.Close()
}
