package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/educheck-service/internal/events"
)

// eventNotifier publishes domain events on behalf of services. Publishing is
// best effort: a broker outage is logged and never fails the request.
type eventNotifier struct {
	publisher events.EventPublisher
	logger    *slog.Logger
}

func newEventNotifier(publisher events.EventPublisher, logger *slog.Logger) *eventNotifier {
	return &eventNotifier{publisher: publisher, logger: logger}
}

func (n *eventNotifier) notify(ctx context.Context, eventType events.EventType, data interface{}, metadata map[string]interface{}) {
	if n == nil || n.publisher == nil {
		return
	}

	event := events.NewDomainEvent(eventType, data)
	for k, v := range metadata {
		event.Metadata[k] = v
	}

	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Warn("Failed to publish domain event",
			"event_type", eventType,
			"event_id", event.ID,
			"error", err)
	}
}
