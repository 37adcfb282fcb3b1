package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *DomainEvent) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

// Publish sends a domain event to Kafka
func (p *KafkaEventPublisher) Publish(ctx context.Context, event *DomainEvent) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish domain event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish domain event: %w", err)
	}

	p.logger.Debug("Published domain event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

func toMessage(event *DomainEvent) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal domain event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))
	return msg, nil
}

// MemoryEventPublisher keeps events in memory. Used when publishing is
// disabled and in tests.
type MemoryEventPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
	logger *slog.Logger
}

func NewMemoryEventPublisher(logger *slog.Logger) *MemoryEventPublisher {
	return &MemoryEventPublisher{
		events: make([]DomainEvent, 0),
		logger: logger,
	}
}

func (m *MemoryEventPublisher) Publish(ctx context.Context, event *DomainEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()

	m.logger.Debug("Recorded domain event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

func (m *MemoryEventPublisher) Close() error {
	return nil
}

// PublishedEvents returns a copy of everything published so far
func (m *MemoryEventPublisher) PublishedEvents() []DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DomainEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EventsOfType filters published events by type
func (m *MemoryEventPublisher) EventsOfType(eventType EventType) []DomainEvent {
	var out []DomainEvent
	for _, e := range m.PublishedEvents() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemoryEventPublisher) Clear() {
	m.mu.Lock()
	m.events = make([]DomainEvent, 0)
	m.mu.Unlock()
}
