package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types emitted by the auth subsystem. The export/analysis
// pipeline consumes these; it only relies on a stable user/session
// identity, so payloads carry ids and timestamps, never secrets.
const (
	EventTwoFactorEnabled = "auth.2fa.enabled"
	EventSessionRevoked   = "auth.session.revoked"
)

// CloudEvent is the CloudEvents v1.0 envelope used on the wire.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data,omitempty"`
}

// Publisher emits security events. Publishing is strictly best-effort:
// implementations log failures and never propagate them to the caller.
type Publisher interface {
	Publish(ctx context.Context, eventType string, subject string, data interface{})
	Close() error
}

// KafkaPublisher writes CloudEvents to a single topic via kafka-go.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
	source string
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: 2 * time.Second,
	}
	return &KafkaPublisher{writer: writer, logger: logger, source: "/auth"}
}

// Publish emits one event. Failures are logged and swallowed; the
// primary operation that triggered the event has already completed.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, subject string, data interface{}) {
	event := CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          p.source,
		Subject:         subject,
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal security event", zap.String("type", eventType), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(subject),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish security event",
			zap.String("type", eventType),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops all events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, interface{}) {}
func (NoopPublisher) Close() error                                        { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NoopPublisher{}
)
