package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event names published by the application.
const (
	PostCreated      = "post.created"
	PostDeleted      = "post.deleted"
	PostExpired      = "post.expired"
	MessageSent      = "chat.message.sent"
	SessionDestroyed = "chat.session.destroyed"
)

// Publisher emits domain lifecycle events. Implementations must be
// safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, name, key string, data any) error
}

// Producer is the broker-facing half, satisfied by the Kafka producer.
type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// BrokerPublisher wraps events into CloudEvents-style JSON envelopes
// and hands them to a broker producer. Topic is derived from the event
// name base: "post.deleted" goes to "<prefix>post.events.v1".
type BrokerPublisher struct {
	Producer    Producer
	TopicPrefix string
	Source      string
	Logger      *slog.Logger
}

func (p BrokerPublisher) Publish(ctx context.Context, name, key string, data any) error {
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            name + ".v1",
		"source":          p.source(),
		"time":            time.Now().UTC(),
		"datacontenttype": "application/json",
		"data":            data,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	if err := p.Producer.Publish(ctx, p.topicFor(name), key, payload, headers); err != nil {
		if p.Logger != nil {
			p.Logger.Warn("event publish failed", "event", name, "key", key, "error", err)
		}
		return err
	}
	return nil
}

func (p BrokerPublisher) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if p.TopicPrefix != "" {
		topic = p.TopicPrefix + topic
	}
	return topic
}

func (p BrokerPublisher) source() string {
	if p.Source != "" {
		return p.Source
	}
	return "app://halfandhalf"
}

// Nop drops all events; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
