package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/pubsub"
	"github.com/vidinfra/docvault/internal/types"
)

// Metadata keys set on every published audit event
const (
	MetadataCollection = "collection"
	MetadataAction     = "action"
	MetadataRequestID  = "request_id"
)

// AuditPublisher forwards audit events to the events topic as JSON
type AuditPublisher struct {
	pubsub pubsub.PubSub
	topic  string
	logger *logger.Logger
}

// NewEventSink returns the sink collections publish to, or nil when audit
// events are disabled
func NewEventSink(cfg *config.Configuration, ps pubsub.PubSub, log *logger.Logger) audit.EventSink {
	if !cfg.Events.Enabled || ps == nil {
		log.Info("audit events are disabled")
		return nil
	}
	return NewAuditPublisher(ps, cfg.Events.Topic, log)
}

func NewAuditPublisher(ps pubsub.PubSub, topic string, log *logger.Logger) *AuditPublisher {
	return &AuditPublisher{
		pubsub: ps,
		topic:  topic,
		logger: log,
	}
}

func (p *AuditPublisher) Publish(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set(MetadataCollection, event.Collection)
	msg.Metadata.Set(MetadataAction, string(event.Action))
	if requestID := types.GetRequestID(ctx); requestID != "" {
		msg.Metadata.Set(MetadataRequestID, requestID)
		middleware.SetCorrelationID(requestID, msg)
	}

	if err := p.pubsub.Publish(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}

	p.logger.Debugw("published audit event",
		"event_id", event.ID,
		"collection", event.Collection,
		"action", event.Action,
		"document_id", event.DocumentID,
	)
	return nil
}

// Decode parses a message produced by Publish
func Decode(msg *message.Message) (audit.Event, error) {
	var event audit.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal audit event %s: %w", msg.UUID, err)
	}
	return event, nil
}
