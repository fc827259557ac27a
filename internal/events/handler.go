package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/metrics"
	"github.com/vidinfra/docvault/internal/publisher"
	"github.com/vidinfra/docvault/internal/pubsub"
	"github.com/vidinfra/docvault/internal/pubsub/router"
	"github.com/vidinfra/docvault/internal/sentry"
)

const handlerName = "audit_event_log"

// Handler consumes audit events and records them in the structured log.
// It is the reference consumer; downstream systems subscribe to the same topic.
type Handler struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
	sentry  *sentry.Service
}

func NewHandler(log *logger.Logger, m *metrics.Metrics, sentry *sentry.Service) *Handler {
	return &Handler{
		logger:  log.With("handler", handlerName),
		metrics: m,
		sentry:  sentry,
	}
}

// Register subscribes the handler to the events topic
func (h *Handler) Register(cfg *config.Configuration, r *router.Router, subscriber pubsub.Subscriber) {
	r.AddNoPublishHandler(handlerName, cfg.Events.Topic, subscriber, h.Handle)
}

// Handle decodes one message. Undecodable payloads are dropped with an error
// log since retrying cannot fix them.
func (h *Handler) Handle(msg *message.Message) error {
	event, err := publisher.Decode(msg)
	if err != nil {
		h.logger.Errorw("dropping undecodable audit event",
			"message_uuid", msg.UUID,
			"error", err,
		)
		return nil
	}

	span, _ := h.sentry.MonitorEventProcessing(msg.Context(), string(event.Action), event.OccurredAt, map[string]interface{}{
		"collection":  event.Collection,
		"document_id": event.DocumentID,
	})
	defer sentry.FinishSpan(span)

	h.logger.Infow("audit event",
		"event_id", event.ID,
		"collection", event.Collection,
		"action", event.Action,
		"document_id", event.DocumentID,
		"matched", event.Matched,
		"modified", event.Modified,
		"actor", actorOf(event),
		"occurred_at", event.OccurredAt,
		"request_id", msg.Metadata.Get(publisher.MetadataRequestID),
	)
	h.metrics.IncEventConsumed(event)
	return nil
}

func actorOf(event audit.Event) string {
	if event.Actor == nil {
		return ""
	}
	return *event.Actor
}
