package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vidinfra/docvault/internal/config"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/kafka"
	"github.com/vidinfra/docvault/internal/logger"
)

type EventsHandler struct {
	monitor *kafka.MonitoringService
	config  *config.Configuration
	log     *logger.Logger
}

// NewEventsHandler accepts a nil monitor when audit events do not go
// through kafka.
func NewEventsHandler(monitor *kafka.MonitoringService, cfg *config.Configuration, log *logger.Logger) *EventsHandler {
	return &EventsHandler{monitor: monitor, config: cfg, log: log}
}

// @Summary Audit consumer lag
// @Tags Events
// @Produce json
// @Success 200 {object} kafka.ConsumerLag
// @Failure 400 {object} ierr.ErrorResponse
// @Router /events/lag [get]
func (h *EventsHandler) GetConsumerLag(c *gin.Context) {
	if h.monitor == nil {
		c.Error(ierr.NewError("consumer lag requires the kafka pubsub").
			WithHint("Consumer lag is only available when audit events go through kafka").
			Mark(ierr.ErrInvalidOperation))
		return
	}

	lag, err := h.monitor.GetConsumerLag(c.Request.Context(), h.config.Events.Topic, h.config.Kafka.ConsumerGroup)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Could not read consumer lag").
			Mark(ierr.ErrBroker))
		return
	}

	c.JSON(http.StatusOK, lag)
}
