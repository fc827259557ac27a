package config

import (
	"time"

	"github.com/vidinfra/docvault/internal/types"
)

// EventsConfig controls publishing of audit events for every accepted mutation
type EventsConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Topic   string           `mapstructure:"topic" validate:"required_if=Enabled true"`
	PubSub  types.PubSubType `mapstructure:"pubsub" validate:"omitempty,oneof=memory kafka"`
	// DLQTopic receives messages the consumer gave up on
	DLQTopic string `mapstructure:"dlq_topic"`

	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}
