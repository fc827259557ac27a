package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/pubsub/memory"
	"github.com/vidinfra/docvault/internal/types"
)

func TestPublishRoundTrip(t *testing.T) {
	ps := memory.NewPubSub(logger.NewNopLogger())
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := NewAuditPublisher(ps, "audit_events", logger.NewNopLogger())
	event := audit.Event{
		ID:         "evt_1",
		Collection: "notes",
		Action:     audit.ActionDeleted,
		DocumentID: "65f000000000000000000001",
		Matched:    1,
		Modified:   1,
		Actor:      lo.ToPtr("user-a"),
		OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(types.SetRequestID(ctx, "req-1"), event))

	messages, err := ps.Subscribe(ctx, "audit_events")
	require.NoError(t, err)

	select {
	case msg := <-messages:
		defer msg.Ack()
		assert.Equal(t, "evt_1", msg.UUID)
		assert.Equal(t, "notes", msg.Metadata.Get(MetadataCollection))
		assert.Equal(t, "deleted", msg.Metadata.Get(MetadataAction))
		assert.Equal(t, "req-1", msg.Metadata.Get(MetadataRequestID))

		got, err := Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, event, got)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestNewEventSinkDisabled(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Events.Enabled = false

	sink := NewEventSink(cfg, memory.NewPubSub(logger.NewNopLogger()), logger.NewNopLogger())
	assert.Nil(t, sink)

	cfg.Events.Enabled = true
	sink = NewEventSink(cfg, memory.NewPubSub(logger.NewNopLogger()), logger.NewNopLogger())
	assert.NotNil(t, sink)
}
