package internal

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

// ReprocessDLQ moves parked audit events from the dead letter topic back to
// the events topic. It stops after REPROCESS_LIMIT messages (default 1000)
// or once the DLQ has been idle for REPROCESS_IDLE (default 10s).
func ReprocessDLQ() error {
	limit := 1000
	if raw := os.Getenv("REPROCESS_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid REPROCESS_LIMIT %q", raw)
		}
		limit = n
	}
	idle := 10 * time.Second
	if raw := os.Getenv("REPROCESS_IDLE"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid REPROCESS_IDLE %q", raw)
		}
		idle = d
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := e.pubsub.Subscribe(ctx, e.cfg.Events.DLQTopic)
	if err != nil {
		return err
	}

	moved := 0
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for moved < limit {
		select {
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			out := message.NewMessage(msg.UUID, msg.Payload)
			out.Metadata = msg.Metadata.Copy()
			if err := e.pubsub.Publish(ctx, e.cfg.Events.Topic, out); err != nil {
				msg.Nack()
				return fmt.Errorf("republishing %s: %w", msg.UUID, err)
			}
			msg.Ack()
			moved++
			timer.Reset(idle)
		case <-timer.C:
			e.log.Infow("dead letter topic idle, stopping", "moved", moved)
			return nil
		}
	}

	e.log.Infow("reprocessed dead letter messages", "moved", moved)
	return nil
}
