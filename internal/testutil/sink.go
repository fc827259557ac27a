package testutil

import (
	"context"
	"sync"

	"github.com/vidinfra/docvault/internal/audit"
)

// RecordingSink keeps every audit event it sees and forwards it to next
type RecordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	next   audit.EventSink
}

func NewRecordingSink(next audit.EventSink) *RecordingSink {
	return &RecordingSink{next: next}
}

func (r *RecordingSink) Publish(ctx context.Context, event audit.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	if r.next == nil {
		return nil
	}
	return r.next.Publish(ctx, event)
}

// Events returns a copy of the recorded events in publish order
func (r *RecordingSink) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}
