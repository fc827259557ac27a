package audit

import (
	"context"
	"time"

	"github.com/vidinfra/docvault/internal/types"
)

// Action names the kind of change an Event reports
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionReplaced Action = "replaced"
	ActionDeleted  Action = "deleted"
	ActionRestored Action = "restored"
	ActionPurged   Action = "purged"
)

// Event is emitted after every accepted mutation that changed something
type Event struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Action     Action    `json:"action"`
	DocumentID string    `json:"document_id,omitempty"`
	Matched    int64     `json:"matched"`
	Modified   int64     `json:"modified"`
	Actor      *string   `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventSink receives change events. Errors are logged by the collection and
// never fail the operation that produced the event.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// Observer is told about the outcome of every collection call
type Observer interface {
	Observe(collection string, op *Operation, err error)
}

func newEvent(collection string, action Action, op *Operation, documentID string, matched, modified int64) Event {
	return Event{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_EVENT),
		Collection: collection,
		Action:     action,
		DocumentID: documentID,
		Matched:    matched,
		Modified:   modified,
		Actor:      copyString(op.Opts.Actor),
		OccurredAt: op.Now,
	}
}
