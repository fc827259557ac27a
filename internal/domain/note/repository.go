package note

import (
	"context"
	"time"

	"github.com/vidinfra/docvault/internal/types"
)

// Repository defines the interface for note data access. Deletes are soft
// unless the method says otherwise.
type Repository interface {
	Create(ctx context.Context, n *Note) error
	Get(ctx context.Context, id string, scope types.DeletedScope) (*Note, error)
	List(ctx context.Context, filter *types.NoteFilter) ([]*Note, error)
	Count(ctx context.Context, filter *types.NoteFilter) (int64, error)
	// Update persists the in-memory state of n
	Update(ctx context.Context, n *Note) error
	// Patch sets the given fields and returns the note as stored afterwards
	Patch(ctx context.Context, id string, fields map[string]any) (*Note, error)
	// Replace swaps the content of a live note, keeping its audit fields
	Replace(ctx context.Context, id string, replacement *Note) error
	Delete(ctx context.Context, n *Note) error
	Restore(ctx context.Context, n *Note) error
	// Purge removes the document for good, deleted or not
	Purge(ctx context.Context, id string) error
	// PurgeDeleted removes every note soft-deleted before the cutoff
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
	BulkDelete(ctx context.Context, tag string) (int64, error)
	BulkRestore(ctx context.Context, tag string) (int64, error)
	Tags(ctx context.Context, scope types.DeletedScope) ([]string, error)
	TagStats(ctx context.Context, scope types.DeletedScope) ([]*TagCount, error)
}
