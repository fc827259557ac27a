package audit

import (
	"time"

	ierr "github.com/vidinfra/docvault/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Model carries the audit and soft-delete bookkeeping of a document. Domain
// types embed it with `bson:",inline"` and are handed to NewCollection, which
// enforces the lifecycle rules around every storage call.
type Model struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	CreatedBy  *string       `bson:"created_by" json:"created_by,omitempty"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`
	UpdatedBy  *string       `bson:"updated_by" json:"updated_by,omitempty"`
	DeletedAt  *time.Time    `bson:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy  *string       `bson:"deleted_by" json:"deleted_by,omitempty"`
	RestoredBy *string       `bson:"restored_by" json:"restored_by,omitempty"`
	Version    int64         `bson:"version" json:"version"`

	// snapshot is the stored form of the document as last loaded or written
	// through a Collection; Save diffs against it.
	snapshot bson.Raw
}

// Record is implemented by any struct embedding Model
type Record interface {
	AuditModel() *Model
}

// AuditModel gives the collection access to the embedded bookkeeping
func (m *Model) AuditModel() *Model {
	return m
}

// AuditInfo is a read-only view over the audit fields
type AuditInfo struct {
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy *string    `json:"created_by,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	UpdatedBy *string    `json:"updated_by,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *string    `json:"deleted_by,omitempty"`
	Version   int64      `json:"version"`
	IsDeleted bool       `json:"is_deleted"`
}

// IsDeleted reports whether the record is soft-deleted
func (m *Model) IsDeleted() bool {
	return m.DeletedAt != nil
}

// IsNew reports whether the record was never persisted
func (m *Model) IsNew() bool {
	return m.ID.IsZero()
}

// AuditInfo returns a snapshot of the audit fields, computed on every call
func (m *Model) AuditInfo() AuditInfo {
	return AuditInfo{
		CreatedAt: m.CreatedAt,
		CreatedBy: copyString(m.CreatedBy),
		UpdatedAt: m.UpdatedAt,
		UpdatedBy: copyString(m.UpdatedBy),
		DeletedAt: copyTime(m.DeletedAt),
		DeletedBy: copyString(m.DeletedBy),
		Version:   m.Version,
		IsDeleted: m.IsDeleted(),
	}
}

// markDeleted applies the live -> deleted transition in memory
func (m *Model) markDeleted(actor *string, now time.Time) error {
	if m.IsDeleted() {
		return alreadyDeleted(m.ID)
	}
	m.DeletedAt = &now
	m.DeletedBy = copyString(actor)
	m.UpdatedAt = now
	if actor != nil {
		m.UpdatedBy = copyString(actor)
	}
	m.Version++
	return nil
}

// markRestored applies the deleted -> live transition in memory. restoredBy
// is left untouched when no actor is given.
func (m *Model) markRestored(actor *string, now time.Time) error {
	if !m.IsDeleted() {
		return notDeleted(m.ID)
	}
	m.DeletedAt = nil
	m.DeletedBy = nil
	if actor != nil {
		m.RestoredBy = copyString(actor)
		m.UpdatedBy = copyString(actor)
	}
	m.UpdatedAt = now
	m.Version++
	return nil
}

func alreadyDeleted(id bson.ObjectID) error {
	return ierr.NewError("record already deleted").
		WithHint("The record is already deleted, restore it first").
		WithReportableDetails(map[string]any{"id": id.Hex()}).
		Mark(ierr.ErrAlreadyDeleted)
}

func notDeleted(id bson.ObjectID) error {
	return ierr.NewError("record not deleted").
		WithHint("Only deleted records can be restored").
		WithReportableDetails(map[string]any{"id": id.Hex()}).
		Mark(ierr.ErrNotDeleted)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
