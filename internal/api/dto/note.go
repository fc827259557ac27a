package dto

import (
	"time"

	"github.com/samber/lo"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/domain/note"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/types"
	"github.com/vidinfra/docvault/internal/validator"
)

type CreateNoteRequest struct {
	Title string   `json:"title" validate:"required,max=200"`
	Body  string   `json:"body" validate:"max=20000"`
	Tags  []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,tagname"`
}

func (r *CreateNoteRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreateNoteRequest) ToNote() *note.Note {
	return &note.Note{
		Title: r.Title,
		Body:  r.Body,
		Tags:  normalizeTags(r.Tags),
	}
}

// UpdateNoteRequest changes only the fields that are present
type UpdateNoteRequest struct {
	Title *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Body  *string   `json:"body,omitempty" validate:"omitempty,max=20000"`
	Tags  *[]string `json:"tags,omitempty" validate:"omitempty,max=20,dive,tagname"`
}

func (r *UpdateNoteRequest) Validate() error {
	if r.Title == nil && r.Body == nil && r.Tags == nil {
		return ierr.NewError("empty update").
			WithHint("At least one of title, body or tags must be given").
			Mark(ierr.ErrValidation)
	}
	return validator.ValidateRequest(r)
}

// Fields returns the stored field names and values to set
func (r *UpdateNoteRequest) Fields() map[string]any {
	fields := make(map[string]any, 3)
	if r.Title != nil {
		fields["title"] = *r.Title
	}
	if r.Body != nil {
		fields["body"] = *r.Body
	}
	if r.Tags != nil {
		fields["tags"] = normalizeTags(*r.Tags)
	}
	return fields
}

// ReplaceNoteRequest is the full new content of a note
type ReplaceNoteRequest struct {
	CreateNoteRequest
}

// BulkNoteRequest selects notes by tag
type BulkNoteRequest struct {
	Tag string `json:"tag" validate:"required,tagname"`
}

func (r *BulkNoteRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// PurgeDeletedNotesRequest selects notes that have sat in the trash for at
// least OlderThan, e.g. "720h"
type PurgeDeletedNotesRequest struct {
	OlderThan string `json:"older_than" form:"older_than" validate:"required"`
}

// Cutoff parses OlderThan and returns the deletion time notes must predate
func (r *PurgeDeletedNotesRequest) Cutoff(now time.Time) (time.Time, error) {
	if err := validator.ValidateRequest(r); err != nil {
		return time.Time{}, err
	}
	d, err := time.ParseDuration(r.OlderThan)
	if err != nil || d < 0 {
		return time.Time{}, ierr.NewErrorf("invalid older_than %q", r.OlderThan).
			WithHint("older_than must be a non-negative duration such as 720h").
			WithReportableDetails(map[string]any{"older_than": r.OlderThan}).
			Mark(ierr.ErrValidation)
	}
	return now.Add(-d), nil
}

type PurgeDeletedNotesResponse struct {
	Before time.Time `json:"before"`
	Purged int64     `json:"purged"`
}

type BulkNoteResponse struct {
	Tag      string `json:"tag"`
	Modified int64  `json:"modified"`
}

type NoteResponse struct {
	*note.Note
	IsDeleted bool `json:"is_deleted"`
}

func ToNoteResponse(n *note.Note) *NoteResponse {
	return &NoteResponse{Note: n, IsDeleted: n.IsDeleted()}
}

// ListNotesResponse represents a paginated list of notes
type ListNotesResponse = types.ListResponse[*NoteResponse]

type CountNotesResponse struct {
	Count int64 `json:"count"`
}

type NoteTagsResponse struct {
	Tags []string `json:"tags"`
}

type NoteTagStatsResponse struct {
	Items []*note.TagCount `json:"items"`
}

type NoteAuditResponse struct {
	ID string `json:"id"`
	audit.AuditInfo
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return lo.Uniq(tags)
}
