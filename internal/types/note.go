package types

import (
	"github.com/vidinfra/docvault/internal/validator"
)

// NoteFilter narrows note listings
type NoteFilter struct {
	*QueryFilter
	DeletedScope

	NoteIDs []string `json:"note_ids,omitempty" form:"note_ids" validate:"omitempty,dive,objectid"`
	Tag     string   `json:"tag,omitempty" form:"tag" validate:"omitempty,tagname"`
}

// NewNoteFilter returns a filter with the default paging
func NewNoteFilter() *NoteFilter {
	return &NoteFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *NoteFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if err := f.DeletedScope.Validate(); err != nil {
		return err
	}
	return validator.ValidateRequest(f)
}
