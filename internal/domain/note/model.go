package note

import (
	"github.com/vidinfra/docvault/internal/audit"
)

// CollectionName is where notes are stored
const CollectionName = "notes"

// Note is a short titled text with free-form tags
type Note struct {
	audit.Model `bson:",inline"`

	Title string   `bson:"title" json:"title"`
	Body  string   `bson:"body" json:"body"`
	Tags  []string `bson:"tags" json:"tags"`
}

// TagCount is one row of the per-tag statistics
type TagCount struct {
	Tag   string `bson:"_id" json:"tag"`
	Count int64  `bson:"count" json:"count"`
}
