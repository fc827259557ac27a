package audit

import (
	"context"

	"github.com/vidinfra/docvault/internal/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Scope selects which deletion states a query sees
type Scope int

const (
	// ScopeLive is the default: only documents without deleted_at
	ScopeLive Scope = iota
	// ScopeAll disables the soft-delete restriction
	ScopeAll
	// ScopeDeleted restricts to soft-deleted documents
	ScopeDeleted
)

// Options collects the per-call settings shared by every collection method
type Options struct {
	Scope       Scope
	Actor       *string
	Permanent   bool
	Sort        bson.D
	Limit       int64
	Skip        int64
	Projection  any
	ReturnAfter bool
}

// Option configures a single collection call
type Option func(*Options)

// IncludeDeleted lets the call see soft-deleted documents too
func IncludeDeleted() Option {
	return func(o *Options) {
		o.Scope = ScopeAll
	}
}

// OnlyDeleted restricts a read to soft-deleted documents
func OnlyDeleted() Option {
	return func(o *Options) {
		o.Scope = ScopeDeleted
	}
}

// WithScope sets the scope explicitly, useful when it comes from a request
func WithScope(scope Scope) Option {
	return func(o *Options) {
		o.Scope = scope
	}
}

// WithActor attributes the mutation to actor. An empty actor means none.
func WithActor(actor string) Option {
	return func(o *Options) {
		if actor == "" {
			o.Actor = nil
			return
		}
		o.Actor = &actor
	}
}

// Permanently makes DeleteOne/DeleteMany physically remove documents
// instead of soft-deleting them.
func Permanently() Option {
	return func(o *Options) {
		o.Permanent = true
	}
}

func WithSort(sort bson.D) Option {
	return func(o *Options) {
		o.Sort = sort
	}
}

func WithLimit(limit int64) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

func WithSkip(skip int64) Option {
	return func(o *Options) {
		o.Skip = skip
	}
}

func WithProjection(projection any) Option {
	return func(o *Options) {
		o.Projection = projection
	}
}

// ReturnAfter makes FindOneAndUpdate return the updated document
func ReturnAfter() Option {
	return func(o *Options) {
		o.ReturnAfter = true
	}
}

// ScopeFrom maps the request level flags onto a Scope
func ScopeFrom(s types.DeletedScope) Scope {
	switch {
	case s.OnlyDeleted:
		return ScopeDeleted
	case s.IncludeDeleted:
		return ScopeAll
	default:
		return ScopeLive
	}
}

// buildOptions applies opts over the defaults. The actor falls back to the
// user recorded on the context.
func buildOptions(ctx context.Context, opts []Option) Options {
	o := Options{Scope: ScopeLive}
	if userID := types.GetUserID(ctx); userID != "" {
		o.Actor = &userID
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
