package audit

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Family groups the collection operations that share one set of rules
type Family string

const (
	FamilyRead      Family = "read"
	FamilyAggregate Family = "aggregate"
	FamilyPersist   Family = "persist"
	FamilyUpdate    Family = "update"
	FamilyReplace   Family = "replace"
	FamilyDelete    Family = "delete"
)

// Operation describes one call on a Collection as it travels through the
// rules of its family and on to the store.
type Operation struct {
	Name   string
	Family Family
	Opts   Options
	Now    time.Time

	// Filter is the canonical match criteria, rewritten by the read rules
	Filter bson.D
	// Update holds the canonical operator document for the update and delete families
	Update bson.D
	// Replacement is the full document for the replace family
	Replacement bson.D
	// Pipeline is the aggregation pipeline
	Pipeline bson.A

	// Record is set for the persist family. Previous is its stored form when
	// it already exists and Doc its current marshalled form.
	Record   *Model
	Previous bson.Raw
	Doc      bson.Raw
	// Changed is set by the persist rules when a non-audit field differs
	Changed bool

	// Soft is set once a delete has been translated into an update
	Soft bool
}

// Rule inspects or rewrites an operation before it reaches the store. A
// non-nil error aborts the call before any I/O.
type Rule func(op *Operation) error

func newOperation(name string, family Family, opts Options, now time.Time) *Operation {
	return &Operation{
		Name:   name,
		Family: family,
		Opts:   opts,
		Now:    now,
	}
}
