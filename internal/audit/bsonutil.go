package audit

import (
	"bytes"
	"strings"
	"time"

	ierr "github.com/vidinfra/docvault/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// toDoc canonicalizes filters, payloads and records into an ordered document
func toDoc(v any) (bson.D, error) {
	switch t := v.(type) {
	case nil:
		return bson.D{}, nil
	case bson.D:
		out := make(bson.D, len(t))
		copy(out, t)
		return out, nil
	case bson.Raw:
		return rawToDoc(t)
	}

	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("The document could not be encoded").
			Mark(ierr.ErrValidation)
	}
	return rawToDoc(raw)
}

func rawToDoc(raw bson.Raw) (bson.D, error) {
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The document could not be decoded").
			Mark(ierr.ErrValidation)
	}
	return d, nil
}

func lookup(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func without(d bson.D, keys ...string) bson.D {
	out := make(bson.D, 0, len(d))
	for _, e := range d {
		skip := false
		for _, k := range keys {
			if e.Key == k {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, e)
		}
	}
	return out
}

// set replaces key in d, appending it when absent
func set(d bson.D, key string, value any) bson.D {
	for i, e := range d {
		if e.Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: value})
}

var (
	liveFilter    = bson.D{{Key: FieldDeletedAt, Value: nil}}
	deletedFilter = bson.D{{Key: FieldDeletedAt, Value: bson.D{{Key: "$ne", Value: nil}}}}
)

// restrict ands filter with the deletion state selected by scope
func restrict(filter bson.D, scope Scope) bson.D {
	var cond bson.D
	switch scope {
	case ScopeLive:
		cond = liveFilter
	case ScopeDeleted:
		cond = deletedFilter
	default:
		return filter
	}
	if len(filter) == 0 {
		return cond
	}
	return bson.D{{Key: "$and", Value: bson.A{filter, cond}}}
}

// isNull reports whether a decoded value stands for an unset field
func isNull(v any) bool {
	switch v.(type) {
	case nil, bson.Null, bson.Undefined:
		return true
	}
	return false
}

// rawEqual compares two elements of stored documents. A missing field and
// an explicit null are the same thing.
func rawEqual(a, b bson.RawValue, aok, bok bool) bool {
	aNull := !aok || a.Type == bson.TypeNull || a.Type == bson.TypeUndefined
	bNull := !bok || b.Type == bson.TypeNull || b.Type == bson.TypeUndefined
	if aNull || bNull {
		return aNull == bNull
	}
	return a.Type == b.Type && bytes.Equal(a.Value, b.Value)
}

// contentChanged reports whether any non-audit field differs between two
// stored forms of the same record.
func contentChanged(prev, cur bson.Raw) (bool, error) {
	keys := map[string]struct{}{}
	for _, doc := range []bson.Raw{prev, cur} {
		elems, err := doc.Elements()
		if err != nil {
			return false, ierr.WithError(err).
				WithHint("The stored document is malformed").
				Mark(ierr.ErrDatabase)
		}
		for _, e := range elems {
			keys[e.Key()] = struct{}{}
		}
	}

	for key := range keys {
		if key == FieldID || isAuditField(key) {
			continue
		}
		a, aerr := prev.LookupErr(key)
		b, berr := cur.LookupErr(key)
		if !rawEqual(a, b, aerr == nil, berr == nil) {
			return true, nil
		}
	}
	return false, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// normalize returns t in the precision the store keeps
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func isOperator(key string) bool {
	return strings.HasPrefix(key, "$")
}
