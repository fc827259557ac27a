package memstore

import (
	"bytes"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// normalize turns any filter, update or stage into its decoded BSON form so
// it compares with stored values.
func normalize(v any) (bson.D, error) {
	switch t := v.(type) {
	case nil:
		return bson.D{}, nil
	case bson.Raw:
		return decode(t)
	case []byte:
		return decode(bson.Raw(t))
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// normalizeValue decodes a single value the same way
func normalizeValue(v any) (any, error) {
	d, err := normalize(bson.D{{Key: "v", Value: v}})
	if err != nil {
		return nil, err
	}
	return d[0].Value, nil
}

func decode(raw bson.Raw) (bson.D, error) {
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func get(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// resolve walks a dotted path. Arrays on the way are flattened so a path
// through a list of documents yields every reachable value.
func resolve(v any, path string) ([]any, bool) {
	if path == "" {
		return []any{v}, true
	}
	head, rest, _ := strings.Cut(path, ".")

	switch t := v.(type) {
	case bson.D:
		child, ok := get(t, head)
		if !ok {
			return nil, false
		}
		if rest == "" {
			return []any{child}, true
		}
		return resolve(child, rest)
	case bson.A:
		var out []any
		found := false
		for _, item := range t {
			if vals, ok := resolve(item, path); ok {
				out = append(out, vals...)
				found = true
			}
		}
		return out, found
	}
	return nil, false
}

func isNull(v any) bool {
	switch v.(type) {
	case nil, bson.Null, bson.Undefined:
		return true
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func equal(a, b any) bool {
	if isNull(a) || isNull(b) {
		return isNull(a) && isNull(b)
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case bson.D:
		y, ok := b.(bson.D)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i].Key != y[i].Key || !equal(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	case bson.A:
		y, ok := b.(bson.A)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case bson.ObjectID:
		y, ok := b.(bson.ObjectID)
		return ok && x == y
	case bson.Binary:
		y, ok := b.(bson.Binary)
		return ok && x.Subtype == y.Subtype && bytes.Equal(x.Data, y.Data)
	}
	return a == b
}

// rank orders BSON types the way the server does for mixed comparisons
func rank(v any) int {
	if isNull(v) {
		return 1
	}
	if _, ok := number(v); ok {
		return 2
	}
	switch v.(type) {
	case string:
		return 3
	case bson.D:
		return 4
	case bson.A:
		return 5
	case bson.Binary:
		return 6
	case bson.ObjectID:
		return 7
	case bool:
		return 8
	case bson.DateTime:
		return 9
	}
	return 10
}

// compare returns -1, 0 or 1
func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return sign(ra - rb)
	}
	switch ra {
	case 1:
		return 0
	case 2:
		x, _ := number(a)
		y, _ := number(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case 3:
		return strings.Compare(a.(string), b.(string))
	case 7:
		x, y := a.(bson.ObjectID), b.(bson.ObjectID)
		return bytes.Compare(x[:], y[:])
	case 8:
		x, y := a.(bool), b.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	case 9:
		x, y := a.(bson.DateTime), b.(bson.DateTime)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	if equal(a, b) {
		return 0
	}
	return -1
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
