package memstore

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// applyUpdate returns doc with the update operators applied
func applyUpdate(doc, update bson.D) (bson.D, error) {
	out := clone(doc).(bson.D)
	for _, e := range update {
		fields, ok := e.Value.(bson.D)
		if !ok {
			return nil, fmt.Errorf("%s expects a document", e.Key)
		}
		for _, f := range fields {
			if f.Key == "_id" || strings.HasPrefix(f.Key, "_id.") {
				return nil, fmt.Errorf("the _id field is immutable")
			}
			var err error
			switch e.Key {
			case "$set":
				out, err = setPath(out, f.Key, f.Value)
			case "$unset":
				out = unsetPath(out, f.Key)
			case "$inc":
				out, err = incPath(out, f.Key, f.Value)
			case "$push":
				out, err = pushPath(out, f.Key, f.Value, false)
			case "$addToSet":
				out, err = pushPath(out, f.Key, f.Value, true)
			case "$pull":
				out, err = pullPath(out, f.Key, f.Value)
			case "$rename":
				target, isString := f.Value.(string)
				if !isString {
					return nil, fmt.Errorf("$rename expects a field name")
				}
				if vals, found := resolve(out, f.Key); found && len(vals) == 1 {
					out = unsetPath(out, f.Key)
					out, err = setPath(out, target, vals[0])
				}
			default:
				return nil, fmt.Errorf("unsupported update operator %s", e.Key)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func setPath(d bson.D, path string, value any) (bson.D, error) {
	head, rest, nested := strings.Cut(path, ".")
	for i, e := range d {
		if e.Key != head {
			continue
		}
		if !nested {
			d[i].Value = value
			return d, nil
		}
		child, ok := e.Value.(bson.D)
		if !ok {
			if !isNull(e.Value) {
				return nil, fmt.Errorf("cannot create field %s in a non-document", path)
			}
			child = bson.D{}
		}
		child, err := setPath(child, rest, value)
		if err != nil {
			return nil, err
		}
		d[i].Value = child
		return d, nil
	}
	if !nested {
		return append(d, bson.E{Key: head, Value: value}), nil
	}
	child, err := setPath(bson.D{}, rest, value)
	if err != nil {
		return nil, err
	}
	return append(d, bson.E{Key: head, Value: child}), nil
}

func unsetPath(d bson.D, path string) bson.D {
	head, rest, nested := strings.Cut(path, ".")
	for i, e := range d {
		if e.Key != head {
			continue
		}
		if !nested {
			return append(d[:i:i], d[i+1:]...)
		}
		if child, ok := e.Value.(bson.D); ok {
			d[i].Value = unsetPath(child, rest)
		}
		return d
	}
	return d
}

func incPath(d bson.D, path string, delta any) (bson.D, error) {
	if _, ok := number(delta); !ok {
		return nil, fmt.Errorf("$inc expects a number for %s", path)
	}
	current, found := resolve(d, path)
	if !found || len(current) == 0 || isNull(current[0]) {
		return setPath(d, path, delta)
	}
	sum, err := add(current[0], delta)
	if err != nil {
		return nil, fmt.Errorf("cannot increment %s: %w", path, err)
	}
	return setPath(d, path, sum)
}

// add keeps the widest integer type and falls back to float64
func add(a, b any) (any, error) {
	switch x := a.(type) {
	case int32:
		switch y := b.(type) {
		case int32:
			return x + y, nil
		case int64:
			return int64(x) + y, nil
		}
	case int64:
		switch y := b.(type) {
		case int32:
			return x + int64(y), nil
		case int64:
			return x + y, nil
		}
	}
	x, ok := number(a)
	if !ok {
		return nil, fmt.Errorf("not a number")
	}
	y, _ := number(b)
	return x + y, nil
}

func pushPath(d bson.D, path string, value any, unique bool) (bson.D, error) {
	items := []any{value}
	if each, ok := value.(bson.D); ok && len(each) == 1 && each[0].Key == "$each" {
		arr, isArr := each[0].Value.(bson.A)
		if !isArr {
			return nil, fmt.Errorf("$each expects an array")
		}
		items = arr
	}

	var arr bson.A
	if current, found := resolve(d, path); found && len(current) == 1 && !isNull(current[0]) {
		existing, ok := current[0].(bson.A)
		if !ok {
			return nil, fmt.Errorf("field %s is not an array", path)
		}
		arr = append(arr, existing...)
	}
	for _, item := range items {
		if unique && contains(arr, item) {
			continue
		}
		arr = append(arr, item)
	}
	return setPath(d, path, arr)
}

func pullPath(d bson.D, path string, value any) (bson.D, error) {
	current, found := resolve(d, path)
	if !found || len(current) != 1 {
		return d, nil
	}
	existing, ok := current[0].(bson.A)
	if !ok {
		return d, nil
	}
	kept := bson.A{}
	for _, item := range existing {
		if !equal(item, value) {
			kept = append(kept, item)
		}
	}
	return setPath(d, path, kept)
}

func contains(arr bson.A, v any) bool {
	for _, item := range arr {
		if equal(item, v) {
			return true
		}
	}
	return false
}

func clone(v any) any {
	switch t := v.(type) {
	case bson.D:
		out := make(bson.D, len(t))
		for i, e := range t {
			out[i] = bson.E{Key: e.Key, Value: clone(e.Value)}
		}
		return out
	case bson.A:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = clone(item)
		}
		return out
	}
	return v
}
