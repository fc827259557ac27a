package memstore

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// matches evaluates a query filter against a stored document. The supported
// operators cover what the audit layer and the repositories issue.
func matches(doc, filter bson.D) (bool, error) {
	for _, e := range filter {
		ok, err := matchElement(doc, e)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchElement(doc bson.D, e bson.E) (bool, error) {
	switch e.Key {
	case "$and", "$or", "$nor":
		clauses, ok := e.Value.(bson.A)
		if !ok {
			return false, fmt.Errorf("%s expects an array", e.Key)
		}
		for _, clause := range clauses {
			sub, ok := clause.(bson.D)
			if !ok {
				return false, fmt.Errorf("%s expects documents", e.Key)
			}
			hit, err := matches(doc, sub)
			if err != nil {
				return false, err
			}
			switch {
			case e.Key == "$and" && !hit:
				return false, nil
			case e.Key == "$or" && hit:
				return true, nil
			case e.Key == "$nor" && hit:
				return false, nil
			}
		}
		return e.Key != "$or", nil
	}
	if strings.HasPrefix(e.Key, "$") {
		return false, fmt.Errorf("unsupported query operator %s", e.Key)
	}

	values, present := resolve(doc, e.Key)
	if cond, ok := e.Value.(bson.D); ok && isOperatorDoc(cond) {
		return matchOperators(values, present, cond)
	}
	return matchEqual(values, present, e.Value), nil
}

func isOperatorDoc(d bson.D) bool {
	return len(d) > 0 && strings.HasPrefix(d[0].Key, "$")
}

// matchEqual follows the server: null matches a missing field, and a scalar
// matches an array containing it.
func matchEqual(values []any, present bool, want any) bool {
	if isNull(want) && !present {
		return true
	}
	for _, v := range values {
		if equal(v, want) {
			return true
		}
		if arr, ok := v.(bson.A); ok {
			if _, wantArr := want.(bson.A); !wantArr {
				for _, item := range arr {
					if equal(item, want) {
						return true
					}
				}
			}
		}
	}
	return false
}

func matchOperators(values []any, present bool, cond bson.D) (bool, error) {
	for _, c := range cond {
		var ok bool
		switch c.Key {
		case "$eq":
			ok = matchEqual(values, present, c.Value)
		case "$ne":
			ok = !matchEqual(values, present, c.Value)
		case "$in":
			arr, isArr := c.Value.(bson.A)
			if !isArr {
				return false, fmt.Errorf("$in expects an array")
			}
			for _, want := range arr {
				if matchEqual(values, present, want) {
					ok = true
					break
				}
			}
		case "$nin":
			arr, isArr := c.Value.(bson.A)
			if !isArr {
				return false, fmt.Errorf("$nin expects an array")
			}
			ok = true
			for _, want := range arr {
				if matchEqual(values, present, want) {
					ok = false
					break
				}
			}
		case "$exists":
			want, _ := c.Value.(bool)
			ok = present == want
		case "$gt", "$gte", "$lt", "$lte":
			ok = matchRange(values, c.Key, c.Value)
		default:
			return false, fmt.Errorf("unsupported query operator %s", c.Key)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchRange(values []any, op string, bound any) bool {
	for _, v := range values {
		if rank(v) != rank(bound) {
			continue
		}
		r := compare(v, bound)
		switch op {
		case "$gt":
			if r > 0 {
				return true
			}
		case "$gte":
			if r >= 0 {
				return true
			}
		case "$lt":
			if r < 0 {
				return true
			}
		case "$lte":
			if r <= 0 {
				return true
			}
		}
	}
	return false
}
