package memstore

import (
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func runPipeline(docs []bson.D, pipeline bson.A) ([]bson.D, error) {
	for _, s := range pipeline {
		stage, ok := s.(bson.D)
		if !ok || len(stage) != 1 {
			return nil, fmt.Errorf("a pipeline stage must be a single-key document")
		}
		var err error
		switch stage[0].Key {
		case "$match":
			docs, err = stageMatch(docs, stage[0].Value)
		case "$unwind":
			docs, err = stageUnwind(docs, stage[0].Value)
		case "$group":
			docs, err = stageGroup(docs, stage[0].Value)
		case "$sort":
			spec, isDoc := stage[0].Value.(bson.D)
			if !isDoc {
				return nil, fmt.Errorf("$sort expects a document")
			}
			sortDocs(docs, spec)
		case "$skip":
			n, _ := number(stage[0].Value)
			if int(n) >= len(docs) {
				docs = nil
			} else {
				docs = docs[int(n):]
			}
		case "$limit":
			n, _ := number(stage[0].Value)
			if int(n) < len(docs) {
				docs = docs[:int(n)]
			}
		case "$count":
			name, isString := stage[0].Value.(string)
			if !isString {
				return nil, fmt.Errorf("$count expects a field name")
			}
			docs = []bson.D{{{Key: name, Value: int32(len(docs))}}}
		case "$project":
			spec, isDoc := stage[0].Value.(bson.D)
			if !isDoc {
				return nil, fmt.Errorf("$project expects a document")
			}
			for i := range docs {
				docs[i] = project(docs[i], spec)
			}
		default:
			return nil, fmt.Errorf("unsupported pipeline stage %s", stage[0].Key)
		}
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func stageMatch(docs []bson.D, v any) ([]bson.D, error) {
	filter, ok := v.(bson.D)
	if !ok {
		return nil, fmt.Errorf("$match expects a document")
	}
	var out []bson.D
	for _, doc := range docs {
		hit, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if hit {
			out = append(out, doc)
		}
	}
	return out, nil
}

func stageUnwind(docs []bson.D, v any) ([]bson.D, error) {
	path, ok := v.(string)
	if !ok {
		if spec, isDoc := v.(bson.D); isDoc {
			p, _ := get(spec, "path")
			path, ok = p.(string)
		}
	}
	if !ok || !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("$unwind expects a field path")
	}
	field := strings.TrimPrefix(path, "$")

	var out []bson.D
	for _, doc := range docs {
		vals, found := resolve(doc, field)
		if !found || len(vals) != 1 {
			continue
		}
		arr, isArr := vals[0].(bson.A)
		if !isArr {
			if !isNull(vals[0]) {
				out = append(out, doc)
			}
			continue
		}
		for _, item := range arr {
			unwound, err := setPath(clone(doc).(bson.D), field, item)
			if err != nil {
				return nil, err
			}
			out = append(out, unwound)
		}
	}
	return out, nil
}

func stageGroup(docs []bson.D, v any) ([]bson.D, error) {
	spec, ok := v.(bson.D)
	if !ok {
		return nil, fmt.Errorf("$group expects a document")
	}
	idExpr, ok := get(spec, "_id")
	if !ok {
		return nil, fmt.Errorf("$group requires an _id")
	}

	var groups []bson.D
	for _, doc := range docs {
		key := eval(doc, idExpr)
		idx := -1
		for i, g := range groups {
			if equal(g[0].Value, key) {
				idx = i
				break
			}
		}
		if idx < 0 {
			g := bson.D{{Key: "_id", Value: key}}
			for _, acc := range spec {
				if acc.Key != "_id" {
					g = append(g, bson.E{Key: acc.Key, Value: nil})
				}
			}
			groups = append(groups, g)
			idx = len(groups) - 1
		}

		pos := 0
		for _, acc := range spec {
			if acc.Key == "_id" {
				continue
			}
			pos++
			expr, isDoc := acc.Value.(bson.D)
			if !isDoc || len(expr) != 1 {
				return nil, fmt.Errorf("accumulator %s must be a single operator", acc.Key)
			}
			slot := &groups[idx][pos]
			value := eval(doc, expr[0].Value)
			switch expr[0].Key {
			case "$sum":
				if _, isNum := number(value); !isNum {
					value = int32(0)
				}
				if slot.Value == nil {
					slot.Value = value
				} else {
					sum, err := add(slot.Value, value)
					if err != nil {
						return nil, err
					}
					slot.Value = sum
				}
			case "$first":
				if slot.Value == nil {
					slot.Value = value
				}
			case "$push", "$addToSet":
				arr, _ := slot.Value.(bson.A)
				if expr[0].Key == "$push" || !contains(arr, value) {
					arr = append(arr, value)
				}
				slot.Value = arr
			default:
				return nil, fmt.Errorf("unsupported accumulator %s", expr[0].Key)
			}
		}
	}
	return groups, nil
}

// eval resolves "$field" references and returns literals unchanged
func eval(doc bson.D, expr any) any {
	path, ok := expr.(string)
	if !ok || !strings.HasPrefix(path, "$") {
		return expr
	}
	vals, found := resolve(doc, strings.TrimPrefix(path, "$"))
	if !found || len(vals) == 0 {
		return nil
	}
	return vals[0]
}

func sortDocs(docs []bson.D, spec bson.D) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range spec {
			dir, _ := number(key.Value)
			a := first(docs[i], key.Key)
			b := first(docs[j], key.Key)
			if r := compare(a, b); r != 0 {
				if dir < 0 {
					return r > 0
				}
				return r < 0
			}
		}
		return false
	})
}

func first(doc bson.D, path string) any {
	vals, found := resolve(doc, path)
	if !found || len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// project supports inclusion and exclusion of top-level fields
func project(doc bson.D, spec bson.D) bson.D {
	include := false
	for _, e := range spec {
		if e.Key == "_id" {
			continue
		}
		if n, ok := number(e.Value); ok && n != 0 {
			include = true
		}
		if b, ok := e.Value.(bool); ok && b {
			include = true
		}
	}
	excluded := func(key string) bool {
		for _, e := range spec {
			if e.Key != key {
				continue
			}
			n, isNum := number(e.Value)
			b, isBool := e.Value.(bool)
			return (isNum && n == 0) || (isBool && !b)
		}
		return false
	}
	wanted := func(key string) bool {
		if key == "_id" {
			return !excluded(key)
		}
		if include {
			_, ok := get(spec, key)
			return ok && !excluded(key)
		}
		return !excluded(key)
	}

	out := bson.D{}
	for _, e := range doc {
		if wanted(e.Key) {
			out = append(out, e)
		}
	}
	return out
}
