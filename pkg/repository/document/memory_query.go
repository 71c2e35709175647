package document

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toDocument round-trips v through BSON so that every value takes its decoded form:
// ints become int32 or int64, times become primitive.DateTime, nested documents bson.M.
func toDocument(v interface{}) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = bson.M{}
	}
	return out, nil
}

func asDoc(v interface{}) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]interface{}:
		return bson.M(t), true
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m, true
	default:
		return nil, false
	}
}

func asOrderedDoc(v interface{}) (bson.D, bool) {
	switch t := v.(type) {
	case bson.D:
		return t, true
	case bson.M:
		if len(t) > 1 {
			// key order of a map is not preserved
			return nil, false
		}
		d := make(bson.D, 0, len(t))
		for k, val := range t {
			d = append(d, bson.E{Key: k, Value: val})
		}
		return d, true
	default:
		return nil, false
	}
}

func asArray(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case bson.A:
		return t, true
	case []interface{}:
		return t, true
	default:
		return nil, false
	}
}

func lookupPath(doc bson.M, path string) (interface{}, bool) {
	return lookup(doc, strings.Split(path, "."))
}

func lookup(value interface{}, parts []string) (interface{}, bool) {
	if len(parts) == 0 {
		return value, true
	}
	if doc, ok := asDoc(value); ok {
		next, ok := doc[parts[0]]
		if !ok {
			return nil, false
		}
		return lookup(next, parts[1:])
	}
	if arr, ok := asArray(value); ok {
		if i, err := strconv.Atoi(parts[0]); err == nil {
			if i < 0 || i >= len(arr) {
				return nil, false
			}
			return lookup(arr[i], parts[1:])
		}
		var collected bson.A
		for _, el := range arr {
			if v, ok := lookup(el, parts); ok {
				collected = append(collected, v)
			}
		}
		if len(collected) == 0 {
			return nil, false
		}
		return collected, true
	}
	return nil, false
}

func matches(doc bson.M, query bson.M) (bool, error) {
	for key, cond := range query {
		switch key {
		case "$and", "$or", "$nor":
			clauses, ok := asArray(cond)
			if !ok || len(clauses) == 0 {
				return false, fmt.Errorf("%s expects a non-empty array", key)
			}
			hits := 0
			for _, clause := range clauses {
				sub, ok := asDoc(clause)
				if !ok {
					return false, fmt.Errorf("%s entries must be documents", key)
				}
				hit, err := matches(doc, sub)
				if err != nil {
					return false, err
				}
				if hit {
					hits++
				}
			}
			switch {
			case key == "$and" && hits != len(clauses),
				key == "$or" && hits == 0,
				key == "$nor" && hits > 0:
				return false, nil
			}
		default:
			if strings.HasPrefix(key, "$") {
				return false, fmt.Errorf("%w: query operator %s", ErrUnsupported, key)
			}
			value, found := lookupPath(doc, key)
			ok, err := matchCondition(value, found, cond)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

func matchCondition(value interface{}, found bool, cond interface{}) (bool, error) {
	ops, ok := asDoc(cond)
	if !ok || !isOperatorDoc(ops) {
		return matchEqual(value, found, cond), nil
	}
	for op, arg := range ops {
		ok, err := matchOperator(value, found, op, arg)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func isOperatorDoc(doc bson.M) bool {
	if len(doc) == 0 {
		return false
	}
	for k := range doc {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func matchOperator(value interface{}, found bool, op string, arg interface{}) (bool, error) {
	switch op {
	case "$eq":
		return matchEqual(value, found, arg), nil
	case "$ne":
		return !matchEqual(value, found, arg), nil
	case "$in", "$nin":
		candidates, ok := asArray(arg)
		if !ok {
			return false, fmt.Errorf("%s expects an array", op)
		}
		hit := false
		for _, c := range candidates {
			if matchEqual(value, found, c) {
				hit = true
				break
			}
		}
		return hit == (op == "$in"), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !found {
			return false, nil
		}
		candidates := []interface{}{value}
		if arr, ok := asArray(value); ok {
			candidates = arr
		}
		for _, c := range candidates {
			cmp, ok := compareValues(c, arg)
			if !ok {
				continue
			}
			if (op == "$gt" && cmp > 0) || (op == "$gte" && cmp >= 0) ||
				(op == "$lt" && cmp < 0) || (op == "$lte" && cmp <= 0) {
				return true, nil
			}
		}
		return false, nil
	case "$exists":
		want, ok := truthy(arg)
		if !ok {
			return false, fmt.Errorf("$exists expects a boolean")
		}
		return found == want, nil
	default:
		return false, fmt.Errorf("%w: query operator %s", ErrUnsupported, op)
	}
}

func matchEqual(value interface{}, found bool, want interface{}) bool {
	if !found {
		return want == nil
	}
	if valuesEqual(value, want) {
		return true
	}
	if arr, ok := asArray(value); ok {
		for _, el := range arr {
			if valuesEqual(el, want) {
				return true
			}
		}
	}
	return false
}

func valuesEqual(a, b interface{}) bool {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}
	}
	if x, ok := toMillis(a); ok {
		if y, ok := toMillis(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func toMillis(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return int64(t), true
	case time.Time:
		return t.UnixMilli(), true
	default:
		return 0, false
	}
}

// compareValues orders two values of the same BSON class.
func compareValues(a, b interface{}) (int, bool) {
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return compareOrdered(x, y), true
	}
	if x, ok := toMillis(a); ok {
		y, ok := toMillis(b)
		if !ok {
			return 0, false
		}
		return compareOrdered(x, y), true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case primitive.ObjectID:
		y, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(x[:], y[:]), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func compareOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// sortCompare orders values across types following the BSON comparison order, with
// missing fields sorting as null.
func sortCompare(a interface{}, aok bool, b interface{}, bok bool) int {
	if !aok {
		a = nil
	}
	if !bok {
		b = nil
	}
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return compareOrdered(int64(ra), int64(rb))
	}
	if c, ok := compareValues(a, b); ok {
		return c
	}
	return 0
}

func typeRank(v interface{}) int {
	if _, ok := toFloat(v); ok {
		return 2
	}
	switch v.(type) {
	case nil, primitive.Null:
		return 1
	case string:
		return 3
	case bson.M, bson.D, map[string]interface{}:
		return 4
	case bson.A, []interface{}:
		return 5
	case primitive.Binary:
		return 6
	case primitive.ObjectID:
		return 7
	case bool:
		return 8
	case primitive.DateTime, time.Time:
		return 9
	default:
		return 10
	}
}

func truthy(v interface{}) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if n, ok := toFloat(v); ok {
		return n != 0, true
	}
	return false, false
}

func applyUpdate(doc bson.M, update bson.M) error {
	for op, arg := range update {
		if op != "$set" {
			return fmt.Errorf("%w: update operator %s", ErrUnsupported, op)
		}
		fields, ok := asDoc(arg)
		if !ok {
			return fmt.Errorf("$set expects a document")
		}
		for path, value := range fields {
			if err := setPath(doc, path, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func setPath(doc bson.M, path string, value interface{}) error {
	if path == "_id" {
		if current, ok := doc["_id"]; ok && !valuesEqual(current, value) {
			return fmt.Errorf("field _id is immutable")
		}
	}
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part]
		if !ok || next == nil {
			child := bson.M{}
			cur[part] = child
			cur = child
			continue
		}
		child, ok := next.(bson.M)
		if !ok {
			return fmt.Errorf("cannot set %q: %q is not a document", path, part)
		}
		cur = child
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

func project(doc bson.M, spec bson.M) (bson.M, error) {
	include := false
	flags := make(map[string]bool, len(spec))
	for field, v := range spec {
		on, ok := truthy(v)
		if !ok {
			return nil, fmt.Errorf("%w: computed projection for %q", ErrUnsupported, field)
		}
		flags[field] = on
		if on && field != "_id" {
			include = true
		}
	}

	if include {
		out := bson.M{}
		if on, set := flags["_id"]; !set || on {
			if id, ok := doc["_id"]; ok {
				out["_id"] = id
			}
		}
		for field, on := range flags {
			if field == "_id" || !on {
				continue
			}
			if v, ok := lookupPath(doc, field); ok {
				if err := setPath(out, field, v); err != nil {
					return nil, err
				}
			}
		}
		return out, nil
	}

	for field, on := range flags {
		if on && field == "_id" {
			continue
		}
		if on {
			return nil, fmt.Errorf("cannot mix inclusion and exclusion in $project")
		}
		if strings.Contains(field, ".") {
			return nil, fmt.Errorf("%w: nested exclusion %q", ErrUnsupported, field)
		}
		delete(doc, field)
	}
	return doc, nil
}
