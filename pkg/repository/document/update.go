package document

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Field is one candidate entry of a partial update.
type Field struct {
	Name    string
	Value   interface{}
	Present bool
}

// Opt turns an optional value into a Field. A nil pointer yields an absent field,
// so the stored value is left unchanged rather than cleared.
func Opt[T any](name string, value *T) Field {
	if value == nil {
		return Field{Name: name}
	}
	return Field{Name: name, Value: *value, Present: true}
}

// Set yields a field that is always present.
func Set(name string, value interface{}) Field {
	return Field{Name: name, Value: value, Present: true}
}

// Update is a partial update holding only the fields to change.
type Update struct {
	set bson.D
}

// BuildUpdate keeps the present fields in argument order. A repeated name keeps its
// position and takes the last present value.
func BuildUpdate(fields ...Field) Update {
	var set bson.D
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		if !f.Present {
			continue
		}
		if i, ok := index[f.Name]; ok {
			set[i].Value = f.Value
			continue
		}
		index[f.Name] = len(set)
		set = append(set, bson.E{Key: f.Name, Value: f.Value})
	}
	return Update{set: set}
}

// IsEmpty reports whether no field is present.
func (u Update) IsEmpty() bool {
	return len(u.set) == 0
}

// Fields returns the names of the present fields in order.
func (u Update) Fields() []string {
	names := make([]string, 0, len(u.set))
	for _, e := range u.set {
		names = append(names, e.Key)
	}
	return names
}

// Value returns the value set for name.
func (u Update) Value(name string) (interface{}, bool) {
	for _, e := range u.set {
		if e.Key == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Document renders the update as a single $set.
func (u Update) Document() bson.M {
	set := make(bson.D, len(u.set))
	copy(set, u.set)
	return bson.M{"$set": set}
}
