package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Transform is a server-side field transform usable as a value in Set or Update.
type Transform interface {
	apply(current any) (any, error)
}

type increment struct{ n int64 }

// Increment adds n to the current numeric field value (missing counts as 0).
func Increment(n int64) Transform { return increment{n: n} }

func (t increment) apply(current any) (any, error) {
	if current == nil {
		return json.Number(fmt.Sprint(t.n)), nil
	}
	v, err := AsInt64(current)
	if err != nil {
		return nil, fmt.Errorf("increment: %w", err)
	}
	return json.Number(fmt.Sprint(v + t.n)), nil
}

type arrayUnion struct{ values []string }

// ArrayUnion appends values that are not already present in the array field.
func ArrayUnion(values ...string) Transform { return arrayUnion{values: values} }

func (t arrayUnion) apply(current any) (any, error) {
	var out []any
	seen := make(map[string]bool)
	switch cur := current.(type) {
	case nil:
	case []any:
		for _, v := range cur {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("array union: element %v is not a string", v)
			}
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	case []string:
		for _, s := range cur {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	default:
		return nil, fmt.Errorf("array union: field holds %T, not an array", current)
	}
	for _, s := range t.values {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

type setIfUnset struct{ value any }

// SetIfUnset writes value unless the field already holds it, in which case
// the whole write fails with ErrPrecondition.
func SetIfUnset(value any) Transform { return setIfUnset{value: value} }

func (t setIfUnset) apply(current any) (any, error) {
	if current != nil && sameValue(current, t.value) {
		return nil, ErrPrecondition
	}
	return t.value, nil
}

type arrayAppendUnique struct{ value string }

// ArrayAppendUnique appends value to the array field. When value is already
// present the whole write fails with ErrPrecondition.
func ArrayAppendUnique(value string) Transform { return arrayAppendUnique{value: value} }

func (t arrayAppendUnique) apply(current any) (any, error) {
	switch cur := current.(type) {
	case nil:
	case []any:
		for _, v := range cur {
			if v == t.value {
				return nil, ErrPrecondition
			}
		}
	case []string:
		for _, v := range cur {
			if v == t.value {
				return nil, ErrPrecondition
			}
		}
	default:
		return nil, fmt.Errorf("array append: field holds %T, not an array", current)
	}
	return arrayUnion{values: []string{t.value}}.apply(current)
}

// sameValue compares decoded and in-memory values; numbers compare by value.
func sameValue(a, b any) bool {
	if x, err := AsInt64(a); err == nil {
		if y, err := AsInt64(b); err == nil {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

// AsInt64 converts a decoded numeric field value to int64.
func AsInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("value of type %T is not a number", v)
	}
}

// ApplyUpdate applies update fields to doc in place. Keys are dotted paths;
// intermediate maps are created as needed.
func ApplyUpdate(doc Document, fields Document) error {
	for key, value := range fields {
		if key == "" {
			return fmt.Errorf("empty field path")
		}
		parts := strings.Split(key, ".")
		parent := map[string]any(doc)
		for _, p := range parts[:len(parts)-1] {
			if p == "" {
				return fmt.Errorf("invalid field path %q", key)
			}
			next, ok := parent[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				parent[p] = next
			}
			parent = next
		}
		leaf := parts[len(parts)-1]
		if leaf == "" {
			return fmt.Errorf("invalid field path %q", key)
		}
		resolved, err := resolve(parent[leaf], value)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		parent[leaf] = resolved
	}
	return nil
}

// ApplySet returns the result of writing fields over current with the given options.
// current may be nil when the document does not exist yet.
func ApplySet(current Document, fields Document, opts SetOptions) (Document, error) {
	if !opts.Merge || current == nil {
		out := Document{}
		if err := mergeInto(out, fields); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := mergeInto(current, fields); err != nil {
		return nil, err
	}
	return current, nil
}

func mergeInto(dst map[string]any, src map[string]any) error {
	for k, v := range src {
		if nested, ok := asMap(v); ok {
			existing, ok := dst[k].(map[string]any)
			if !ok {
				existing = map[string]any{}
			}
			if err := mergeInto(existing, nested); err != nil {
				return err
			}
			dst[k] = existing
			continue
		}
		resolved, err := resolve(dst[k], v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		dst[k] = resolved
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

func resolve(current, value any) (any, error) {
	if t, ok := value.(Transform); ok {
		return t.apply(current)
	}
	return value, nil
}

// encode serializes a document for storage.
func encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// decode parses stored bytes, keeping numbers as json.Number.
func decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// normalize runs fields through an encode/decode cycle so callers never share
// maps with the store and numeric types are uniform.
func normalize(doc Document) (Document, error) {
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}
	return decode(data)
}
