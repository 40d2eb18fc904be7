package storage

import (
	"encoding/json"
	"fmt"
)

// ToFields converts a struct with json tags into document fields
func ToFields(v any) (Fields, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	return f, nil
}

// Decode fills v from the document fields using json tags
func (d Document) Decode(v any) error {
	b, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", d.Path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", d.Path, err)
	}
	return nil
}

// Normalize round-trips fields through JSON so every backend stores and
// compares the same value shapes (numbers become float64).
func Normalize(f Fields) (Fields, error) {
	if f == nil {
		return Fields{}, nil
	}
	return ToFields(f)
}

// EncodeFields and DecodeFields are the wire form used by persistent backends
func EncodeFields(f Fields) ([]byte, error) {
	if f == nil {
		f = Fields{}
	}
	return json.Marshal(f)
}

func DecodeFields(b []byte) (Fields, error) {
	var f Fields
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to decode document data: %w", err)
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}

// Merge deep-merges patch into base and returns a new map. Nested maps are
// merged key by key; any other value in patch replaces the base value.
func Merge(base, patch Fields) Fields {
	out := make(Fields, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		pm, pok := asMap(v)
		bm, bok := asMap(out[k])
		if pok && bok {
			out[k] = map[string]any(Merge(bm, pm))
			continue
		}
		out[k] = v
	}
	return out
}
