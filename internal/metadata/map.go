package metadata

import (
	"sort"

	"github.com/pkg/errors"
)

// Map is a datum's metadata: an open mapping from string keys to JSON values.
type Map map[string]Value

// FromMap converts a plain string-keyed map, as produced by encoding/json or
// a perturber's configuration, into a Map.
func FromMap(m map[string]any) (Map, error) {
	out := make(Map, len(m))
	for k, x := range m {
		v, err := FromAny(x)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		out[k] = v
	}
	return out, nil
}

// Clone returns a deep copy of m. A nil Map clones to an empty, non-nil Map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Merge returns a new Map holding m overlaid with other. Neither input is
// modified.
func (m Map) Merge(other Map) Map {
	out := m.Clone()
	for k, v := range other {
		out[k] = v.Clone()
	}
	return out
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Number returns the numeric value stored at key.
func (m Map) Number(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return v.AsNumber()
}

// Str returns the string value stored at key.
func (m Map) Str(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Object returns the nested object stored at key.
func (m Map) Object(key string) (Map, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return v.AsObject()
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Any returns a deep copy of m as a plain map.
func (m Map) Any() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}

// Equal reports deep equality of two maps.
func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
