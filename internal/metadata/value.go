// Package metadata provides the typed, open key/value container carried with
// every datum: a string-keyed map whose values are restricted to what JSON can
// represent (null, number, string, bool, object, array).
package metadata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
)

// Kind identifies which JSON type a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a tagged union over the JSON types. The zero value is null.
//
// Internally the payload is one of nil, float64, string, bool,
// map[string]any or []any, where nested values follow the same rule.
type Value struct {
	v any
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{v: f} }

// String returns a string value.
func String(s string) Value { return Value{v: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{v: b} }

// Object returns an object value holding a deep copy of m.
func Object(m Map) Value { return Value{v: m.Any()} }

// Array returns an array value holding deep copies of vals.
func Array(vals ...Value) Value {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v.Clone().v
	}
	return Value{v: out}
}

// FromAny converts a Go value into a Value. Accepted inputs are the types
// produced by encoding/json, all Go integer and float types, Value, Map, and
// slices or string-keyed maps of those.
func FromAny(x any) (Value, error) {
	n, err := normalize(x)
	if err != nil {
		return Value{}, err
	}
	return Value{v: n}, nil
}

// MustFromAny is FromAny that panics on unsupported input. Intended for
// literals in tests and static defaults.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Kind reports the JSON type held by v.
func (v Value) Kind() Kind {
	switch v.v.(type) {
	case float64:
		return KindNumber
	case string:
		return KindString
	case bool:
		return KindBool
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	}
	return KindNull
}

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) {
	f, ok := v.v.(float64)
	return f, ok
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok
}

// AsObject returns a copy of the object payload as a Map.
func (v Value) AsObject() (Map, bool) {
	m, ok := v.v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(Map, len(m))
	for k, x := range m {
		out[k] = Value{v: x}.Clone()
	}
	return out, true
}

// AsArray returns copies of the array elements.
func (v Value) AsArray() ([]Value, bool) {
	a, ok := v.v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(a))
	for i, x := range a {
		out[i] = Value{v: x}.Clone()
	}
	return out, true
}

// Any returns a deep copy of the payload as plain Go values.
func (v Value) Any() any {
	return v.Clone().v
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.v.(type) {
	case map[string]any, []any:
		c, err := copystructure.Copy(v.v)
		if err != nil {
			// payloads are built from plain maps, slices and scalars only
			panic(errors.Wrap(err, "metadata: copy value"))
		}
		return Value{v: c}
	}
	return v
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	return reflect.DeepEqual(v.v, o.v)
}

func (v Value) String() string {
	b, err := json.Marshal(v.v)
	if err != nil {
		return fmt.Sprintf("%v", v.v)
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	n, err := normalize(x)
	if err != nil {
		return err
	}
	v.v = n
	return nil
}

func normalize(x any) (any, error) {
	switch t := x.(type) {
	case nil:
		return nil, nil
	case Value:
		return t.Clone().v, nil
	case Map:
		return t.Any(), nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, errors.Wrapf(err, "metadata: number %q", t.String())
		}
		return f, nil
	case string:
		return t, nil
	case bool:
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, err := normalize(e)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := normalize(e)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}
			out[i] = n
		}
		return out, nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			n, err := normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.Errorf("metadata: map key type %s is not string", rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			n, err := normalize(rv.MapIndex(k).Interface())
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k.String())
			}
			out[k.String()] = n
		}
		return out, nil
	}
	return nil, errors.Errorf("metadata: unsupported value type %T", x)
}
