package perturb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Combination maps parameter names to the values chosen for one sweep step.
type Combination map[string]any

// Keys returns the parameter names in ascending order.
func (c Combination) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Label renders the combination as the concatenation of "_<key>-<value>"
// over keys, in the order given.
//
//	Combination{"f": 0.014, "D": 0.001}.Label([]string{"f", "D"}) == "_f-0.014_D-0.001"
//
// Bytes outside [A-Za-z0-9.+-] are written as %XX, so a label is always a
// single path element and distinct strings never collide. Underscores are
// kept in keys but escaped in values, where they would read as a separator.
// List elements are joined by commas; nested lists are parenthesized.
func (c Combination) Label(keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteByte('_')
		b.WriteString(escape(k, true))
		b.WriteByte('-')
		b.WriteString(labelValue(c[k], false))
	}
	return b.String()
}

func labelValue(v any, nested bool) string {
	switch x := v.(type) {
	case string:
		return escape(x, false)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = labelValue(e, true)
		}
		s := strings.Join(parts, ",")
		if nested {
			return "(" + s + ")"
		}
		return s
	}
	return escape(FormatValue(v), false)
}

// FormatValue renders a parameter value. Floats use the shortest
// representation that round-trips, so 0.014 stays "0.014" and 0.00002
// becomes "2e-05".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "none"
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, bits int) string {
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func escape(s string, keepUnderscore bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '.', c == '+', c == '-':
			b.WriteByte(c)
		case c == '_' && keepUnderscore:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
