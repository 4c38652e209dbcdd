package eval

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Numeric equality tolerance: 24.9995 equals 25 under ==, 24.9 does not.
const epsilon = 0.001

func coerceString(v any) string {
	return strings.ToLower(fmt.Sprintf("%v", v))
}

func CoerceFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

// coerceBool applies the permissive boolean heuristic: the usual affirmative
// strings are true, numbers follow truthiness, anything else is false.
func CoerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1", "t":
			return true
		}
		return false
	default:
		f, err := CoerceFloat(v)
		if err != nil {
			return false
		}
		return f != 0
	}
}

// dateLayouts covers the formats applicant records and scheme documents are
// known to carry. Tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"2 January 2006",
	"January 2, 2006",
}

func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse date %q", d)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to date", v)
	}
}

// coerceArray turns a non-list actual into a list: JSON strings decode, any
// other scalar wraps as a singleton.
func CoerceArray(v any) []any {
	switch a := v.(type) {
	case []any:
		return a
	case []string:
		out := make([]any, len(a))
		for i, s := range a {
			out[i] = s
		}
		return out
	case string:
		var decoded []any
		if err := json.Unmarshal([]byte(a), &decoded); err == nil {
			return decoded
		}
		return []any{a}
	default:
		return []any{v}
	}
}

// normalizeScalar maps numeric types onto float64 so that YAML ints and JSON
// floats compare equal inside arrays.
func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}

func scalarEqual(a, b any) bool {
	a, b = normalizeScalar(a), normalizeScalar(b)
	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			return af == bf
		}
	}
	return a == b
}

func floatsEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}
