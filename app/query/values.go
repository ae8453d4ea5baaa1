package query

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// toNumber coerces a cell value to float64.
// Numeric kinds and strings that parse as floats are numbers; empty strings,
// bools, nil and NaN are not.
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// isNumberKind reports whether v holds a Go numeric type (not a numeric string)
func isNumberKind(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

// strictEqual compares without string/number coercion.
// All numeric kinds are one "number" type, so int64(3) equals 3.0.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumberKind(a) || isNumberKind(b) {
		if !isNumberKind(a) || !isNumberKind(b) {
			return false
		}
		fa, okA := toNumber(a)
		fb, okB := toNumber(b)
		return okA && okB && fa == fb
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// isEmptyValue treats nil, "", empty slices and empty maps as empty
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// stringValue renders a cell value for text matching
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// kindRank orders values of different kinds: numbers (numeric strings
// included), strings, bools, times, other
func kindRank(v any) int {
	if _, ok := toNumber(v); ok {
		return 0
	}
	switch v.(type) {
	case string:
		return 1
	case bool:
		return 2
	case time.Time:
		return 3
	}
	return 4
}

// compareDefined compares two non-nil values with natural ordering.
// Numbers and numeric strings compare by value; on a tie numbers come
// before strings and strings compare bytewise, so "7" and "007" stay apart.
func compareDefined(a, b any) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 0:
		fa, _ := toNumber(a)
		fb, _ := toNumber(b)
		if c := compareFloat(fa, fb); c != 0 {
			return c
		}
		sa, aText := a.(string)
		sb, bText := b.(string)
		switch {
		case aText && bText:
			return strings.Compare(sa, sb)
		case aText:
			return 1
		case bText:
			return -1
		}
		return 0
	case 1:
		return strings.Compare(a.(string), b.(string))
	case 2:
		av, bv := a.(bool), b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case 3:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return strings.Compare(stringValue(a), stringValue(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CompareValues is the default comparator: nil sorts after every defined value.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareDefined(a, b)
}

// valueKey renders a value as a map key that keeps kinds apart ("1" vs 1)
func valueKey(v any) string {
	if v == nil {
		return "n:"
	}
	if isNumberKind(v) {
		f, _ := toNumber(v)
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch s := v.(type) {
	case string:
		return "s:" + s
	case bool:
		return "b:" + strconv.FormatBool(s)
	case time.Time:
		return "t:" + s.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%T:%v", v, v)
}
