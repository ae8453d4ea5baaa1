package sqlsource

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ohler55/ojg/oj"
)

// number reads numeric filter values; numeric strings stay text
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func textValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// sqlValue converts a cell into something the driver can bind. Nested JSON
// values are stored as their JSON text.
func sqlValue(v any) any {
	switch x := v.(type) {
	case nil, string, float64, int64, bool, []byte:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case map[string]any, []any:
		if data, err := oj.Marshal(x); err == nil {
			return string(data)
		}
	}
	if f, ok := number(v); ok {
		return f
	}
	return fmt.Sprint(v)
}

// cellValue converts a scanned column into a row value. Integers become
// float64 so rows read back compare like loaded rows.
func cellValue(v any) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case []byte:
		return string(x)
	}
	return v
}
