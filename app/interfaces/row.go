package interfaces

import (
	"strings"
	"sync"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Row is one record: field name to value. Rows are shared between pipeline
// stages and cached results, so nothing downstream of the loader mutates them.
type Row map[string]any

// Get returns the value of field, or nil when the row has no such field.
//
// A field that is not a literal key may carry a JPath suffix, for example
// "request{$.params.duration}". The path is applied to the column value,
// which can be an already decoded JSON value or a JSON string.
func (r Row) Get(field string) any {
	if v, ok := r[field]; ok {
		return v
	}
	column, expr, ok := ParseFieldJPath(field)
	if !ok {
		return nil
	}
	return evaluateFieldJPath(r[column], expr)
}

// ParseFieldJPath splits a field that may contain a JPath expression.
// Example: "requestParameters{$.durationSeconds}" -> "requestParameters", "$.durationSeconds", true
func ParseFieldJPath(field string) (string, string, bool) {
	openBrace := strings.Index(field, "{")
	if openBrace == -1 {
		return field, "", false
	}

	closeBrace := strings.LastIndex(field, "}")
	if closeBrace == -1 || closeBrace <= openBrace {
		return field, "", false
	}

	column := strings.TrimSpace(field[:openBrace])
	expr := strings.TrimSpace(field[openBrace+1 : closeBrace])

	if column == "" || expr == "" {
		return field, "", false
	}

	return column, expr, true
}

// compiled JPath expressions, keyed by source text
var jpathCache sync.Map

func compileJPath(expr string) (jp.Expr, bool) {
	if cached, ok := jpathCache.Load(expr); ok {
		return cached.(jp.Expr), true
	}
	path, err := jp.ParseString(expr)
	if err != nil {
		return nil, false
	}
	jpathCache.Store(expr, path)
	return path, true
}

// evaluateFieldJPath extracts the first match of expr from value
func evaluateFieldJPath(value any, expr string) any {
	if value == nil {
		return nil
	}

	data := value
	if s, ok := value.(string); ok {
		if s == "" {
			return nil
		}
		parsed, err := oj.ParseString(s)
		if err != nil {
			return nil
		}
		data = parsed
	}

	path, ok := compileJPath(expr)
	if !ok {
		return nil
	}

	results := path.Get(data)
	if len(results) == 0 {
		return nil
	}
	return results[0]
}
