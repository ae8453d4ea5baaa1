package fileloader

import (
	"fmt"
	"sort"

	"gridquery/app/interfaces"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// parseJSONData parses a JSON document. A stream of objects or arrays
// separated by whitespace (JSON Lines, concatenated JSON) is returned as
// one array.
func parseJSONData(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data is empty")
	}

	objects, streamErr := parseJSONStream(data)
	switch {
	case streamErr == nil && len(objects) == 1:
		return objects[0], nil
	case streamErr == nil && len(objects) > 1:
		return objects, nil
	}

	// Not a sequence of objects or arrays; let the parser report why
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return doc, nil
}

// parseJSONStream extracts consecutive JSON objects or arrays from data
func parseJSONStream(data []byte) ([]any, error) {
	var objects []any
	str := string(data)
	pos := 0

	for pos < len(str) {
		for pos < len(str) && isJSONSpace(str[pos]) {
			pos++
		}
		if pos >= len(str) {
			break
		}
		if str[pos] != '{' && str[pos] != '[' {
			return nil, fmt.Errorf("expected { or [ at position %d", pos)
		}

		end, err := findJSONValueEnd(str, pos)
		if err != nil {
			return nil, err
		}
		obj, err := oj.ParseString(str[pos:end])
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON at position %d: %w", pos, err)
		}
		objects = append(objects, obj)
		pos = end
	}
	return objects, nil
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// findJSONValueEnd returns the offset just past the object or array starting at pos
func findJSONValueEnd(str string, pos int) (int, error) {
	var stack []byte
	inString := false
	escaped := false

	for i := pos; i < len(str); i++ {
		ch := str[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			open := byte('{')
			if ch == ']' {
				open = '['
			}
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return 0, fmt.Errorf("unmatched %c at position %d", ch, i)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated JSON value starting at position %d", pos)
}

// selectJSONRecords picks the record list out of a document. Without an
// expression the document itself must be an array (or a single object).
// An expression may select one array ($.items) or the records themselves
// ($.items[*]).
func selectJSONRecords(doc any, expression string) ([]any, error) {
	if expression == "" {
		switch v := doc.(type) {
		case []any:
			return v, nil
		case map[string]any:
			return []any{v}, nil
		}
		return nil, fmt.Errorf("JSON document is a %T, not an array of records; set a JSONPath expression", doc)
	}

	x, err := jp.ParseString(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression: %w", err)
	}
	results := x.Get(doc)
	if len(results) == 0 {
		return nil, fmt.Errorf("JSONPath expression %q returned no results", expression)
	}
	if len(results) == 1 {
		if arr, ok := results[0].([]any); ok {
			return arr, nil
		}
	}
	return results, nil
}

// ParseJSON parses JSON data into a header and rows. Records are either
// objects, whose keys become columns (sorted alphabetically), or arrays,
// whose first element is the header row. Values keep their decoded JSON
// types, so nested objects stay addressable with field{$.path} lookups.
func ParseJSON(data []byte, options FileOptions) ([]string, []interfaces.Row, error) {
	doc, err := parseJSONData(data)
	if err != nil {
		return nil, nil, err
	}
	records, err := selectJSONRecords(doc, options.JPath)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("JSON contains no records")
	}

	if _, ok := records[0].([]any); ok {
		return arrayRecordsToRows(records, options)
	}
	return objectRecordsToRows(records)
}

func objectRecordsToRows(records []any) ([]string, []interfaces.Row, error) {
	seen := make(map[string]bool)
	var keys []string
	objects := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			continue // Skip non-object items
		}
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		objects = append(objects, obj)
	}
	if len(objects) == 0 {
		return nil, nil, fmt.Errorf("JSON records must be objects or arrays")
	}

	sort.Strings(keys)
	header := NormalizeHeaders(keys)
	rename := make(map[string]string)
	for i, k := range keys {
		if header[i] != k {
			rename[k] = header[i]
		}
	}

	rows := make([]interfaces.Row, len(objects))
	for i, obj := range objects {
		row := make(interfaces.Row, len(obj))
		for k, v := range obj {
			if to, ok := rename[k]; ok {
				k = to
			}
			row[k] = v
		}
		rows[i] = row
	}
	return header, rows, nil
}

func arrayRecordsToRows(records []any, options FileOptions) ([]string, []interfaces.Row, error) {
	var arrays [][]any
	for _, rec := range records {
		if arr, ok := rec.([]any); ok {
			arrays = append(arrays, arr)
		}
	}

	var header []string
	body := arrays
	if options.NoHeaderRow {
		width := 0
		for _, arr := range arrays {
			width = max(width, len(arr))
		}
		header = syntheticHeader(width)
	} else {
		names := make([]string, len(arrays[0]))
		for i, v := range arrays[0] {
			if v != nil {
				names[i] = fmt.Sprint(v)
			}
		}
		header = NormalizeHeaders(names)
		body = arrays[1:]
	}

	rows := make([]interfaces.Row, len(body))
	for i, arr := range body {
		row := make(interfaces.Row, len(header))
		for j, v := range arr {
			if j >= len(header) {
				break
			}
			row[header[j]] = v
		}
		rows[i] = row
	}
	return header, rows, nil
}
