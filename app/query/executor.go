package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Query is a parsed pipe query such as
//
//	filter status=active | sort region, amount desc | group region | agg sum(amount) | page 1 50
type Query struct {
	Filters    []FilterNode
	Sort       []SortKey
	Group      []GroupKey
	Aggregates []AggregateSpec
	Pivot      *PivotConfig
	Page       int
	PageSize   int
}

// Inputs converts the query into engine inputs over rows
func (q *Query) Inputs(datasetID string, rows []Row) Inputs {
	page := q.Page
	if page == 0 {
		page = 1
	}
	return Inputs{
		DatasetID:  datasetID,
		Rows:       rows,
		Filters:    q.Filters,
		Sort:       q.Sort,
		Group:      q.Group,
		Aggregates: q.Aggregates,
		Pivot:      q.Pivot,
		Page:       page,
		PageSize:   q.PageSize,
	}
}

// ParseQuery parses a pipe query. Stage names are case-insensitive; bare
// words in filter stages search defaultField (every field when empty).
// Filter expressions never fail to parse; the other stages report
// malformed arguments.
func ParseQuery(text, defaultField string) (*Query, error) {
	q := &Query{}
	for _, stage := range splitPipesTopLevel(text) {
		if stage == "" {
			continue
		}
		name, rest, _ := strings.Cut(stage, " ")
		rest = strings.TrimSpace(rest)

		switch strings.ToLower(name) {
		case "filter", "where":
			if node := ParseFilterExpression(rest, defaultField); node != nil {
				q.Filters = append(q.Filters, node)
			}
		case "sort", "order":
			keys, err := parseSortStage(rest)
			if err != nil {
				return nil, err
			}
			q.Sort = append(q.Sort, keys...)
		case "group":
			keys, err := parseSortStage(rest)
			if err != nil {
				return nil, fmt.Errorf("group: %w", err)
			}
			for _, k := range keys {
				q.Group = append(q.Group, GroupKey{Field: k.Field, Direction: k.Direction})
			}
		case "agg", "aggregate":
			specs, err := parseAggregateList(rest)
			if err != nil {
				return nil, err
			}
			q.Aggregates = append(q.Aggregates, specs...)
		case "pivot":
			cfg, err := parsePivotStage(rest)
			if err != nil {
				return nil, err
			}
			q.Pivot = cfg
		case "page":
			page, size, err := parsePageStage(rest)
			if err != nil {
				return nil, err
			}
			q.Page, q.PageSize = page, size
		default:
			// A query without a stage keyword is a filter expression
			if node := ParseFilterExpression(stage, defaultField); node != nil {
				q.Filters = append(q.Filters, node)
			}
		}
	}
	return q, nil
}

// parseSortStage parses `a desc, "b c", d asc`
func parseSortStage(spec string) ([]SortKey, error) {
	var keys []SortKey
	for _, part := range splitByCommaRespectingQuotes(spec) {
		tokens := splitRespectingQuotes(part)
		if len(tokens) == 0 {
			continue
		}
		dir := SortAsc
		if len(tokens) > 1 {
			switch strings.ToLower(tokens[len(tokens)-1]) {
			case "desc", "descending":
				dir = SortDesc
				tokens = tokens[:len(tokens)-1]
			case "asc", "ascending":
				tokens = tokens[:len(tokens)-1]
			}
		}
		field := unquote(strings.Join(tokens, " "))
		if field == "" {
			continue
		}
		keys = append(keys, SortKey{Field: field, Direction: dir})
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("expected at least one field in %q", spec)
	}
	return keys, nil
}

// parseAggregateList parses `sum(price) avg(price), count(id)`
func parseAggregateList(spec string) ([]AggregateSpec, error) {
	var specs []AggregateSpec
	for _, part := range splitByCommaRespectingQuotes(spec) {
		for _, tok := range splitRespectingQuotes(part) {
			s, err := parseAggregateCall(tok)
			if err != nil {
				return nil, err
			}
			specs = append(specs, s)
		}
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("agg: expected at least one aggregate")
	}
	return specs, nil
}

// parseAggregateCall parses `fn(field)`
func parseAggregateCall(tok string) (AggregateSpec, error) {
	open := strings.Index(tok, "(")
	if open <= 0 || !strings.HasSuffix(tok, ")") {
		return AggregateSpec{}, fmt.Errorf("invalid aggregate %q, expected fn(field)", tok)
	}
	fn, ok := ParseAggregateFunc(tok[:open])
	if !ok {
		return AggregateSpec{}, fmt.Errorf("unknown aggregate function %q", tok[:open])
	}
	field := unquote(tok[open+1 : len(tok)-1])
	if field == "" {
		return AggregateSpec{}, fmt.Errorf("aggregate %q has no field", tok)
	}
	return AggregateSpec{Field: field, Func: fn}, nil
}

// parsePivotStage parses `rows=a,b cols=c measures=sum(x),count(y) rowsort=asc colsort=desc`
func parsePivotStage(spec string) (*PivotConfig, error) {
	cfg := &PivotConfig{}
	for _, tok := range splitRespectingQuotes(spec) {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, fmt.Errorf("pivot: expected key=value, got %q", tok)
		}
		switch strings.ToLower(key) {
		case "rows":
			cfg.Rows.Fields = splitFieldList(value)
		case "cols", "columns":
			cfg.Columns.Fields = splitFieldList(value)
		case "measures":
			for _, call := range splitByCommaRespectingQuotes(value) {
				s, err := parseAggregateCall(strings.TrimSpace(call))
				if err != nil {
					return nil, fmt.Errorf("pivot: %w", err)
				}
				cfg.Measures = append(cfg.Measures, Measure{Field: s.Field, Func: s.Func})
			}
		case "rowsort":
			cfg.Rows.Sort = ParseSortDirectionValue(value)
		case "colsort":
			cfg.Columns.Sort = ParseSortDirectionValue(value)
		default:
			return nil, fmt.Errorf("pivot: unknown option %q", key)
		}
	}
	if len(cfg.Measures) == 0 {
		return nil, fmt.Errorf("pivot: at least one measure is required")
	}
	return cfg, nil
}

// ParseSortDirectionValue maps "asc"/"desc" to a direction and anything else to ""
func ParseSortDirectionValue(s string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return SortAsc
	case "desc", "descending":
		return SortDesc
	}
	return ""
}

func splitFieldList(s string) []string {
	var out []string
	for _, f := range splitByCommaRespectingQuotes(s) {
		if f = unquote(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parsePageStage parses `N [size]`
func parsePageStage(spec string) (int, int, error) {
	tokens := strings.Fields(spec)
	if len(tokens) == 0 || len(tokens) > 2 {
		return 0, 0, fmt.Errorf("page: expected page number and optional size")
	}
	page, err := strconv.Atoi(tokens[0])
	if err != nil {
		return 0, 0, fmt.Errorf("page: invalid page number %q: %w", tokens[0], err)
	}
	size := 0
	if len(tokens) == 2 {
		if size, err = strconv.Atoi(tokens[1]); err != nil {
			return 0, 0, fmt.Errorf("page: invalid page size %q: %w", tokens[1], err)
		}
	}
	return page, size, nil
}

func splitPipesTopLevel(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := rune(0)
	for _, r := range s {
		if r == '"' || r == '\'' {
			if inQuote == 0 {
				inQuote = r
			} else if inQuote == r {
				inQuote = 0
			}
			cur.WriteRune(r)
			continue
		}
		if inQuote == 0 && r == '|' {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, strings.TrimSpace(cur.String()))
	}
	return out
}

func splitRespectingQuotes(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := rune(0)
	for _, r := range s {
		if r == '"' || r == '\'' {
			if inQuote == 0 {
				inQuote = r
			} else if inQuote == r {
				inQuote = 0
			}
			cur.WriteRune(r)
			continue
		}
		if inQuote == 0 && (r == ' ' || r == '\t' || r == '\n') {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// splitByCommaRespectingQuotes splits a string by commas outside quotes and
// parentheses, so "sum(a),count(b)" yields two parts.
func splitByCommaRespectingQuotes(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := rune(0)
	depth := 0
	for _, r := range s {
		if r == '"' || r == '\'' {
			if inQuote == 0 {
				inQuote = r
			} else if inQuote == r {
				inQuote = 0
			}
			cur.WriteRune(r)
			continue
		}
		if inQuote == 0 {
			switch r {
			case '(':
				depth++
			case ')':
				if depth > 0 {
					depth--
				}
			case ',':
				if depth == 0 {
					if p := strings.TrimSpace(cur.String()); p != "" {
						out = append(out, p)
					}
					cur.Reset()
					continue
				}
			}
		}
		cur.WriteRune(r)
	}
	if p := strings.TrimSpace(cur.String()); p != "" {
		out = append(out, p)
	}
	return out
}
