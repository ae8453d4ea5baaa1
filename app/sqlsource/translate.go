package sqlsource

import (
	"strings"

	"gridquery/app/interfaces"
	"gridquery/app/query"
)

// QuoteIdent quotes a table or column name for SQLite
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// likeEscaper escapes LIKE wildcards; statements use ESCAPE '\'
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// statement is a SQL fragment with its positional arguments
type statement struct {
	sql  strings.Builder
	args []any
}

func (s *statement) write(parts ...string) {
	for _, p := range parts {
		s.sql.WriteString(p)
	}
}

func (s *statement) arg(v any) {
	s.sql.WriteByte('?')
	s.args = append(s.args, v)
}

// translator renders filter trees and sort keys against a known column set
type translator struct {
	columns []string
	known   map[string]bool
}

func newTranslator(columns []string) *translator {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	return &translator{columns: columns, known: known}
}

// column quotes a known column. A column the table does not have reads as
// NULL, the way a missing field does in memory.
func (t *translator) column(name string) (string, bool) {
	if !t.known[name] {
		return "NULL", false
	}
	return QuoteIdent(name), true
}

// where renders the AND of filters, or "" when there are none
func (t *translator) where(st *statement, filters []query.FilterNode) {
	if len(filters) == 0 {
		return
	}
	st.write(" WHERE ")
	for i, f := range filters {
		if i > 0 {
			st.write(" AND ")
		}
		t.node(st, f)
	}
}

// node renders one filter node as an expression that is always 0 or 1,
// never NULL, so negation and OR behave like the in-memory matcher.
func (t *translator) node(st *statement, node query.FilterNode) {
	switch n := node.(type) {
	case nil:
		st.write("1")
	case *interfaces.Composite:
		if len(n.Children) == 0 {
			st.write("1")
			return
		}
		joiner := " AND "
		if n.Logic == interfaces.LogicOr {
			joiner = " OR "
		}
		st.write("(")
		for i, child := range n.Children {
			if i > 0 {
				st.write(joiner)
			}
			t.node(st, child)
		}
		st.write(")")
	case *interfaces.Leaf:
		op := strings.ToLower(n.Operator)
		negate := strings.HasPrefix(op, query.NegatePrefix)
		if negate {
			op = op[len(query.NegatePrefix):]
			st.write("NOT ")
		}
		if n.Field != query.AnyField {
			col, _ := t.column(n.Field)
			st.write("COALESCE(")
			leaf(st, col, op, n.Value)
			st.write(", 0)")
			return
		}
		if len(t.columns) == 0 {
			st.write("0")
			return
		}
		st.write("(")
		for i, c := range t.columns {
			if i > 0 {
				st.write(" OR ")
			}
			st.write("COALESCE(")
			leaf(st, QuoteIdent(c), op, n.Value)
			st.write(", 0)")
		}
		st.write(")")
	default:
		st.write("1")
	}
}

func leaf(st *statement, col, op string, value any) {
	switch op {
	case query.OpContains:
		search := strings.ToLower(strings.TrimSpace(textValue(value)))
		words := strings.Fields(search)
		if len(words) == 0 {
			words = []string{search}
		}
		st.write("(")
		for i, w := range words {
			if i > 0 {
				st.write(" AND ")
			}
			st.write("LOWER(COALESCE(CAST(", col, " AS TEXT), '')) LIKE ")
			st.arg("%" + likeEscaper.Replace(w) + "%")
			st.write(` ESCAPE '\'`)
		}
		st.write(")")
	case query.OpEq:
		eq(st, col, value, false)
	case query.OpNeq:
		eq(st, col, value, true)
	case query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		f, ok := number(value)
		if !ok {
			st.write("0")
			return
		}
		st.write("(typeof(", col, ") IN ('integer', 'real') AND ", col, " ", comparison[op], " ")
		st.arg(f)
		st.write(")")
	case query.OpStartsWith, query.OpEndsWith:
		needle := likeEscaper.Replace(strings.ToLower(textValue(value)))
		if op == query.OpStartsWith {
			needle += "%"
		} else {
			needle = "%" + needle
		}
		st.write("(", col, " IS NOT NULL AND ", col, " <> '' AND LOWER(CAST(", col, " AS TEXT)) LIKE ")
		st.arg(needle)
		st.write(` ESCAPE '\')`)
	case query.OpIsNull:
		st.write(col, " IS NULL")
	case query.OpIsNotNull:
		st.write(col, " IS NOT NULL")
	case query.OpIsEmpty:
		st.write("(", col, " IS NULL OR ", col, " = '')")
	case query.OpIsNotEmpty:
		st.write("(", col, " IS NOT NULL AND ", col, " <> '')")
	default:
		st.write("1")
	}
}

var comparison = map[string]string{
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// eq uses IS so that NULL compares like any other value. Numbers only equal
// numbers and text only equals text.
func eq(st *statement, col string, value any, negate bool) {
	is := " IS "
	if negate {
		is = " IS NOT "
	}
	if value == nil {
		st.write(col, is, "NULL")
		return
	}
	if f, ok := number(value); ok {
		if negate {
			st.write("NOT ")
		}
		st.write("(typeof(", col, ") IN ('integer', 'real') AND ", col, " = ")
		st.arg(f)
		st.write(")")
		return
	}
	st.write(col, is)
	st.arg(sqlValue(value))
}

// orderBy renders ORDER BY with nulls after defined values when ascending.
// Unknown columns are all NULL and do not change the order, so they are skipped.
func (t *translator) orderBy(st *statement, keys []query.SortKey) {
	written := 0
	for _, k := range keys {
		col, ok := t.column(k.Field)
		if !ok {
			continue
		}
		if written == 0 {
			st.write(" ORDER BY ")
		} else {
			st.write(", ")
		}
		written++
		if k.Direction == query.SortDesc {
			st.write(col, " DESC NULLS FIRST")
		} else {
			st.write(col, " ASC NULLS LAST")
		}
	}
}

// Translate renders the count and page statements for req against table.
// Both share the same WHERE arguments; the page statement appends its
// LIMIT and OFFSET arguments.
func Translate(table string, columns []string, req query.ProviderRequest) (countSQL string, countArgs []any, pageSQL string, pageArgs []any, err error) {
	t := newTranslator(columns)

	var where statement
	t.where(&where, req.Filters)
	var order statement
	t.orderBy(&order, req.Sort)

	from := " FROM " + QuoteIdent(table) + where.sql.String()
	countSQL = "SELECT COUNT(*)" + from

	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = QuoteIdent(c)
	}
	pageSQL = "SELECT " + strings.Join(cols, ", ") + from + order.sql.String()
	pageArgs = append([]any(nil), where.args...)
	switch {
	case req.PageSize <= 0:
	case req.Page < 1:
		// pages are 1-based; anything before the first page is empty
		pageSQL += " LIMIT 0"
	default:
		pageSQL += " LIMIT ? OFFSET ?"
		pageArgs = append(pageArgs, req.PageSize, (req.Page-1)*req.PageSize)
	}
	return countSQL, where.args, pageSQL, pageArgs, nil
}
