package query

import (
	"strings"

	"gridquery/app/interfaces"
)

// Filter operators understood by Matches. Anything else passes.
const (
	OpContains   = "contains"
	OpEq         = "eq"
	OpNeq        = "neq"
	OpGt         = "gt"
	OpGte        = "gte"
	OpLt         = "lt"
	OpLte        = "lte"
	OpStartsWith = "startswith"
	OpEndsWith   = "endswith"
	OpIsNull     = "isnull"
	OpIsNotNull  = "isnotnull"
	OpIsEmpty    = "isempty"
	OpIsNotEmpty = "isnotempty"

	// NegatePrefix turns any operator into its complement: "!contains"
	NegatePrefix = "!"
)

// AnyField as a leaf field matches when any value of the row satisfies the predicate
const AnyField = "*"

// Matches evaluates a filter tree against one row. It never panics: missing
// fields read as nil and unknown operators match.
func Matches(row Row, node FilterNode) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *interfaces.Composite:
		if len(n.Children) == 0 {
			// A composite without children has nothing to evaluate.
			return true
		}
		if n.Logic == interfaces.LogicOr {
			for _, child := range n.Children {
				if Matches(row, child) {
					return true
				}
			}
			return false
		}
		for _, child := range n.Children {
			if !Matches(row, child) {
				return false
			}
		}
		return true
	case *interfaces.Leaf:
		op := strings.ToLower(n.Operator)
		negate := strings.HasPrefix(op, NegatePrefix)
		if negate {
			op = op[len(NegatePrefix):]
		}
		var ok bool
		if n.Field == AnyField {
			ok = matchAnyField(row, op, n.Value)
		} else {
			ok = matchLeaf(row.Get(n.Field), op, n.Value)
		}
		return ok != negate
	default:
		return true
	}
}

func matchLeaf(fieldValue any, op string, value any) bool {
	switch op {
	case OpContains:
		return matchContains(fieldValue, value)
	case OpEq:
		return strictEqual(fieldValue, value)
	case OpNeq:
		return !strictEqual(fieldValue, value)
	case OpGt, OpGte, OpLt, OpLte:
		if fieldValue == nil {
			return false
		}
		left, okL := toNumber(fieldValue)
		right, okR := toNumber(value)
		if !okL || !okR {
			return false
		}
		switch op {
		case OpGt:
			return left > right
		case OpGte:
			return left >= right
		case OpLt:
			return left < right
		default:
			return left <= right
		}
	case OpStartsWith, OpEndsWith:
		if isEmptyValue(fieldValue) {
			return false
		}
		text := strings.ToLower(stringValue(fieldValue))
		needle := strings.ToLower(stringValue(value))
		if op == OpStartsWith {
			return strings.HasPrefix(text, needle)
		}
		return strings.HasSuffix(text, needle)
	case OpIsNull:
		return fieldValue == nil
	case OpIsNotNull:
		return fieldValue != nil
	case OpIsEmpty:
		return isEmptyValue(fieldValue)
	case OpIsNotEmpty:
		return !isEmptyValue(fieldValue)
	default:
		return true
	}
}

func matchAnyField(row Row, op string, value any) bool {
	for _, v := range row {
		if matchLeaf(v, op, value) {
			return true
		}
	}
	return false
}

// NegateOperator returns the complement of op, removing the prefix when
// op is already negated.
func NegateOperator(op string) string {
	if strings.HasPrefix(op, NegatePrefix) {
		return op[len(NegatePrefix):]
	}
	return NegatePrefix + op
}

// matchContains is a case-insensitive substring test. A search value with
// whitespace requires every word to occur somewhere in the field.
func matchContains(fieldValue, value any) bool {
	search := strings.ToLower(strings.TrimSpace(stringValue(value)))
	text := strings.ToLower(stringValue(fieldValue))
	if strings.ContainsAny(search, " \t\n\r") {
		for _, word := range strings.Fields(search) {
			if !strings.Contains(text, word) {
				return false
			}
		}
		return true
	}
	return strings.Contains(text, search)
}

// ApplyFilter keeps the rows matching every node in filters.
// An empty filter list returns rows unchanged.
func ApplyFilter(rows []Row, filters []FilterNode) []Row {
	if len(filters) == 0 {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		keep := true
		for _, f := range filters {
			if !Matches(row, f) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}
