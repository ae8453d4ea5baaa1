package query

import (
	"testing"

	"gridquery/app/interfaces"
)

func produceRows() []Row {
	return []Row{
		{"name": "Red Apple", "category": "Fruit", "price": 100.0},
		{"name": "Red Carrot", "category": "Vegetable", "price": 50.0},
		{"name": "Green Apple", "category": "Fruit", "price": int64(120)},
		{"name": "Banana", "category": nil, "price": "80"},
		{"name": "", "category": "Vegetable"},
	}
}

func names(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["name"].(string)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMatches_Operators(t *testing.T) {
	row := Row{
		"name":  "Red Apple",
		"price": 100.0,
		"qty":   int64(3),
		"code":  "1",
		"tags":  []any{},
		"note":  "",
		"json":  `{"user":{"id":7}}`,
	}

	tests := []struct {
		name string
		leaf *interfaces.Leaf
		want bool
	}{
		{"contains case-insensitive", &interfaces.Leaf{Field: "name", Operator: "contains", Value: "APPLE"}, true},
		{"contains miss", &interfaces.Leaf{Field: "name", Operator: "contains", Value: "pear"}, false},
		{"operator case-insensitive", &interfaces.Leaf{Field: "name", Operator: "Contains", Value: "red"}, true},
		{"eq number kinds", &interfaces.Leaf{Field: "qty", Operator: "eq", Value: 3}, true},
		{"eq string never equals number", &interfaces.Leaf{Field: "code", Operator: "eq", Value: 1}, false},
		{"eq string", &interfaces.Leaf{Field: "code", Operator: "eq", Value: "1"}, true},
		{"neq", &interfaces.Leaf{Field: "name", Operator: "neq", Value: "Banana"}, true},
		{"gt", &interfaces.Leaf{Field: "price", Operator: "gt", Value: 99}, true},
		{"gt numeric string value", &interfaces.Leaf{Field: "price", Operator: "gt", Value: "150"}, false},
		{"gte equal", &interfaces.Leaf{Field: "price", Operator: "gte", Value: 100}, true},
		{"lt", &interfaces.Leaf{Field: "qty", Operator: "lt", Value: 4}, true},
		{"lte", &interfaces.Leaf{Field: "qty", Operator: "lte", Value: 2}, false},
		{"gt nil field fails", &interfaces.Leaf{Field: "missing", Operator: "gt", Value: 0}, false},
		{"gt uncoercible fails", &interfaces.Leaf{Field: "name", Operator: "gt", Value: 0}, false},
		{"startswith", &interfaces.Leaf{Field: "name", Operator: "startswith", Value: "red"}, true},
		{"endswith", &interfaces.Leaf{Field: "name", Operator: "endswith", Value: "APPLE"}, true},
		{"startswith empty field", &interfaces.Leaf{Field: "note", Operator: "startswith", Value: ""}, false},
		{"isnull", &interfaces.Leaf{Field: "missing", Operator: "isnull"}, true},
		{"isnotnull", &interfaces.Leaf{Field: "name", Operator: "isnotnull"}, true},
		{"isempty string", &interfaces.Leaf{Field: "note", Operator: "isempty"}, true},
		{"isempty slice", &interfaces.Leaf{Field: "tags", Operator: "isempty"}, true},
		{"isnotempty", &interfaces.Leaf{Field: "name", Operator: "isnotempty"}, true},
		{"unknown operator passes", &interfaces.Leaf{Field: "name", Operator: "fuzzy", Value: "x"}, true},
		{"negated contains", &interfaces.Leaf{Field: "name", Operator: "!contains", Value: "apple"}, false},
		{"negated startswith", &interfaces.Leaf{Field: "name", Operator: "!startswith", Value: "green"}, true},
		{"any field", &interfaces.Leaf{Field: AnyField, Operator: "eq", Value: int64(3)}, true},
		{"jpath field", &interfaces.Leaf{Field: "json{$.user.id}", Operator: "eq", Value: 7}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(row, tt.leaf); got != tt.want {
				t.Errorf("Matches(%+v) = %v, want %v", tt.leaf, got, tt.want)
			}
		})
	}
}

func TestApplyFilter_MultiWordContains(t *testing.T) {
	filters := []FilterNode{&interfaces.Leaf{Field: "name", Operator: "contains", Value: "red apple"}}
	got := names(ApplyFilter(produceRows(), filters))
	if !equalStrings(got, []string{"Red Apple"}) {
		t.Errorf("got %v, want [Red Apple]", got)
	}

	// Word order does not matter
	filters = []FilterNode{&interfaces.Leaf{Field: "name", Operator: "contains", Value: "apple  RED"}}
	got = names(ApplyFilter(produceRows(), filters))
	if !equalStrings(got, []string{"Red Apple"}) {
		t.Errorf("reversed words: got %v, want [Red Apple]", got)
	}
}

func TestApplyFilter_CompositeIgnoresOwnPredicate(t *testing.T) {
	node := &interfaces.Composite{
		Field:    "category",
		Operator: "eq",
		Value:    "Fruit",
		Logic:    interfaces.LogicOr,
		Children: []FilterNode{
			&interfaces.Leaf{Field: "category", Operator: "eq", Value: "Vegetable"},
		},
	}
	got := names(ApplyFilter(produceRows(), []FilterNode{node}))
	want := []string{"Red Carrot", ""}
	if !equalStrings(got, want) {
		t.Errorf("got %v, want %v (parent eq Fruit must be ignored)", got, want)
	}
}

func TestApplyFilter_CompositeLogic(t *testing.T) {
	and := &interfaces.Composite{
		Logic: interfaces.LogicAnd,
		Children: []FilterNode{
			&interfaces.Leaf{Field: "category", Operator: "eq", Value: "Fruit"},
			&interfaces.Leaf{Field: "price", Operator: "gt", Value: 110},
		},
	}
	if got := names(ApplyFilter(produceRows(), []FilterNode{and})); !equalStrings(got, []string{"Green Apple"}) {
		t.Errorf("and: got %v", got)
	}

	or := &interfaces.Composite{
		Logic: interfaces.LogicOr,
		Children: []FilterNode{
			&interfaces.Leaf{Field: "category", Operator: "isnull"},
			&interfaces.Leaf{Field: "price", Operator: "lt", Value: 60},
		},
	}
	if got := names(ApplyFilter(produceRows(), []FilterNode{or})); !equalStrings(got, []string{"Red Carrot", "Banana"}) {
		t.Errorf("or: got %v", got)
	}

	empty := &interfaces.Composite{Logic: interfaces.LogicOr}
	if got := ApplyFilter(produceRows(), []FilterNode{empty}); len(got) != 5 {
		t.Errorf("empty composite should match all, got %d rows", len(got))
	}
}

func TestApplyFilter_ImplicitAndAcrossNodes(t *testing.T) {
	filters := []FilterNode{
		&interfaces.Leaf{Field: "name", Operator: "contains", Value: "apple"},
		&interfaces.Leaf{Field: "price", Operator: "lt", Value: 110},
	}
	if got := names(ApplyFilter(produceRows(), filters)); !equalStrings(got, []string{"Red Apple"}) {
		t.Errorf("got %v, want [Red Apple]", got)
	}
}

func TestApplyFilter_EmptyListIsIdentity(t *testing.T) {
	rows := produceRows()
	got := ApplyFilter(rows, nil)
	if len(got) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i]["name"] != rows[i]["name"] {
			t.Errorf("row %d changed order", i)
		}
	}
}

func TestNegateOperator(t *testing.T) {
	if got := NegateOperator("eq"); got != "!eq" {
		t.Errorf("NegateOperator(eq) = %q", got)
	}
	if got := NegateOperator("!eq"); got != "eq" {
		t.Errorf("NegateOperator(!eq) = %q", got)
	}
}
