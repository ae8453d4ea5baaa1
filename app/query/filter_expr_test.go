package query

import (
	"testing"

	"gridquery/app/interfaces"
)

func TestTokenizer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "simple word",
			input: "scrappy",
			expected: []Token{
				{Type: TokenLiteral, Value: "scrappy"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "quoted field with OR",
			input: `"user name"=scrappy OR "user name"=xray*`,
			expected: []Token{
				{Type: TokenLiteral, Value: `"user name"=scrappy`},
				{Type: TokenOR, Value: "OR"},
				{Type: TokenLiteral, Value: `"user name"=xray*`},
				{Type: TokenEOF},
			},
		},
		{
			name:  "NOT operator lowercase",
			input: "not scrappy",
			expected: []Token{
				{Type: TokenNOT, Value: "not"},
				{Type: TokenLiteral, Value: "scrappy"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "parentheses",
			input: "(scrappy OR bob)",
			expected: []Token{
				{Type: TokenLParen, Value: "("},
				{Type: TokenLiteral, Value: "scrappy"},
				{Type: TokenOR, Value: "OR"},
				{Type: TokenLiteral, Value: "bob"},
				{Type: TokenRParen, Value: ")"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "quoted value with parenthesis",
			input: `status="ok (cached)"`,
			expected: []Token{
				{Type: TokenLiteral, Value: `status="ok (cached)"`},
				{Type: TokenEOF},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := NewFilterExprTokenizer(tt.input).Tokens()
			if len(tokens) != len(tt.expected) {
				t.Fatalf("got %d tokens %v, want %d", len(tokens), tokens, len(tt.expected))
			}
			for i, tok := range tokens {
				if tok != tt.expected[i] {
					t.Errorf("token %d = %+v, want %+v", i, tok, tt.expected[i])
				}
			}
		})
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		input string
		want  interfaces.Leaf
	}{
		{"apple", interfaces.Leaf{Field: AnyField, Operator: OpContains, Value: "apple"}},
		{`"red apple"`, interfaces.Leaf{Field: AnyField, Operator: OpContains, Value: "red apple"}},
		{"price>=10", interfaces.Leaf{Field: "price", Operator: OpGte, Value: 10.0}},
		{"price<5.5", interfaces.Leaf{Field: "price", Operator: OpLt, Value: 5.5}},
		{"code='10'", interfaces.Leaf{Field: "code", Operator: OpEq, Value: "10"}},
		{"active=true", interfaces.Leaf{Field: "active", Operator: OpEq, Value: true}},
		{"name!=bob", interfaces.Leaf{Field: "name", Operator: OpNeq, Value: "bob"}},
		{"name~ali", interfaces.Leaf{Field: "name", Operator: OpContains, Value: "ali"}},
		{"name!~ali", interfaces.Leaf{Field: "name", Operator: "!contains", Value: "ali"}},
		{"name^=Al", interfaces.Leaf{Field: "name", Operator: OpStartsWith, Value: "Al"}},
		{"name$=ce", interfaces.Leaf{Field: "name", Operator: OpEndsWith, Value: "ce"}},
		{"name=Al*", interfaces.Leaf{Field: "name", Operator: OpStartsWith, Value: "Al"}},
		{"name=*", interfaces.Leaf{Field: "name", Operator: OpIsNotEmpty}},
		{"deleted=null", interfaces.Leaf{Field: "deleted", Operator: OpIsNull}},
		{"deleted!=NULL", interfaces.Leaf{Field: "deleted", Operator: OpIsNotNull}},
		{`"event name"=login`, interfaces.Leaf{Field: "event name", Operator: OpEq, Value: "login"}},
		{"data{$.user.id}=7", interfaces.Leaf{Field: "data{$.user.id}", Operator: OpEq, Value: 7.0}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node := ParseCondition(tt.input, "")
			leaf, ok := node.(*interfaces.Leaf)
			if !ok {
				t.Fatalf("expected leaf, got %T", node)
			}
			if *leaf != tt.want {
				t.Errorf("got %+v, want %+v", *leaf, tt.want)
			}
		})
	}
}

func TestParseFilterExpression_Structure(t *testing.T) {
	node := ParseFilterExpression("a=1 OR b=2 OR (c=3 AND d=4)", "")
	or, ok := node.(*interfaces.Composite)
	if !ok || or.Logic != interfaces.LogicOr {
		t.Fatalf("expected OR composite, got %#v", node)
	}
	if len(or.Children) != 3 {
		t.Fatalf("expected flattened OR with 3 children, got %d", len(or.Children))
	}
	and, ok := or.Children[2].(*interfaces.Composite)
	if !ok || and.Logic != interfaces.LogicAnd || len(and.Children) != 2 {
		t.Errorf("third child should be an AND of two leaves, got %#v", or.Children[2])
	}

	if ParseFilterExpression("   ", "") != nil {
		t.Errorf("empty expression should parse to nil")
	}
}

func TestParseFilterExpression_Evaluation(t *testing.T) {
	rows := []Row{
		{"name": "Alice", "dept": "eng", "age": 30.0},
		{"name": "Bob", "dept": "ops", "age": 45.0},
		{"name": "Carol", "dept": "eng", "age": 52.0},
		{"name": "Dan", "dept": "sales"},
	}

	tests := []struct {
		expr string
		want []string
	}{
		{"dept=eng", []string{"Alice", "Carol"}},
		{"dept=eng age>40", []string{"Carol"}},
		{"dept=eng AND age>40", []string{"Carol"}},
		{"dept=ops OR age<35", []string{"Alice", "Bob"}},
		{"NOT dept=eng", []string{"Bob", "Dan"}},
		{"NOT (dept=eng OR dept=ops)", []string{"Dan"}},
		{"NOT NOT dept=ops", []string{"Bob"}},
		{"age=null", []string{"Dan"}},
		{"(dept=eng OR dept=sales) AND NOT name=Carol", []string{"Alice", "Dan"}},
		{"ali", []string{"Alice"}},
		{"(dept=eng", []string{"Alice", "Carol"}},
		{"dept=eng )", []string{"Alice", "Carol"}},
		{"OR", []string{"Alice", "Bob", "Carol", "Dan"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			node := ParseFilterExpression(tt.expr, "")
			got := names(ApplyFilter(rows, []FilterNode{node}))
			if !equalStrings(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFilterExpression_DefaultField(t *testing.T) {
	rows := []Row{
		{"name": "eng lead", "dept": "ops"},
		{"name": "Carol", "dept": "eng"},
	}
	node := ParseFilterExpression("eng", "dept")
	if got := names(ApplyFilter(rows, []FilterNode{node})); !equalStrings(got, []string{"Carol"}) {
		t.Errorf("got %v, want [Carol]", got)
	}
}
