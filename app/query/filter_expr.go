package query

import (
	"strconv"
	"strings"

	"gridquery/app/interfaces"
)

// TokenType represents the type of a token in the filter expression
type TokenType int

const (
	TokenLiteral TokenType = iota // A word or condition (e.g., "scrappy", "username=admin")
	TokenAND                      // AND operator
	TokenOR                       // OR operator
	TokenNOT                      // NOT operator
	TokenLParen                   // Left parenthesis (
	TokenRParen                   // Right parenthesis )
	TokenEOF                      // End of expression
)

// Token represents a token in the filter expression
type Token struct {
	Type  TokenType
	Value string
}

// FilterExprTokenizer tokenizes a filter expression
type FilterExprTokenizer struct {
	input    string
	pos      int
	tokens   []Token
	tokenPos int
}

// NewFilterExprTokenizer creates a new tokenizer for a filter expression
func NewFilterExprTokenizer(input string) *FilterExprTokenizer {
	t := &FilterExprTokenizer{input: input}
	t.tokenize()
	return t
}

func (t *FilterExprTokenizer) tokenize() {
	t.tokens = nil
	t.pos = 0

	for t.pos < len(t.input) {
		if isSpace(t.input[t.pos]) {
			t.pos++
			continue
		}

		if t.input[t.pos] == '(' {
			t.tokens = append(t.tokens, Token{Type: TokenLParen, Value: "("})
			t.pos++
			continue
		}
		if t.input[t.pos] == ')' {
			t.tokens = append(t.tokens, Token{Type: TokenRParen, Value: ")"})
			t.pos++
			continue
		}

		// A word runs up to whitespace or a parenthesis; quoted sections may
		// contain both, as in "event name"="login (ok)"
		start := t.pos
		for t.pos < len(t.input) && !isSpace(t.input[t.pos]) && t.input[t.pos] != '(' && t.input[t.pos] != ')' {
			if t.input[t.pos] == '"' || t.input[t.pos] == '\'' {
				quote := t.input[t.pos]
				t.pos++
				for t.pos < len(t.input) && t.input[t.pos] != quote {
					t.pos++
				}
				if t.pos < len(t.input) {
					t.pos++
				}
				continue
			}
			t.pos++
		}

		word := t.input[start:t.pos]
		switch strings.ToUpper(word) {
		case "AND":
			t.tokens = append(t.tokens, Token{Type: TokenAND, Value: word})
		case "OR":
			t.tokens = append(t.tokens, Token{Type: TokenOR, Value: word})
		case "NOT":
			t.tokens = append(t.tokens, Token{Type: TokenNOT, Value: word})
		default:
			if word != "" {
				t.tokens = append(t.tokens, Token{Type: TokenLiteral, Value: word})
			}
		}
	}

	t.tokens = append(t.tokens, Token{Type: TokenEOF})
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Peek returns the current token without consuming it
func (t *FilterExprTokenizer) Peek() Token {
	if t.tokenPos >= len(t.tokens) {
		return Token{Type: TokenEOF}
	}
	return t.tokens[t.tokenPos]
}

// Next returns the current token and advances to the next
func (t *FilterExprTokenizer) Next() Token {
	tok := t.Peek()
	t.tokenPos++
	return tok
}

// Tokens returns every token including the trailing EOF
func (t *FilterExprTokenizer) Tokens() []Token {
	return t.tokens
}

// FilterExprParser parses a filter expression into a filter tree
type FilterExprParser struct {
	tokenizer    *FilterExprTokenizer
	defaultField string
}

// NewFilterExprParser creates a new parser. Bare words search defaultField,
// or every field when it is empty.
func NewFilterExprParser(input, defaultField string) *FilterExprParser {
	if defaultField == "" {
		defaultField = AnyField
	}
	return &FilterExprParser{
		tokenizer:    NewFilterExprTokenizer(input),
		defaultField: defaultField,
	}
}

// Parse returns nil for an empty expression. Malformed input never fails:
// a missing closing parenthesis is implied and stray tokens are skipped.
func (p *FilterExprParser) Parse() FilterNode {
	if p.tokenizer.Peek().Type == TokenEOF {
		return nil
	}
	var parts []FilterNode
	for p.tokenizer.Peek().Type != TokenEOF {
		if p.tokenizer.Peek().Type == TokenRParen {
			p.tokenizer.Next()
			continue
		}
		parts = append(parts, p.parseOr())
	}
	return joinNodes(interfaces.LogicAnd, parts)
}

// parseOr parses OR expressions (lowest precedence)
func (p *FilterExprParser) parseOr() FilterNode {
	children := []FilterNode{p.parseAnd()}
	for p.tokenizer.Peek().Type == TokenOR {
		p.tokenizer.Next()
		children = append(children, p.parseAnd())
	}
	return joinNodes(interfaces.LogicOr, children)
}

// parseAnd parses explicit and implicit (adjacent terms) AND expressions
func (p *FilterExprParser) parseAnd() FilterNode {
	children := []FilterNode{p.parseNot()}
	for {
		switch p.tokenizer.Peek().Type {
		case TokenAND:
			p.tokenizer.Next()
			children = append(children, p.parseNot())
			continue
		case TokenLiteral, TokenNOT, TokenLParen:
			children = append(children, p.parseNot())
			continue
		}
		break
	}
	return joinNodes(interfaces.LogicAnd, children)
}

// parseNot parses NOT expressions (high precedence)
func (p *FilterExprParser) parseNot() FilterNode {
	if p.tokenizer.Peek().Type == TokenNOT {
		p.tokenizer.Next()
		return NegateFilter(p.parseNot())
	}
	return p.parsePrimary()
}

// parsePrimary parses parenthesized expressions and conditions
func (p *FilterExprParser) parsePrimary() FilterNode {
	tok := p.tokenizer.Peek()

	if tok.Type == TokenLParen {
		p.tokenizer.Next()
		if p.tokenizer.Peek().Type == TokenRParen {
			p.tokenizer.Next()
			return &interfaces.Composite{Logic: interfaces.LogicAnd}
		}
		node := p.parseOr()
		if p.tokenizer.Peek().Type == TokenRParen {
			p.tokenizer.Next()
		}
		return node
	}

	if tok.Type == TokenLiteral {
		p.tokenizer.Next()
		return ParseCondition(tok.Value, p.defaultField)
	}

	// Dangling operator: consume it and match everything
	if tok.Type != TokenEOF {
		p.tokenizer.Next()
	}
	return &interfaces.Composite{Logic: interfaces.LogicAnd}
}

// joinNodes wraps several nodes in a composite, merging nested composites
// of the same logic.
func joinNodes(logic interfaces.Logic, nodes []FilterNode) FilterNode {
	if len(nodes) == 1 {
		return nodes[0]
	}
	c := &interfaces.Composite{Logic: logic}
	for _, n := range nodes {
		if inner, ok := n.(*interfaces.Composite); ok && inner.Logic == logic && len(inner.Children) > 0 {
			c.Children = append(c.Children, inner.Children...)
			continue
		}
		c.Children = append(c.Children, n)
	}
	return c
}

// NegateFilter returns the complement of a filter tree: leaf operators are
// negated and composites are inverted by De Morgan's laws. A composite
// without children matches everything and is returned unchanged.
func NegateFilter(node FilterNode) FilterNode {
	switch n := node.(type) {
	case *interfaces.Leaf:
		return &interfaces.Leaf{Field: n.Field, Operator: NegateOperator(n.Operator), Value: n.Value}
	case *interfaces.Composite:
		if len(n.Children) == 0 {
			return n
		}
		logic := interfaces.LogicOr
		if n.Logic == interfaces.LogicOr {
			logic = interfaces.LogicAnd
		}
		children := make([]FilterNode, len(n.Children))
		for i, c := range n.Children {
			children[i] = NegateFilter(c)
		}
		return &interfaces.Composite{Logic: logic, Children: children}
	default:
		return node
	}
}

// conditionOperators in match priority: two-character operators first
var conditionOperators = []struct {
	token string
	op    string
}{
	{">=", OpGte},
	{"<=", OpLte},
	{"!=", OpNeq},
	{"!~", NegatePrefix + OpContains},
	{"^=", OpStartsWith},
	{"$=", OpEndsWith},
	{"~", OpContains},
	{"=", OpEq},
	{">", OpGt},
	{"<", OpLt},
}

// ParseCondition turns one literal into a leaf. Supported forms:
//
//	word            contains on defaultField
//	field=value     equality; value* is a prefix match, * any non-empty value
//	field!=value    inequality
//	field>n field>=n field<n field<=n
//	field~text      contains, field!~text does not contain
//	field^=text     starts with, field$=text ends with
//	field=null      is null, field!=null is not null
//
// Field names and values may be quoted. Unquoted values that parse as
// numbers or booleans are compared as such.
func ParseCondition(literal, defaultField string) FilterNode {
	if defaultField == "" {
		defaultField = AnyField
	}
	idx, tokenLen, op := findConditionOperator(literal)
	if idx <= 0 {
		return &interfaces.Leaf{Field: defaultField, Operator: OpContains, Value: unquote(literal)}
	}

	field := unquote(strings.TrimSpace(literal[:idx]))
	rawValue := strings.TrimSpace(literal[idx+tokenLen:])
	quoted := isQuoted(rawValue)
	text := unquote(rawValue)

	if !quoted {
		switch {
		case strings.EqualFold(text, "null") && op == OpEq:
			return &interfaces.Leaf{Field: field, Operator: OpIsNull}
		case strings.EqualFold(text, "null") && op == OpNeq:
			return &interfaces.Leaf{Field: field, Operator: OpIsNotNull}
		case text == "*" && op == OpEq:
			return &interfaces.Leaf{Field: field, Operator: OpIsNotEmpty}
		case strings.HasSuffix(text, "*") && op == OpEq:
			return &interfaces.Leaf{Field: field, Operator: OpStartsWith, Value: strings.TrimSuffix(text, "*")}
		}
	}

	var value any = text
	if !quoted && (op == OpEq || op == OpNeq || op == OpGt || op == OpGte || op == OpLt || op == OpLte) {
		value = literalValue(text)
	}
	return &interfaces.Leaf{Field: field, Operator: op, Value: value}
}

// findConditionOperator locates the first operator outside quotes
func findConditionOperator(s string) (idx, tokenLen int, op string) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		for _, co := range conditionOperators {
			if strings.HasPrefix(s[i:], co.token) {
				return i, len(co.token), co.op
			}
		}
	}
	return -1, 0, ""
}

// literalValue converts an unquoted value to a number or bool when it looks like one
func literalValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func isQuoted(s string) bool {
	if len(s) >= 2 {
		return (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')
	}
	return false
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}

// ParseFilterExpression parses a filter expression into a filter tree,
// nil when the expression is empty.
func ParseFilterExpression(expr, defaultField string) FilterNode {
	return NewFilterExprParser(expr, defaultField).Parse()
}
