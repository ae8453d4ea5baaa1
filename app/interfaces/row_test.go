package interfaces

import "testing"

func TestRowGet_JPathField(t *testing.T) {
	row := Row{
		"name":    "alice",
		"request": `{"params":{"duration":42,"user":"bob"}}`,
		"decoded": map[string]any{"level": "warn"},
	}

	tests := []struct {
		name     string
		field    string
		expected any
	}{
		{"literal key", "name", "alice"},
		{"missing key", "missing", nil},
		{"jpath on json string", "request{$.params.user}", "bob"},
		{"jpath numeric value", "request{$.params.duration}", int64(42)},
		{"jpath on decoded value", "decoded{$.level}", "warn"},
		{"jpath no match", "request{$.params.nope}", nil},
		{"jpath on missing column", "other{$.a}", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := row.Get(tt.field)
			if got != tt.expected {
				t.Errorf("Get(%q) = %#v, want %#v", tt.field, got, tt.expected)
			}
		})
	}
}

func TestParseFieldJPath(t *testing.T) {
	tests := []struct {
		input      string
		wantColumn string
		wantExpr   string
		wantOK     bool
	}{
		{"requestParameters{$.durationSeconds}", "requestParameters", "$.durationSeconds", true},
		{"plain", "plain", "", false},
		{"broken{", "broken{", "", false},
		{"{$.a}", "{$.a}", "", false},
	}

	for _, tt := range tests {
		column, expr, ok := ParseFieldJPath(tt.input)
		if column != tt.wantColumn || expr != tt.wantExpr || ok != tt.wantOK {
			t.Errorf("ParseFieldJPath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.input, column, expr, ok, tt.wantColumn, tt.wantExpr, tt.wantOK)
		}
	}
}
