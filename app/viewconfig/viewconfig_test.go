package viewconfig

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gridquery/app/interfaces"
	"gridquery/app/query"
)

func TestFilterDescriptor_RoundTrip(t *testing.T) {
	d := FilterDescriptor{
		Field: "ignored", Operator: "eq", Value: "x",
		Logic: "or",
		Filters: []FilterDescriptor{
			{Field: "region", Operator: "eq", Value: "East"},
			{Field: "price", Operator: "gt", Value: 100.0},
		},
	}
	node := d.Node()
	c, ok := node.(*interfaces.Composite)
	if !ok || c.Logic != interfaces.LogicOr || len(c.Children) != 2 || c.Field != "ignored" {
		t.Fatalf("node = %#v", node)
	}

	back := DescribeFilter(node)
	if back.Field != "ignored" || back.Logic != "or" || len(back.Filters) != 2 || back.Filters[1].Value != 100.0 {
		t.Errorf("round trip = %+v", back)
	}

	// The composite's own predicate never decides the match
	rows := []query.Row{{"region": "East", "price": 1.0}, {"region": "West", "price": 5.0}}
	if got := query.ApplyFilter(rows, []query.FilterNode{node}); len(got) != 1 || got[0]["region"] != "East" {
		t.Errorf("filtered = %v", got)
	}
}

func TestSortKeys(t *testing.T) {
	keys := SortKeys([]SortDescriptor{{Field: "a", Dir: "DESC"}, {Field: ""}, {Field: "b", Dir: "sideways"}})
	if len(keys) != 2 || keys[0].Direction != query.SortDesc || keys[1].Direction != query.SortAsc {
		t.Errorf("keys = %+v", keys)
	}
}

func TestResolveGroupKeys(t *testing.T) {
	columns := []ColumnDef{
		{Field: "file", GroupableSortDir: "desc", GroupableSortCompare: "natural"},
		{Field: "region"},
	}
	keys, err := ResolveGroupKeys([]GroupDescriptor{{Field: "file"}, {Field: "region", Dir: "desc"}, {Field: "product"}}, columns, NewRegistry())
	if err != nil {
		t.Fatalf("ResolveGroupKeys: %v", err)
	}
	if keys[0].Direction != query.SortDesc || keys[0].Compare == nil || keys[0].CompareName != "natural" {
		t.Errorf("file key = %+v", keys[0])
	}
	if keys[1].Direction != query.SortDesc || keys[1].Compare != nil {
		t.Errorf("region key = %+v", keys[1])
	}
	if keys[2].Direction != query.SortAsc {
		t.Errorf("product key = %+v", keys[2])
	}

	_, err = ResolveGroupKeys([]GroupDescriptor{{Field: "x"}}, []ColumnDef{{Field: "x", GroupableSortCompare: "nope"}}, NewRegistry())
	if !errors.Is(err, ErrUnknownComparator) {
		t.Errorf("err = %v, want ErrUnknownComparator", err)
	}
}

func TestGroupWithNaturalComparator(t *testing.T) {
	rows := []query.Row{{"file": "file10"}, {"file": "file2"}, {"file": "file1"}}
	keys, err := ResolveGroupKeys([]GroupDescriptor{{Field: "file"}},
		[]ColumnDef{{Field: "file", GroupableSortDir: "desc", GroupableSortCompare: "natural"}}, NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	tree := query.Group(rows, keys, nil)
	var got []any
	for _, r := range tree.Roots {
		got = append(got, tree.Nodes[r].Value)
	}
	want := []any{"file10", "file2", "file1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("group order = %v, want %v", got, want)
		}
	}
}

func TestComparators(t *testing.T) {
	tests := []struct {
		name string
		cmp  query.CompareFunc
		a, b any
		want int
	}{
		{"natural numbers", NaturalCompare, "file2", "file10", -1},
		{"natural leading zeros", NaturalCompare, "v007", "v7", 0},
		{"natural prefix", NaturalCompare, "ab", "abc", -1},
		{"natural text", NaturalCompare, "b1", "a2", 1},
		{"natural non-string", NaturalCompare, 2.0, 10.0, -1},
		{"case insensitive", CaseInsensitiveCompare, "apple", "Banana", -1},
		{"case insensitive equal", CaseInsensitiveCompare, "ABC", "abc", 0},
		{"length", LengthCompare, "zz", "aaa", -1},
		{"length tie", LengthCompare, "b", "a", 1},
	}
	for _, tt := range tests {
		if got := tt.cmp(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: cmp(%v, %v) = %d, want %d", tt.name, tt.a, tt.b, got, tt.want)
		}
	}

	reg := NewRegistry()
	reg.Register("reverse", func(a, b any) int { return -query.CompareValues(a, b) })
	if _, ok := reg.Lookup("reverse"); !ok {
		t.Errorf("registered comparator not found")
	}
	if names := reg.Names(); len(names) != 5 || names[0] != "caseInsensitive" {
		t.Errorf("names = %v", names)
	}
}

func TestResolveAggregates(t *testing.T) {
	specs, err := ResolveAggregates(
		map[string][]string{"price": {"sum", "AVG"}, "qty": {"max"}},
		[]ColumnDef{{Field: "price", Aggregates: []string{"sum", "count"}}},
	)
	if err != nil {
		t.Fatalf("ResolveAggregates: %v", err)
	}
	want := []query.AggregateSpec{
		{Field: "price", Func: query.AggSum},
		{Field: "price", Func: query.AggAvg},
		{Field: "qty", Func: query.AggMax},
		{Field: "price", Func: query.AggCount},
	}
	if len(specs) != len(want) {
		t.Fatalf("specs = %+v", specs)
	}
	for i := range want {
		if specs[i] != want[i] {
			t.Errorf("spec %d = %+v, want %+v", i, specs[i], want[i])
		}
	}

	if _, err := ResolveAggregates(map[string][]string{"x": {"median"}}, nil); err == nil {
		t.Errorf("unknown aggregate should fail")
	}
}

func TestPivotSchema_Config(t *testing.T) {
	s := PivotSchema{
		Dimensions: map[string]Dimension{
			"cat":  {Caption: "Category", Field: "Category"},
			"Prod": {Caption: "Product"},
		},
		Measures: map[string]MeasureDef{
			"total": {Caption: "Total sales", Field: "Sales", Aggregate: "sum"},
			"n":     {Field: "Sales", Aggregate: "count"},
		},
		Columns: []AxisRef{{Name: "cat"}},
		Rows:    []AxisRef{{Name: "Prod"}},
		RowSort: "desc",
	}
	cfg, err := s.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.Columns.Fields[0] != "Category" || cfg.Rows.Fields[0] != "Prod" {
		t.Errorf("axes = %+v / %+v", cfg.Columns, cfg.Rows)
	}
	if cfg.Rows.Sort != query.SortDesc || cfg.Columns.Sort != "" {
		t.Errorf("sorts = %q / %q", cfg.Rows.Sort, cfg.Columns.Sort)
	}
	// Without Values the measures are ordered by name
	if len(cfg.Measures) != 2 || cfg.Measures[0].Name != "n" || cfg.Measures[1].Name != "Total sales" {
		t.Errorf("measures = %+v", cfg.Measures)
	}
	if caps := s.Captions(s.Columns); caps[0] != "Category" {
		t.Errorf("captions = %v", caps)
	}

	bad := s
	bad.Rows = []AxisRef{{Name: "missing"}}
	if _, err := bad.Config(); err == nil {
		t.Errorf("unknown dimension should fail")
	}
	bad = s
	bad.Values = []AxisRef{{Name: "missing"}}
	if _, err := bad.Config(); err == nil {
		t.Errorf("unknown measure should fail")
	}
}

const viewYAML = `
name: east sales
columns:
  - field: product
    groupableSortDir: desc
    aggregates: [count]
filter:
  - field: region
    operator: eq
    value: East
sort:
  - field: price
    dir: desc
group:
  - field: product
aggregates:
  price: [sum]
page: 1
pageSize: 10
`

func TestView_Inputs(t *testing.T) {
	v, err := ParseView([]byte(viewYAML))
	if err != nil {
		t.Fatalf("ParseView: %v", err)
	}
	rows := []query.Row{
		{"region": "East", "product": "A", "price": 100.0},
		{"region": "West", "product": "B", "price": 40.0},
		{"region": "East", "product": "B", "price": 200.0},
	}
	in, err := v.Inputs("sales", rows, NewRegistry())
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}

	state, err := query.NewEngine(nil, query.DefaultCacheConfig(), nil).Recompute(context.Background(), in)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if state.Total != 2 {
		t.Errorf("Total = %d, want 2", state.Total)
	}
	first := state.Groups.Nodes[state.Groups.Roots[0]]
	if first.Value != "B" {
		t.Errorf("first group = %v, want B (desc)", first.Value)
	}
	if got := state.Totals.Get("price", query.AggSum); got != query.ValueCell(300) {
		t.Errorf("sum = %v", got)
	}
	if got := state.Totals.Get("product", query.AggCount); got != query.ValueCell(2) {
		t.Errorf("count = %v", got)
	}
}

func TestView_JSONAndSaveLoad(t *testing.T) {
	v, err := ParseView([]byte(`{"filter":[{"field":"a","operator":"gt","value":3}],"sort":[{"field":"a"}],"pageSize":5}`))
	if err != nil {
		t.Fatalf("ParseView: %v", err)
	}
	if len(v.Filter) != 1 || v.PageSize != 5 {
		t.Fatalf("view = %+v", v)
	}

	path := filepath.Join(t.TempDir(), "views", "a.yml")
	if err := SaveView(path, v); err != nil {
		t.Fatalf("SaveView: %v", err)
	}
	loaded, err := LoadView(path)
	if err != nil {
		t.Fatalf("LoadView: %v", err)
	}
	if len(loaded.Sort) != 1 || loaded.Sort[0].Field != "a" || loaded.PageSize != 5 || loaded.Filter[0].Operator != "gt" {
		t.Errorf("loaded = %+v", loaded)
	}

	if _, err := LoadView(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Errorf("missing file should fail")
	}
}

func TestFromQuery(t *testing.T) {
	q, err := query.ParseQuery("filter region=East | sort price desc | group product | agg sum(price) | pivot rows=product measures=sum(price) | page 2 5", "")
	if err != nil {
		t.Fatal(err)
	}
	v := FromQuery(q)
	if len(v.Filter) != 1 || v.Sort[0].Dir != "desc" || v.Group[0].Field != "product" || v.Page != 2 || v.PageSize != 5 {
		t.Errorf("view = %+v", v)
	}
	if v.Pivot == nil || v.Pivot.Rows[0].Name != "product" || len(v.Pivot.Values) != 1 {
		t.Fatalf("pivot = %+v", v.Pivot)
	}

	in, err := v.Inputs("ds", nil, NewRegistry())
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	if in.Pivot == nil || in.Pivot.Measures[0].Func != query.AggSum || in.Pivot.Rows.Fields[0] != "product" {
		t.Errorf("pivot config = %+v", in.Pivot)
	}
	if len(in.Aggregates) != 1 || in.Aggregates[0].Field != "price" {
		t.Errorf("aggregates = %+v", in.Aggregates)
	}
}

func TestPersistedOptions(t *testing.T) {
	in := query.Inputs{
		Sort:     []query.SortKey{{Field: "a", Direction: query.SortDesc}},
		Filters:  []query.FilterNode{&interfaces.Leaf{Field: "a", Operator: "eq", Value: 1.0}},
		Page:     3,
		PageSize: 25,
	}
	opts := OptionsFromInputs(in)
	opts.Widths = map[string]int{"a": 120}

	var restored query.Inputs
	opts.Apply(&restored)
	if restored.Page != 3 || restored.PageSize != 25 || len(restored.Sort) != 1 || restored.Sort[0].Direction != query.SortDesc {
		t.Errorf("restored = %+v", restored)
	}
	leaf, ok := restored.Filters[0].(*interfaces.Leaf)
	if !ok || leaf.Value != 1.0 {
		t.Errorf("filter = %#v", restored.Filters[0])
	}

	var empty PersistedOptions
	empty.Apply(&restored)
	if restored.Page != 1 || restored.Filters != nil {
		t.Errorf("empty options should reset to page 1 without filters: %+v", restored)
	}
}

func TestFromInputs(t *testing.T) {
	in := query.Inputs{
		Filters:    []query.FilterNode{&interfaces.Leaf{Field: "region", Operator: "eq", Value: "East"}},
		Group:      []query.GroupKey{{Field: "file", Direction: query.SortDesc, Compare: NaturalCompare, CompareName: "natural"}},
		Aggregates: []query.AggregateSpec{{Field: "price", Func: query.AggSum}},
		Pivot: &query.PivotConfig{
			Rows:     query.PivotAxisSpec{Fields: []string{"region"}},
			Measures: []query.Measure{{Field: "price", Func: query.AggAvg}},
		},
		Collapsed: map[string]bool{"b": true, "a": true, "c": false},
		Page:      2,
		PageSize:  10,
	}

	v := FromInputs("sales", in)
	if v.Name != "sales" || len(v.Collapsed) != 2 || v.Collapsed[0] != "a" {
		t.Errorf("view = %+v", v)
	}
	if len(v.Columns) != 1 || v.Columns[0].GroupableSortCompare != "natural" {
		t.Errorf("columns = %+v", v.Columns)
	}

	got, err := v.Inputs("ds", nil, NewRegistry())
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	if len(got.Group) != 1 || got.Group[0].CompareName != "natural" || got.Group[0].Compare == nil || got.Group[0].Direction != query.SortDesc {
		t.Errorf("group = %+v", got.Group)
	}
	if len(got.Filters) != 1 || len(got.Aggregates) != 1 || got.Page != 2 || got.PageSize != 10 {
		t.Errorf("inputs = %+v", got)
	}
	if got.Pivot == nil || len(got.Pivot.Measures) != 1 || got.Pivot.Measures[0].Func != query.AggAvg {
		t.Errorf("pivot = %+v", got.Pivot)
	}
	if !got.Collapsed["a"] || !got.Collapsed["b"] || got.Collapsed["c"] {
		t.Errorf("collapsed = %v", got.Collapsed)
	}
}
