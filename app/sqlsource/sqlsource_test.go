package sqlsource

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"

	"gridquery/app/interfaces"
	"gridquery/app/query"
)

var header = []string{"id", "region", "product", "price"}

func sampleRows() []query.Row {
	return []query.Row{
		{"id": 1.0, "region": "East", "product": "A", "price": 100.0},
		{"id": 2.0, "region": "West", "product": "B", "price": 40.0},
		{"id": 3.0, "region": "East", "product": "C"},
		{"id": 4.0, "region": "north", "product": "Ab cd", "price": 250.0},
		{"id": 5.0, "product": "", "price": 10.0},
	}
}

func openSample(t *testing.T) (*sql.DB, *Provider) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sample.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	n, err := ImportRows(context.Background(), db, "sales", header, sampleRows(), nil)
	if err != nil {
		t.Fatalf("ImportRows: %v", err)
	}
	if n != 5 {
		t.Fatalf("imported %d rows, want 5", n)
	}
	p, err := NewProvider(context.Background(), db, "sales", nil)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return db, p
}

func ids(rows []query.Row) []float64 {
	out := []float64{}
	for _, r := range rows {
		out = append(out, r["id"].(float64))
	}
	return out
}

func leafNode(field, op string, value any) *interfaces.Leaf {
	return &interfaces.Leaf{Field: field, Operator: op, Value: value}
}

func TestFetch_FilterMatchesInMemory(t *testing.T) {
	_, p := openSample(t)

	tests := []struct {
		name   string
		filter query.FilterNode
		want   []float64
	}{
		{"eq text", leafNode("region", "eq", "East"), []float64{1, 3}},
		{"neq keeps null", leafNode("region", "neq", "East"), []float64{2, 4, 5}},
		{"gt skips null", leafNode("price", "gt", 50.0), []float64{1, 4}},
		{"lte", leafNode("price", "lte", 40.0), []float64{2, 5}},
		{"contains case-insensitive", leafNode("product", "contains", "b"), []float64{2, 4}},
		{"contains every word", leafNode("product", "contains", "cd ab"), []float64{4}},
		{"startswith", leafNode("region", "startswith", "ea"), []float64{1, 3}},
		{"endswith", leafNode("region", "endswith", "TH"), []float64{4}},
		{"isnull", leafNode("region", "isnull", nil), []float64{5}},
		{"isempty", leafNode("product", "isempty", nil), []float64{5}},
		{"isnotempty", leafNode("region", "isnotempty", nil), []float64{1, 2, 3, 4}},
		{"negated eq", leafNode("region", "!eq", "East"), []float64{2, 4, 5}},
		{"negated contains", leafNode("product", "!contains", "a"), []float64{2, 3, 5}},
		{"eq number", leafNode("price", "eq", 40.0), []float64{2}},
		{"number never equals text", leafNode("price", "eq", "40"), []float64{}},
		{"any field", leafNode(query.AnyField, "contains", "west"), []float64{2}},
		{"unknown operator passes", leafNode("region", "bogus", "x"), []float64{1, 2, 3, 4, 5}},
		{"or", &interfaces.Composite{Logic: interfaces.LogicOr, Children: []query.FilterNode{
			leafNode("region", "eq", "West"), leafNode("price", "gt", 200.0),
		}}, []float64{2, 4}},
		{"nested", &interfaces.Composite{Children: []query.FilterNode{
			leafNode("region", "eq", "East"),
			&interfaces.Composite{Logic: interfaces.LogicOr, Children: []query.FilterNode{
				leafNode("product", "eq", "A"), leafNode("price", "isnull", nil),
			}},
		}}, []float64{1, 3}},
		{"empty composite", &interfaces.Composite{Logic: interfaces.LogicOr}, []float64{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters := []query.FilterNode{tt.filter}
			resp, err := p.Fetch(context.Background(), query.ProviderRequest{
				Filters: filters,
				Sort:    []query.SortKey{{Field: "id", Direction: query.SortAsc}},
			})
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if got := ids(resp.Rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("sql ids = %v, want %v", got, tt.want)
			}
			if resp.Total != len(tt.want) {
				t.Errorf("Total = %d, want %d", resp.Total, len(tt.want))
			}
			if mem := ids(query.ApplyFilter(sampleRows(), filters)); !reflect.DeepEqual(mem, tt.want) {
				t.Errorf("in-memory ids = %v, want %v", mem, tt.want)
			}
		})
	}
}

func TestFetch_SortAndPage(t *testing.T) {
	_, p := openSample(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  query.ProviderRequest
		want []float64
		tot  int
	}{
		{"asc nulls last", query.ProviderRequest{Sort: []query.SortKey{{Field: "price", Direction: query.SortAsc}}}, []float64{5, 2, 1, 4, 3}, 5},
		{"desc nulls first", query.ProviderRequest{Sort: []query.SortKey{{Field: "price", Direction: query.SortDesc}}}, []float64{3, 4, 1, 2, 5}, 5},
		{"second page", query.ProviderRequest{
			Sort: []query.SortKey{{Field: "price", Direction: query.SortAsc}},
			Page: 2, PageSize: 2,
		}, []float64{1, 4}, 5},
		{"filtered page", query.ProviderRequest{
			Filters: []query.FilterNode{leafNode("region", "neq", "East")},
			Sort:    []query.SortKey{{Field: "id", Direction: query.SortDesc}},
			Page:    1, PageSize: 2,
		}, []float64{5, 4}, 3},
		{"page past the end", query.ProviderRequest{
			Sort: []query.SortKey{{Field: "id", Direction: query.SortAsc}},
			Page: 9, PageSize: 2,
		}, []float64{}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := p.Fetch(ctx, tt.req)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if got := ids(resp.Rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
			if resp.Total != tt.tot {
				t.Errorf("Total = %d, want %d", resp.Total, tt.tot)
			}
		})
	}

	// Sorting in memory gives the same order
	mem := query.ApplySort(sampleRows(), []query.SortKey{{Field: "price", Direction: query.SortDesc}})
	if got := ids(mem); !reflect.DeepEqual(got, []float64{3, 4, 1, 2, 5}) {
		t.Errorf("in-memory desc = %v", got)
	}
}

func TestFetch_RowValues(t *testing.T) {
	_, p := openSample(t)
	resp, err := p.Fetch(context.Background(), query.ProviderRequest{Filters: []query.FilterNode{leafNode("id", "eq", 3.0)}})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Rows) != 1 {
		t.Fatalf("rows = %v", resp.Rows)
	}
	row := resp.Rows[0]
	if _, ok := row["price"]; ok {
		t.Errorf("null price should be absent, got %v", row["price"])
	}
	if row["region"] != "East" || row["product"] != "C" {
		t.Errorf("row = %v", row)
	}
	if cols := p.Columns(); !reflect.DeepEqual(cols, header) {
		t.Errorf("columns = %v", cols)
	}
}

func TestFetch_UnknownColumnReadsAsNull(t *testing.T) {
	_, p := openSample(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter query.FilterNode
		want   []float64
	}{
		{"isnull", leafNode("nope", query.OpIsNull, nil), []float64{1, 2, 3, 4, 5}},
		{"eq fails", leafNode("nope", query.OpEq, 1.0), []float64{}},
		{"eq text fails", leafNode("nope", query.OpEq, "East"), []float64{}},
		{"neq passes", leafNode("nope", query.OpNeq, "East"), []float64{1, 2, 3, 4, 5}},
		{"gt fails", leafNode("nope", query.OpGt, 0.0), []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters := []query.FilterNode{tt.filter}
			resp, err := p.Fetch(ctx, query.ProviderRequest{
				Filters: filters,
				Sort:    []query.SortKey{{Field: "id", Direction: query.SortAsc}},
			})
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if got := ids(resp.Rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("sql ids = %v, want %v", got, tt.want)
			}
			if mem := ids(query.ApplyFilter(sampleRows(), filters)); !reflect.DeepEqual(mem, tt.want) {
				t.Errorf("in-memory ids = %v, want %v", mem, tt.want)
			}
		})
	}

	resp, err := p.Fetch(ctx, query.ProviderRequest{Sort: []query.SortKey{
		{Field: "nope", Direction: query.SortDesc},
		{Field: "id", Direction: query.SortDesc},
	}})
	if err != nil {
		t.Fatalf("sort on unknown column: %v", err)
	}
	if got := ids(resp.Rows); !reflect.DeepEqual(got, []float64{5, 4, 3, 2, 1}) {
		t.Errorf("ids = %v, want the id order", got)
	}
}

func TestFetch_PageBeforeFirstIsEmpty(t *testing.T) {
	_, p := openSample(t)
	for _, page := range []int{0, -3} {
		resp, err := p.Fetch(context.Background(), query.ProviderRequest{Page: page, PageSize: 2})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(resp.Rows) != 0 || resp.Total != 5 {
			t.Errorf("page %d: rows=%d total=%d, want 0 rows of 5", page, len(resp.Rows), resp.Total)
		}
		if got := query.Paginate(sampleRows(), page, 2); len(got) != 0 {
			t.Errorf("in-memory page %d has %d rows", page, len(got))
		}
	}

	_, _, pageSQL, pageArgs, err := Translate("t", []string{"a"}, query.ProviderRequest{Page: 0, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if want := `SELECT "a" FROM "t" LIMIT 0`; pageSQL != want || len(pageArgs) != 0 {
		t.Errorf("page = %s %v", pageSQL, pageArgs)
	}
}

func TestNewProvider_MissingTable(t *testing.T) {
	db, _ := openSample(t)
	if _, err := NewProvider(context.Background(), db, "missing", nil); err == nil {
		t.Errorf("missing table should fail")
	}
}

func TestTranslate(t *testing.T) {
	countSQL, countArgs, pageSQL, pageArgs, err := Translate("t", []string{"a", "b"}, query.ProviderRequest{
		Filters:  []query.FilterNode{leafNode("a", "eq", "x")},
		Sort:     []query.SortKey{{Field: "b", Direction: query.SortDesc}},
		Page:     2,
		PageSize: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := `SELECT COUNT(*) FROM "t" WHERE COALESCE("a" IS ?, 0)`; countSQL != want {
		t.Errorf("count = %s", countSQL)
	}
	if want := `SELECT "a", "b" FROM "t" WHERE COALESCE("a" IS ?, 0) ORDER BY "b" DESC NULLS FIRST LIMIT ? OFFSET ?`; pageSQL != want {
		t.Errorf("page = %s", pageSQL)
	}
	if !reflect.DeepEqual(countArgs, []any{"x"}) || !reflect.DeepEqual(pageArgs, []any{"x", 10, 10}) {
		t.Errorf("args = %v / %v", countArgs, pageArgs)
	}

	if got := QuoteIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdent = %s", got)
	}
}

func TestLikeEscaping(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "like.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rows := []query.Row{{"s": "100%"}, {"s": "1000"}, {"s": "a_b"}, {"s": "axb"}}
	if _, err := ImportRows(context.Background(), db, "t", []string{"s"}, rows, nil); err != nil {
		t.Fatal(err)
	}
	p, err := NewProvider(context.Background(), db, "t", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct{ needle, want string }{{"0%", "100%"}, {"_", "a_b"}} {
		resp, err := p.Fetch(context.Background(), query.ProviderRequest{Filters: []query.FilterNode{leafNode("s", "contains", tc.needle)}})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Rows) != 1 || resp.Rows[0]["s"] != tc.want {
			t.Errorf("contains %q = %v, want only %q", tc.needle, resp.Rows, tc.want)
		}
	}
}

func TestRecomputeRemoteOverSQL(t *testing.T) {
	_, p := openSample(t)
	engine := query.NewEngine(nil, query.DefaultCacheConfig(), nil)
	src := query.NewRemoteSource(p, nil)

	state, res := engine.RecomputeRemote(context.Background(), src, query.Inputs{
		Sort:       []query.SortKey{{Field: "id", Direction: query.SortAsc}},
		Aggregates: []query.AggregateSpec{{Field: "price", Func: query.AggSum}},
		Page:       1,
		PageSize:   10,
	})
	if res.Err != nil {
		t.Fatalf("RecomputeRemote: %v", res.Err)
	}
	if state.Total != 5 || state.PageCount != 1 {
		t.Errorf("Total = %d, PageCount = %d", state.Total, state.PageCount)
	}
	if got := state.Totals.Get("price", query.AggSum); got != query.ValueCell(400) {
		t.Errorf("sum = %v, want 400", got)
	}
}

func TestSQLValue(t *testing.T) {
	if got := sqlValue([]any{"x"}); got != `["x"]` {
		t.Errorf("nested = %v", got)
	}
	if got := sqlValue(3); got != 3.0 {
		t.Errorf("int = %v", got)
	}
	if got := cellValue(int64(7)); got != 7.0 {
		t.Errorf("cell int = %v", got)
	}
	if got := cellValue([]byte("b")); got != "b" {
		t.Errorf("cell bytes = %v", got)
	}
}
