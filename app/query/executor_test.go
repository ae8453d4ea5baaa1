package query

import (
	"testing"
)

func TestParseQuery_AllStages(t *testing.T) {
	q, err := ParseQuery(`filter region=East | sort "unit price" desc, name | group region desc, product | agg sum(price) avg(price) | pivot rows=product cols=region measures=sum(price),count(price) rowsort=asc | page 2 20`, "")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}

	if len(q.Filters) != 1 {
		t.Errorf("filters = %d, want 1", len(q.Filters))
	}

	wantSort := []SortKey{{Field: "unit price", Direction: SortDesc}, {Field: "name", Direction: SortAsc}}
	if len(q.Sort) != len(wantSort) {
		t.Fatalf("sort = %+v", q.Sort)
	}
	for i := range wantSort {
		if q.Sort[i] != wantSort[i] {
			t.Errorf("sort[%d] = %+v, want %+v", i, q.Sort[i], wantSort[i])
		}
	}

	if len(q.Group) != 2 || q.Group[0].Field != "region" || q.Group[0].Direction != SortDesc || q.Group[1].Field != "product" {
		t.Errorf("group = %+v", q.Group)
	}

	wantAgg := []AggregateSpec{{Field: "price", Func: AggSum}, {Field: "price", Func: AggAvg}}
	if len(q.Aggregates) != 2 || q.Aggregates[0] != wantAgg[0] || q.Aggregates[1] != wantAgg[1] {
		t.Errorf("aggregates = %+v", q.Aggregates)
	}

	if q.Pivot == nil {
		t.Fatal("pivot not parsed")
	}
	if len(q.Pivot.Rows.Fields) != 1 || q.Pivot.Rows.Fields[0] != "product" || q.Pivot.Rows.Sort != SortAsc {
		t.Errorf("pivot rows = %+v", q.Pivot.Rows)
	}
	if len(q.Pivot.Columns.Fields) != 1 || q.Pivot.Columns.Fields[0] != "region" || q.Pivot.Columns.Sort != "" {
		t.Errorf("pivot cols = %+v", q.Pivot.Columns)
	}
	if len(q.Pivot.Measures) != 2 || q.Pivot.Measures[1].Func != AggCount {
		t.Errorf("pivot measures = %+v", q.Pivot.Measures)
	}

	if q.Page != 2 || q.PageSize != 20 {
		t.Errorf("page = %d/%d", q.Page, q.PageSize)
	}
}

func TestParseQuery_BareExpressionIsFilter(t *testing.T) {
	q, err := ParseQuery("apple OR pear | page 1", "name")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if len(q.Filters) != 1 {
		t.Fatalf("filters = %d", len(q.Filters))
	}
	rows := []Row{{"name": "apple"}, {"name": "kiwi"}, {"name": "pear"}}
	if got := names(ApplyFilter(rows, q.Filters)); !equalStrings(got, []string{"apple", "pear"}) {
		t.Errorf("got %v", got)
	}
	if q.Page != 1 || q.PageSize != 0 {
		t.Errorf("page = %d/%d", q.Page, q.PageSize)
	}
}

func TestParseQuery_PipeInsideQuotes(t *testing.T) {
	q, err := ParseQuery(`filter name="a|b" | sort name`, "")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if len(q.Filters) != 1 || len(q.Sort) != 1 {
		t.Errorf("filters=%d sort=%d", len(q.Filters), len(q.Sort))
	}
}

func TestParseQuery_Errors(t *testing.T) {
	tests := []string{
		"sort",
		"agg median(price)",
		"agg sum",
		"agg sum()",
		"pivot rows=a",
		"pivot rows=a measures=sum(x) bogus=1",
		"pivot rows",
		"page two",
		"page 1 ten",
		"page",
	}
	for _, text := range tests {
		if _, err := ParseQuery(text, ""); err == nil {
			t.Errorf("ParseQuery(%q) should fail", text)
		}
	}
}

func TestQuery_Inputs(t *testing.T) {
	q := &Query{PageSize: 10}
	in := q.Inputs("ds", numberedRows(3))
	if in.Page != 1 || in.PageSize != 10 || in.DatasetID != "ds" || len(in.Rows) != 3 {
		t.Errorf("inputs = %+v", in)
	}
}
