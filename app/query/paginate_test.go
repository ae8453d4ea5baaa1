package query

import "testing"

func numberedRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{"n": i + 1}
	}
	return rows
}

func TestPaginate(t *testing.T) {
	rows := numberedRows(100)

	tests := []struct {
		name      string
		page      int
		pageSize  int
		wantLen   int
		wantFirst int
	}{
		{"second page", 2, 10, 10, 11},
		{"first page", 1, 10, 10, 1},
		{"last partial page", 4, 30, 10, 91},
		{"page past the end", 100, 10, 0, 0},
		{"page zero", 0, 10, 0, 0},
		{"negative page", -1, 10, 0, 0},
		{"zero size", 1, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(rows, tt.page, tt.pageSize)
			if got == nil {
				t.Fatalf("Paginate returned nil, want empty slice")
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0]["n"] != tt.wantFirst {
				t.Errorf("first = %v, want %d", got[0]["n"], tt.wantFirst)
			}
		})
	}
}

func TestPaginate_ReturnsCopy(t *testing.T) {
	items := []int{1, 2, 3, 4}
	page := Paginate(items, 1, 2)
	page[0] = 99
	if items[0] != 1 {
		t.Errorf("Paginate must not alias the input")
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct{ total, size, want int }{
		{100, 10, 10},
		{101, 10, 11},
		{0, 10, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := PageCount(tt.total, tt.size); got != tt.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}
