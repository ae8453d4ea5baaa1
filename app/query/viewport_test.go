package query

import (
	"math"
	"testing"
)

func TestComputeWindow(t *testing.T) {
	tests := []struct {
		name                            string
		scrollTop, container, rowHeight float64
		rowCount, buffer                int
		want                            ViewportWindow
	}{
		{
			name: "middle of the list", scrollTop: 1000, container: 300, rowHeight: 44, rowCount: 1000, buffer: 2,
			// floor(1000/44)=22, start=20, visible=ceil(300/44)=7, end=20+7+4
			want: ViewportWindow{StartIndex: 20, EndIndex: 31, BufferBefore: 2, BufferAfter: 2},
		},
		{
			name: "top", scrollTop: 0, container: 300, rowHeight: 44, rowCount: 1000, buffer: 2,
			want: ViewportWindow{StartIndex: 0, EndIndex: 11, BufferBefore: 0, BufferAfter: 4},
		},
		{
			name: "end clamps to row count", scrollTop: 43000, container: 300, rowHeight: 44, rowCount: 980, buffer: 2,
			want: ViewportWindow{StartIndex: 975, EndIndex: 980, BufferBefore: 2, BufferAfter: 0},
		},
		{
			name: "scrolled past the end", scrollTop: 1e6, container: 300, rowHeight: 44, rowCount: 10, buffer: 2,
			want: ViewportWindow{StartIndex: 10, EndIndex: 10},
		},
		{name: "zero row height", scrollTop: 100, container: 300, rowHeight: 0, rowCount: 10, buffer: 2},
		{name: "no rows", scrollTop: 0, container: 300, rowHeight: 44, rowCount: 0, buffer: 2},
		{name: "NaN scroll", scrollTop: math.NaN(), container: 300, rowHeight: 44, rowCount: 10, buffer: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWindow(tt.scrollTop, tt.container, tt.rowHeight, tt.rowCount, tt.buffer)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.StartIndex < 0 || got.StartIndex > got.EndIndex || got.EndIndex > max(tt.rowCount, 0) {
				t.Errorf("window out of bounds: %+v (rowCount %d)", got, tt.rowCount)
			}
		})
	}
}

func TestComputeWindow_BoundsHoldEverywhere(t *testing.T) {
	for rowCount := 0; rowCount < 40; rowCount += 7 {
		for scroll := -50.0; scroll < 2000; scroll += 37 {
			w := ComputeWindow(scroll, 250, 33, rowCount, 3)
			if w.StartIndex < 0 || w.StartIndex > w.EndIndex || w.EndIndex > rowCount {
				t.Fatalf("rowCount=%d scroll=%v: bad window %+v", rowCount, scroll, w)
			}
		}
	}

	inf := math.Inf(1)
	extremes := []struct {
		scrollTop, container, rowHeight float64
		buffer                          int
	}{
		{0, 1e300, 44, 2},
		{0, inf, 44, 2},
		{inf, 300, 44, 2},
		{1e300, 1e300, 44, 2},
		{math.Inf(-1), inf, 44, 2},
		{0, 300, inf, 2},
		{0, 300, 44, math.MaxInt},
	}
	for _, e := range extremes {
		w := ComputeWindow(e.scrollTop, e.container, e.rowHeight, 1000, e.buffer)
		if w.StartIndex < 0 || w.StartIndex > w.EndIndex || w.EndIndex > 1000 || w.BufferBefore < 0 || w.BufferAfter < 0 {
			t.Errorf("%+v: bad window %+v", e, w)
		}
	}

	if got, want := ComputeWindow(0, inf, 44, 1000, 2), (ViewportWindow{StartIndex: 0, EndIndex: 1000}); got != want {
		t.Errorf("infinite container = %+v, want %+v", got, want)
	}
	if got, want := ComputeWindow(inf, 300, 44, 1000, 2), (ViewportWindow{StartIndex: 998, EndIndex: 1000, BufferBefore: 2}); got != want {
		t.Errorf("infinite scroll = %+v, want %+v", got, want)
	}

	model := NewVariableRowHeights([]float64{10, 20, 30})
	for _, top := range []float64{inf, math.NaN(), 1e300} {
		w := ComputeWindowModel(top, inf, model, 3, 1)
		if w.StartIndex < 0 || w.StartIndex > w.EndIndex || w.EndIndex > 3 {
			t.Errorf("variable scrollTop=%v: bad window %+v", top, w)
		}
	}
}

func TestComputeWindowModel_VariableHeights(t *testing.T) {
	// rows 0..9 with heights 10,20,10,20,...
	heights := make([]float64, 10)
	for i := range heights {
		heights[i] = 10
		if i%2 == 1 {
			heights[i] = 20
		}
	}
	model := NewVariableRowHeights(heights)

	if got := model.IndexAt(35); got != 2 {
		t.Errorf("IndexAt(35) = %d, want 2", got)
	}
	if got := model.Offset(3); got != 40 {
		t.Errorf("Offset(3) = %v, want 40", got)
	}

	// Offset 30 is the top of row 2; the bottom edge at 75 falls inside row 5 (70-90)
	w := ComputeWindowModel(30, 45, model, 10, 1)
	want := ViewportWindow{StartIndex: 1, EndIndex: 7, BufferBefore: 1, BufferAfter: 1}
	if w != want {
		t.Errorf("got %+v, want %+v", w, want)
	}

	// A fixed model behaves like ComputeWindow
	if got, want := ComputeWindowModel(1000, 300, FixedRowHeight(44), 1000, 2), ComputeWindow(1000, 300, 44, 1000, 2); got != want {
		t.Errorf("fixed model = %+v, want %+v", got, want)
	}
}

func TestViewport_StateMachine(t *testing.T) {
	v := NewViewport(300, 44, 2)
	if v.State() != ViewportIdle {
		t.Fatalf("new viewport should be idle")
	}

	var changes []ViewportWindow
	v.OnChange(func(w ViewportWindow) { changes = append(changes, w) })

	v.SetRowCount(1000)
	if len(changes) != 1 || changes[0].EndIndex != 11 {
		t.Fatalf("row count change should publish a window, got %+v", changes)
	}

	w := v.Scroll(1000)
	if v.State() != ViewportScrolling {
		t.Errorf("state = %s, want scrolling", v.State())
	}
	if w.StartIndex != 20 || w.EndIndex != 31 {
		t.Errorf("scroll window = %+v", w)
	}

	// Scrolling within the same row does not publish
	v.Scroll(1001)
	if len(changes) != 2 {
		t.Errorf("expected 2 published windows, got %d", len(changes))
	}

	v.EndScroll()
	if v.State() != ViewportIdle {
		t.Errorf("state = %s, want idle", v.State())
	}
	if v.Window() != w || v.ScrollTop() != 1001 {
		t.Errorf("window/scrollTop changed unexpectedly: %+v %v", v.Window(), v.ScrollTop())
	}

	v.SetRowCount(25)
	if got := v.Window(); got.EndIndex > 25 {
		t.Errorf("window beyond row count after shrink: %+v", got)
	}
}
