package query

import (
	"math"
	"sort"
	"sync"
)

// ViewportWindow is the contiguous index range [StartIndex, EndIndex) to
// render. BufferBefore/BufferAfter count the rows rendered outside the
// visible area. Always 0 <= StartIndex <= EndIndex <= rowCount.
type ViewportWindow struct {
	StartIndex   int `json:"startIndex"`
	EndIndex     int `json:"endIndex"`
	BufferBefore int `json:"bufferBefore"`
	BufferAfter  int `json:"bufferAfter"`
}

// Len is the number of rows in the window
func (w ViewportWindow) Len() int {
	return w.EndIndex - w.StartIndex
}

// Contains reports whether index is inside the window
func (w ViewportWindow) Contains(index int) bool {
	return index >= w.StartIndex && index < w.EndIndex
}

// ComputeWindow computes the render window for fixed-height rows:
//
//	start = max(0, floor(scrollTop/rowHeight) - buffer)
//	end   = min(rowCount, start + ceil(containerHeight/rowHeight) + 2*buffer)
func ComputeWindow(scrollTop, containerHeight, rowHeight float64, rowCount, buffer int) ViewportWindow {
	if rowHeight <= 0 || rowCount <= 0 || math.IsNaN(scrollTop) || math.IsNaN(containerHeight) {
		return ViewportWindow{}
	}
	if buffer < 0 {
		buffer = 0
	}
	if scrollTop < 0 {
		scrollTop = 0
	}
	if containerHeight < 0 {
		containerHeight = 0
	}

	first := clampRows(math.Floor(scrollTop/rowHeight), rowCount)
	visible := clampRows(math.Ceil(containerHeight/rowHeight), rowCount)
	return windowFor(first, visible, rowCount, buffer)
}

// clampRows converts a row quotient to an int in [0, rowCount]; +Inf maps to rowCount
func clampRows(f float64, rowCount int) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= float64(rowCount) {
		return rowCount
	}
	return int(f)
}

// windowFor applies the buffer arithmetic given the first visible index
func windowFor(first, visible, rowCount, buffer int) ViewportWindow {
	if buffer > rowCount {
		buffer = rowCount
	}
	start := first - buffer
	if start < 0 {
		start = 0
	}
	if start > rowCount {
		start = rowCount
	}
	end := start + visible + 2*buffer
	if end > rowCount {
		end = rowCount
	}

	before := first - start
	if before < 0 {
		before = 0
	}
	if before > end-start {
		before = end - start
	}
	visibleEnd := first + visible
	after := end - visibleEnd
	if after < 0 {
		after = 0
	}
	return ViewportWindow{StartIndex: start, EndIndex: end, BufferBefore: before, BufferAfter: after}
}

// RowHeightModel maps between row indices and vertical offsets
type RowHeightModel interface {
	// IndexAt returns the index of the row containing offset
	IndexAt(offset float64) int
	// Offset returns the top offset of row index
	Offset(index int) float64
}

// FixedRowHeight is a model where every row has the same height
type FixedRowHeight float64

func (h FixedRowHeight) IndexAt(offset float64) int {
	if h <= 0 || offset <= 0 {
		return 0
	}
	return int(math.Floor(offset / float64(h)))
}

func (h FixedRowHeight) Offset(index int) float64 {
	return float64(index) * float64(h)
}

// VariableRowHeights is a model built from per-row heights
type VariableRowHeights struct {
	prefix []float64 // prefix[i] = top of row i; prefix[len] = total height
}

// NewVariableRowHeights builds prefix sums over heights; non-positive heights count as 0
func NewVariableRowHeights(heights []float64) *VariableRowHeights {
	prefix := make([]float64, len(heights)+1)
	for i, h := range heights {
		if h < 0 || math.IsNaN(h) {
			h = 0
		}
		prefix[i+1] = prefix[i] + h
	}
	return &VariableRowHeights{prefix: prefix}
}

func (v *VariableRowHeights) IndexAt(offset float64) int {
	n := len(v.prefix) - 1
	if n <= 0 || offset <= 0 {
		return 0
	}
	// first row whose bottom is below offset
	i := sort.Search(n, func(i int) bool { return v.prefix[i+1] > offset })
	return i
}

func (v *VariableRowHeights) Offset(index int) float64 {
	if index <= 0 {
		return 0
	}
	if index >= len(v.prefix) {
		return v.prefix[len(v.prefix)-1]
	}
	return v.prefix[index]
}

// ComputeWindowModel computes the window for any row-height model
func ComputeWindowModel(scrollTop, containerHeight float64, model RowHeightModel, rowCount, buffer int) ViewportWindow {
	if fixed, ok := model.(FixedRowHeight); ok {
		return ComputeWindow(scrollTop, containerHeight, float64(fixed), rowCount, buffer)
	}
	if model == nil || rowCount <= 0 || math.IsNaN(scrollTop) || math.IsNaN(containerHeight) {
		return ViewportWindow{}
	}
	if buffer < 0 {
		buffer = 0
	}
	if scrollTop < 0 {
		scrollTop = 0
	}
	first := model.IndexAt(scrollTop)
	if first > rowCount {
		first = rowCount
	}
	last := model.IndexAt(scrollTop + containerHeight)
	if containerHeight > 0 && model.Offset(last) < scrollTop+containerHeight {
		last++
	}
	if last > rowCount {
		last = rowCount
	}
	visible := last - first
	if visible < 0 {
		visible = 0
	}
	return windowFor(first, visible, rowCount, buffer)
}

// ViewportState is the scroll state of a Viewport
type ViewportState int

const (
	ViewportIdle ViewportState = iota
	ViewportScrolling
)

func (s ViewportState) String() string {
	if s == ViewportScrolling {
		return "scrolling"
	}
	return "idle"
}

// Viewport tracks scroll position, container size and row geometry for one
// grid and keeps the current window. Scrolling only moves the window; it
// never touches row data.
type Viewport struct {
	mu              sync.RWMutex
	state           ViewportState
	scrollTop       float64
	containerHeight float64
	model           RowHeightModel
	rowCount        int
	buffer          int
	window          ViewportWindow
	onChange        func(ViewportWindow)
}

// NewViewport creates an idle viewport with fixed-height rows
func NewViewport(containerHeight, rowHeight float64, buffer int) *Viewport {
	v := &Viewport{
		containerHeight: containerHeight,
		model:           FixedRowHeight(rowHeight),
		buffer:          buffer,
	}
	v.recompute()
	return v
}

// OnChange registers a callback invoked with the new window whenever it changes
func (v *Viewport) OnChange(fn func(ViewportWindow)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

// Scroll handles one scroll event and returns the updated window
func (v *Viewport) Scroll(scrollTop float64) ViewportWindow {
	v.mu.Lock()
	v.state = ViewportScrolling
	v.scrollTop = scrollTop
	w, cb, changed := v.recomputeLocked()
	v.mu.Unlock()
	if changed && cb != nil {
		cb(w)
	}
	return w
}

// EndScroll returns the viewport to idle
func (v *Viewport) EndScroll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = ViewportIdle
}

// SetRowCount updates the row count after a recompute
func (v *Viewport) SetRowCount(n int) ViewportWindow {
	return v.update(func() { v.rowCount = n })
}

// SetContainerHeight updates the visible height
func (v *Viewport) SetContainerHeight(h float64) ViewportWindow {
	return v.update(func() { v.containerHeight = h })
}

// SetRowHeightModel replaces the row geometry
func (v *Viewport) SetRowHeightModel(m RowHeightModel) ViewportWindow {
	return v.update(func() { v.model = m })
}

func (v *Viewport) update(apply func()) ViewportWindow {
	v.mu.Lock()
	apply()
	w, cb, changed := v.recomputeLocked()
	v.mu.Unlock()
	if changed && cb != nil {
		cb(w)
	}
	return w
}

func (v *Viewport) recompute() {
	v.recomputeLocked()
}

func (v *Viewport) recomputeLocked() (ViewportWindow, func(ViewportWindow), bool) {
	w := ComputeWindowModel(v.scrollTop, v.containerHeight, v.model, v.rowCount, v.buffer)
	changed := w != v.window
	v.window = w
	return w, v.onChange, changed
}

// Window returns the current window
func (v *Viewport) Window() ViewportWindow {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.window
}

// State returns Idle or Scrolling
func (v *Viewport) State() ViewportState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// ScrollTop returns the last scroll offset
func (v *Viewport) ScrollTop() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.scrollTop
}
