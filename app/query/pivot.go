package query

import (
	"sort"
	"strings"
)

// Measure is one aggregated value per pivot cell
type Measure struct {
	Name  string
	Field string
	Func  AggregateFunc
}

// Label renders the measure as "sum(Sales)" when it has no name
func (m Measure) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return string(m.Func) + "(" + m.Field + ")"
}

// PivotAxisSpec selects the dimension fields of one axis. Tuples keep
// first-seen order unless Sort is set.
type PivotAxisSpec struct {
	Fields []string
	Sort   SortDirection // "" keeps first-seen order
}

// PivotConfig describes a cross tabulation
type PivotConfig struct {
	Columns  PivotAxisSpec
	Rows     PivotAxisSpec
	Measures []Measure
}

// PivotAxis is the ordered list of distinct dimension tuples observed on one axis
type PivotAxis struct {
	Fields []string
	Tuples [][]any
}

// Len returns the number of tuples
func (a PivotAxis) Len() int {
	return len(a.Tuples)
}

// Label joins a tuple's values for display
func (a PivotAxis) Label(i int) string {
	parts := make([]string, len(a.Tuples[i]))
	for j, v := range a.Tuples[i] {
		if v == nil {
			parts[j] = "(null)"
		} else {
			parts[j] = stringValue(v)
		}
	}
	return strings.Join(parts, " / ")
}

// PivotResult is the pivot cube. Data is indexed [row][column][measure].
// RowTotals[row][measure] and ColumnTotals[column][measure] aggregate the
// underlying rows of a whole row or column, GrandTotal all rows.
type PivotResult struct {
	Columns      PivotAxis
	Rows         PivotAxis
	Measures     []Measure
	Data         [][][]Cell
	RowTotals    [][]Cell
	ColumnTotals [][]Cell
	GrandTotal   []Cell
}

// axisIndex assigns tuple indices in first-seen order
type axisIndex struct {
	fields []string
	index  map[string]int
	tuples [][]any
}

func newAxisIndex(fields []string) *axisIndex {
	return &axisIndex{fields: fields, index: make(map[string]int)}
}

func (a *axisIndex) lookup(row Row) int {
	tuple := make([]any, len(a.fields))
	var key strings.Builder
	for i, f := range a.fields {
		tuple[i] = row.Get(f)
		key.WriteString(valueKey(tuple[i]))
		key.WriteByte(0x1f)
	}
	k := key.String()
	if idx, ok := a.index[k]; ok {
		return idx
	}
	idx := len(a.tuples)
	a.index[k] = idx
	a.tuples = append(a.tuples, tuple)
	return idx
}

// order returns the permutation old index -> new index for the requested order
func (a *axisIndex) order(dir SortDirection) []int {
	perm := make([]int, len(a.tuples))
	for i := range perm {
		perm[i] = i
	}
	if dir == "" {
		return perm
	}
	sorted := make([]int, len(a.tuples))
	copy(sorted, perm)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := a.tuples[sorted[i]], a.tuples[sorted[j]]
		for k := range ti {
			c := CompareValues(ti[k], tj[k])
			if dir == SortDesc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	for newIdx, oldIdx := range sorted {
		perm[oldIdx] = newIdx
	}
	return perm
}

func (a *axisIndex) axis(perm []int) PivotAxis {
	tuples := make([][]any, len(a.tuples))
	for oldIdx, t := range a.tuples {
		tuples[perm[oldIdx]] = t
	}
	return PivotAxis{Fields: a.fields, Tuples: tuples}
}

// BuildPivot cross-tabulates rows. Axes contain only the dimension
// combinations that occur in rows. Each (row tuple, column tuple) cell holds
// one value per measure; a cell without rows is null, except count which is 0.
//
// Rows are bucketed in a single pass, then each bucket is reduced, so the
// cost is O(N + rowTuples*colTuples*measures).
func BuildPivot(rows []Row, cfg PivotConfig) *PivotResult {
	colIdx := newAxisIndex(cfg.Columns.Fields)
	rowIdx := newAxisIndex(cfg.Rows.Fields)

	specs := make([]AggregateSpec, len(cfg.Measures))
	for i, m := range cfg.Measures {
		specs[i] = AggregateSpec{Field: m.Field, Func: m.Func}
	}

	type bucketKey struct{ r, c int }
	buckets := make(map[bucketKey]aggSet)
	for _, row := range rows {
		r := rowIdx.lookup(row)
		c := colIdx.lookup(row)
		k := bucketKey{r, c}
		set, ok := buckets[k]
		if !ok {
			set = newAggSet(specs)
			buckets[k] = set
		}
		set.addRow(row)
	}

	rowPerm := rowIdx.order(cfg.Rows.Sort)
	colPerm := colIdx.order(cfg.Columns.Sort)
	nRows, nCols := len(rowIdx.tuples), len(colIdx.tuples)

	result := &PivotResult{
		Columns:  colIdx.axis(colPerm),
		Rows:     rowIdx.axis(rowPerm),
		Measures: cfg.Measures,
		Data:     make([][][]Cell, nRows),
	}

	rowSets := make([]aggSet, nRows)
	colSets := make([]aggSet, nCols)
	grand := newAggSet(specs)
	for i := range rowSets {
		rowSets[i] = newAggSet(specs)
		result.Data[i] = make([][]Cell, nCols)
	}
	for i := range colSets {
		colSets[i] = newAggSet(specs)
	}

	for r := 0; r < nRows; r++ {
		for c := 0; c < nCols; c++ {
			set, ok := buckets[bucketKey{r, c}]
			target := &result.Data[rowPerm[r]][colPerm[c]]
			if !ok {
				*target = emptyCells(cfg.Measures)
				continue
			}
			*target = measureCells(set, cfg.Measures)
			rowSets[rowPerm[r]].combine(set)
			colSets[colPerm[c]].combine(set)
			grand.combine(set)
		}
	}

	result.RowTotals = make([][]Cell, nRows)
	for i, set := range rowSets {
		result.RowTotals[i] = measureCells(set, cfg.Measures)
	}
	result.ColumnTotals = make([][]Cell, nCols)
	for i, set := range colSets {
		result.ColumnTotals[i] = measureCells(set, cfg.Measures)
	}
	if len(rows) == 0 {
		result.GrandTotal = emptyCells(cfg.Measures)
	} else {
		result.GrandTotal = measureCells(grand, cfg.Measures)
	}
	return result
}

func measureCells(set aggSet, measures []Measure) []Cell {
	cells := make([]Cell, len(measures))
	for i, m := range measures {
		cells[i] = set[m.Field].result(m.Func)
	}
	return cells
}

// emptyCells is the value of a cell with no rows
func emptyCells(measures []Measure) []Cell {
	cells := make([]Cell, len(measures))
	for i, m := range measures {
		if m.Func == AggCount {
			cells[i] = ValueCell(0)
		}
	}
	return cells
}

// Cell returns Data[row][col][measure] or null when out of range
func (p *PivotResult) Cell(row, col, measure int) Cell {
	if row < 0 || row >= len(p.Data) || col < 0 || col >= len(p.Data[row]) {
		return NullCell
	}
	cells := p.Data[row][col]
	if measure < 0 || measure >= len(cells) {
		return NullCell
	}
	return cells[measure]
}

// FindTuple returns the index of the tuple equal to values, or -1
func (a PivotAxis) FindTuple(values ...any) int {
	for i, t := range a.Tuples {
		if len(t) != len(values) {
			continue
		}
		match := true
		for j := range t {
			if valueKey(t[j]) != valueKey(values[j]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
