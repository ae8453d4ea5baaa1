package query

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AggregateFunc names a reduction over a field
type AggregateFunc string

const (
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
	AggCount AggregateFunc = "count"
)

// ParseAggregateFunc accepts the function names case-insensitively
func ParseAggregateFunc(s string) (AggregateFunc, bool) {
	switch f := AggregateFunc(strings.ToLower(strings.TrimSpace(s))); f {
	case AggSum, AggAvg, AggMin, AggMax, AggCount:
		return f, true
	case "average", "mean":
		return AggAvg, true
	}
	return "", false
}

// AggregateSpec asks for Func over Field
type AggregateSpec struct {
	Field string
	Func  AggregateFunc
}

// Cell is one aggregated value; Valid is false for null
type Cell struct {
	Value float64
	Valid bool
}

// NullCell is the null aggregate result
var NullCell = Cell{}

// ValueCell wraps a defined value
func ValueCell(v float64) Cell {
	return Cell{Value: v, Valid: true}
}

// MarshalJSON renders null or the number
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// String renders "null" or the shortest float form
func (c Cell) String() string {
	if !c.Valid {
		return "null"
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}

// Aggregates maps field -> func -> value for one group
type Aggregates map[string]map[AggregateFunc]Cell

// Get returns the value for field/fn, null when it was not computed
func (a Aggregates) Get(field string, fn AggregateFunc) Cell {
	if byFn, ok := a[field]; ok {
		return byFn[fn]
	}
	return NullCell
}

// aggState accumulates everything needed for all five functions over one
// field, so states can be merged up a group tree without revisiting rows.
// Sums are exact decimals. Infinite values count as rows but not as numbers.
type aggState struct {
	rows    int64
	numeric int64
	sum     decimal.Decimal
	min     float64
	max     float64
}

func (s *aggState) add(v any) {
	s.rows++
	f, ok := toNumber(v)
	if !ok || math.IsInf(f, 0) {
		return
	}
	if s.numeric == 0 || f < s.min {
		s.min = f
	}
	if s.numeric == 0 || f > s.max {
		s.max = f
	}
	s.numeric++
	s.sum = s.sum.Add(decimal.NewFromFloat(f))
}

func (s *aggState) combine(other *aggState) {
	if other == nil || other.rows == 0 {
		return
	}
	if other.numeric > 0 {
		if s.numeric == 0 || other.min < s.min {
			s.min = other.min
		}
		if s.numeric == 0 || other.max > s.max {
			s.max = other.max
		}
		s.sum = s.sum.Add(other.sum)
	}
	s.rows += other.rows
	s.numeric += other.numeric
}

// result finalizes fn. With no numeric values sum is 0 and avg/min/max are null.
func (s *aggState) result(fn AggregateFunc) Cell {
	switch fn {
	case AggCount:
		return ValueCell(float64(s.rows))
	case AggSum:
		return ValueCell(s.sum.InexactFloat64())
	case AggAvg:
		if s.numeric == 0 {
			return NullCell
		}
		return ValueCell(s.sum.Div(decimal.NewFromInt(s.numeric)).InexactFloat64())
	case AggMin:
		if s.numeric == 0 {
			return NullCell
		}
		return ValueCell(s.min)
	case AggMax:
		if s.numeric == 0 {
			return NullCell
		}
		return ValueCell(s.max)
	}
	return NullCell
}

// aggSet holds one state per distinct field of a spec list
type aggSet map[string]*aggState

func newAggSet(specs []AggregateSpec) aggSet {
	set := make(aggSet, len(specs))
	for _, spec := range specs {
		if _, ok := set[spec.Field]; !ok {
			set[spec.Field] = &aggState{}
		}
	}
	return set
}

func (set aggSet) addRow(row Row) {
	for field, st := range set {
		st.add(row.Get(field))
	}
}

func (set aggSet) combine(other aggSet) {
	for field, st := range set {
		st.combine(other[field])
	}
}

func (set aggSet) results(specs []AggregateSpec) Aggregates {
	out := make(Aggregates, len(set))
	for _, spec := range specs {
		st, ok := set[spec.Field]
		if !ok {
			continue
		}
		byFn, ok := out[spec.Field]
		if !ok {
			byFn = make(map[AggregateFunc]Cell)
			out[spec.Field] = byFn
		}
		byFn[spec.Func] = st.result(spec.Func)
	}
	return out
}

// Aggregate reduces rows with one function, using the same rules as group
// aggregates.
func Aggregate(rows []Row, field string, fn AggregateFunc) Cell {
	var st aggState
	for _, row := range rows {
		st.add(row.Get(field))
	}
	return st.result(fn)
}
