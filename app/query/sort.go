package query

import (
	"sort"
)

// fieldComparator compares two rows on one field
type fieldComparator struct {
	field   string
	compare CompareFunc
}

// withDirection applies the sort direction as the final step around any
// comparator, default or custom.
func withDirection(cmp CompareFunc, dir SortDirection) CompareFunc {
	if cmp == nil {
		cmp = CompareValues
	}
	if dir != SortDesc {
		return cmp
	}
	return func(a, b any) int {
		return -cmp(a, b)
	}
}

func comparatorsForSortKeys(keys []SortKey) []fieldComparator {
	comparators := make([]fieldComparator, len(keys))
	for i, k := range keys {
		comparators[i] = fieldComparator{field: k.Field, compare: withDirection(CompareValues, k.Direction)}
	}
	return comparators
}

func comparatorsForGroupKeys(keys []GroupKey) []fieldComparator {
	comparators := make([]fieldComparator, len(keys))
	for i, k := range keys {
		comparators[i] = fieldComparator{field: k.Field, compare: withDirection(k.Compare, k.Direction)}
	}
	return comparators
}

// sortRows returns a stably sorted copy of rows
func sortRows(rows []Row, comparators []fieldComparator) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	if len(comparators) == 0 {
		return out
	}

	// Resolve field values once per row; JPath fields would otherwise be
	// re-evaluated on every comparison.
	values := make([][]any, len(out))
	for i, row := range out {
		vals := make([]any, len(comparators))
		for j, c := range comparators {
			vals[j] = row.Get(c.field)
		}
		values[i] = vals
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := values[idx[i]], values[idx[j]]
		for k, c := range comparators {
			if r := c.compare(a[k], b[k]); r != 0 {
				return r < 0
			}
		}
		return false
	})

	sorted := make([]Row, len(out))
	for i, src := range idx {
		sorted[i] = out[src]
	}
	return sorted
}

// ApplySort orders rows by keys, left to right, keeping ties in their
// original order. The input slice is never modified; empty keys return a copy
// in the original order. Nil values sort last ascending and first descending.
func ApplySort(rows []Row, keys []SortKey) []Row {
	return sortRows(rows, comparatorsForSortKeys(keys))
}
