package viewconfig

import (
	"fmt"
	"strings"

	"gridquery/app/interfaces"
	"gridquery/app/query"
)

// FilterDescriptor is the wire and config shape of a filter. A descriptor
// with child filters is a composite; its own field, operator and value are
// kept but never evaluated.
type FilterDescriptor struct {
	Field    string             `json:"field,omitempty" yaml:"field,omitempty"`
	Operator string             `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    any                `json:"value,omitempty" yaml:"value,omitempty"`
	Logic    string             `json:"logic,omitempty" yaml:"logic,omitempty"`
	Filters  []FilterDescriptor `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// Node converts the descriptor into a filter tree
func (d FilterDescriptor) Node() query.FilterNode {
	if len(d.Filters) == 0 {
		return &interfaces.Leaf{Field: d.Field, Operator: d.Operator, Value: d.Value}
	}
	children := make([]query.FilterNode, len(d.Filters))
	for i, child := range d.Filters {
		children[i] = child.Node()
	}
	logic := interfaces.LogicAnd
	if strings.EqualFold(d.Logic, string(interfaces.LogicOr)) {
		logic = interfaces.LogicOr
	}
	return &interfaces.Composite{
		Logic:    logic,
		Children: children,
		Field:    d.Field,
		Operator: d.Operator,
		Value:    d.Value,
	}
}

// DescribeFilter converts a filter tree back into its descriptor
func DescribeFilter(node query.FilterNode) FilterDescriptor {
	switch n := node.(type) {
	case *interfaces.Leaf:
		return FilterDescriptor{Field: n.Field, Operator: n.Operator, Value: n.Value}
	case *interfaces.Composite:
		d := FilterDescriptor{Field: n.Field, Operator: n.Operator, Value: n.Value, Logic: string(n.Logic)}
		for _, child := range n.Children {
			d.Filters = append(d.Filters, DescribeFilter(child))
		}
		return d
	}
	return FilterDescriptor{}
}

// FilterNodes converts a descriptor list; the nodes are ANDed by the engine
func FilterNodes(ds []FilterDescriptor) []query.FilterNode {
	if len(ds) == 0 {
		return nil
	}
	nodes := make([]query.FilterNode, len(ds))
	for i, d := range ds {
		nodes[i] = d.Node()
	}
	return nodes
}

// SortDescriptor orders by one field
type SortDescriptor struct {
	Field string `json:"field" yaml:"field"`
	Dir   string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// SortKeys converts descriptors into engine sort keys. Unknown directions
// are ascending.
func SortKeys(ds []SortDescriptor) []query.SortKey {
	if len(ds) == 0 {
		return nil
	}
	keys := make([]query.SortKey, 0, len(ds))
	for _, d := range ds {
		if d.Field == "" {
			continue
		}
		keys = append(keys, query.SortKey{Field: d.Field, Direction: interfaces.ParseSortDirection(strings.ToLower(d.Dir))})
	}
	return keys
}

// DescribeSort converts sort keys back into descriptors
func DescribeSort(keys []query.SortKey) []SortDescriptor {
	out := make([]SortDescriptor, len(keys))
	for i, k := range keys {
		out[i] = SortDescriptor{Field: k.Field, Dir: string(k.Direction)}
	}
	return out
}

// GroupDescriptor groups by one field. An empty Dir falls back to the
// column's groupableSortDir.
type GroupDescriptor struct {
	Field string `json:"field" yaml:"field"`
	Dir   string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// ColumnDef carries the column-level grouping and aggregation overrides
type ColumnDef struct {
	Field                string   `json:"field" yaml:"field"`
	Title                string   `json:"title,omitempty" yaml:"title,omitempty"`
	GroupableSortDir     string   `json:"groupableSortDir,omitempty" yaml:"groupableSortDir,omitempty"`
	GroupableSortCompare string   `json:"groupableSortCompare,omitempty" yaml:"groupableSortCompare,omitempty"`
	Aggregates           []string `json:"aggregates,omitempty" yaml:"aggregates,omitempty"`
}

// ResolveGroupKeys turns group descriptors into engine group keys.
// Direction comes from the descriptor, then the column's groupableSortDir,
// then ascending. A column's groupableSortCompare is looked up in reg.
func ResolveGroupKeys(groups []GroupDescriptor, columns []ColumnDef, reg *Registry) ([]query.GroupKey, error) {
	byField := columnsByField(columns)
	keys := make([]query.GroupKey, 0, len(groups))
	for _, g := range groups {
		if g.Field == "" {
			return nil, fmt.Errorf("group descriptor without a field")
		}
		key := query.GroupKey{Field: g.Field, Direction: query.SortAsc}
		col, hasCol := byField[g.Field]

		dir := g.Dir
		if dir == "" && hasCol {
			dir = col.GroupableSortDir
		}
		if dir != "" {
			key.Direction = interfaces.ParseSortDirection(strings.ToLower(dir))
		}

		if hasCol && col.GroupableSortCompare != "" {
			if reg == nil {
				return nil, fmt.Errorf("%w: %q (no registry)", ErrUnknownComparator, col.GroupableSortCompare)
			}
			cmp, ok := reg.Lookup(col.GroupableSortCompare)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownComparator, col.GroupableSortCompare)
			}
			key.Compare = cmp
			key.CompareName = col.GroupableSortCompare
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ResolveAggregates merges the aggregate config map with column-level
// aggregates. The map's fields come first in sorted order, then columns in
// declaration order; duplicates are dropped.
func ResolveAggregates(config map[string][]string, columns []ColumnDef) ([]query.AggregateSpec, error) {
	var specs []query.AggregateSpec
	seen := make(map[query.AggregateSpec]bool)
	add := func(field string, names []string) error {
		for _, name := range names {
			fn, ok := query.ParseAggregateFunc(name)
			if !ok {
				return fmt.Errorf("unknown aggregate %q for field %q", name, field)
			}
			spec := query.AggregateSpec{Field: field, Func: fn}
			if !seen[spec] {
				seen[spec] = true
				specs = append(specs, spec)
			}
		}
		return nil
	}

	for _, field := range sortedKeys(config) {
		if err := add(field, config[field]); err != nil {
			return nil, err
		}
	}
	for _, col := range columns {
		if err := add(col.Field, col.Aggregates); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func columnsByField(columns []ColumnDef) map[string]ColumnDef {
	m := make(map[string]ColumnDef, len(columns))
	for _, c := range columns {
		m[c.Field] = c
	}
	return m
}
