package query

import (
	"strings"
)

// GroupNode is one node of a GroupTree arena. Parent and Children are
// indices into GroupTree.Nodes; Start/End bound the node's leaf rows in
// GroupTree.Rows, which holds every row reachable beneath the node.
type GroupNode struct {
	Field      string
	Value      any
	Depth      int
	Parent     int // -1 for top-level nodes
	Children   []int
	Start      int
	End        int
	Aggregates Aggregates
}

// Count is the number of leaf rows beneath the node
func (n *GroupNode) Count() int {
	return n.End - n.Start
}

// IsLeafLevel reports whether the node holds rows rather than child groups
func (n *GroupNode) IsLeafLevel() bool {
	return len(n.Children) == 0
}

// GroupTree is the result of Group: an arena of nodes over a sorted copy of
// the input rows. Nodes are stored in depth-first pre-order, so every node's
// descendants have larger indices than the node itself.
type GroupTree struct {
	Keys   []GroupKey
	Rows   []Row
	Nodes  []GroupNode
	Roots  []int
	Totals Aggregates // Global aggregate specs over all rows
}

// Items returns the leaf rows beneath node i
func (t *GroupTree) Items(i int) []Row {
	n := &t.Nodes[i]
	return t.Rows[n.Start:n.End]
}

// Path returns a stable key for node i built from its ancestors' values,
// used to remember collapsed groups across recomputations.
func (t *GroupTree) Path(i int) string {
	var parts []string
	for i >= 0 {
		n := &t.Nodes[i]
		parts = append(parts, n.Field+"="+valueKey(n.Value))
		i = n.Parent
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, "/")
}

// Group sorts rows by keys and partitions them into a tree of nested groups,
// attaching aggregates to every node. Global specs apply to every node and
// to Totals; a key's own Aggregates apply to nodes at that level.
//
// With no keys the tree has a single implicit root holding all rows.
func Group(rows []Row, keys []GroupKey, specs []AggregateSpec) *GroupTree {
	comparators := comparatorsForGroupKeys(keys)
	sorted := sortRows(rows, comparators)

	tree := &GroupTree{Keys: keys, Rows: sorted}

	allSpecs := append([]AggregateSpec(nil), specs...)
	for _, k := range keys {
		allSpecs = append(allSpecs, k.Aggregates...)
	}

	if len(keys) == 0 {
		tree.Nodes = []GroupNode{{Parent: -1, Start: 0, End: len(sorted)}}
		tree.Roots = []int{0}
	} else {
		values := make([][]any, len(sorted))
		for i, row := range sorted {
			vals := make([]any, len(keys))
			for j, k := range keys {
				vals[j] = row.Get(k.Field)
			}
			values[i] = vals
		}
		tree.Roots = tree.partition(comparators, values, 0, 0, len(sorted), -1)
	}

	// Bottom-up aggregate pass: leaf-level nodes reduce their rows, then each
	// node merges into its parent in reverse pre-order.
	states := make([]aggSet, len(tree.Nodes))
	for i := range tree.Nodes {
		states[i] = newAggSet(allSpecs)
		n := &tree.Nodes[i]
		if n.IsLeafLevel() {
			for _, row := range sorted[n.Start:n.End] {
				states[i].addRow(row)
			}
		}
	}
	for i := len(tree.Nodes) - 1; i >= 0; i-- {
		if p := tree.Nodes[i].Parent; p >= 0 {
			states[p].combine(states[i])
		}
	}

	total := newAggSet(allSpecs)
	for _, r := range tree.Roots {
		total.combine(states[r])
	}
	tree.Totals = total.results(specs)

	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		nodeSpecs := specs
		if len(keys) > 0 && len(keys[n.Depth].Aggregates) > 0 {
			nodeSpecs = append(append([]AggregateSpec(nil), specs...), keys[n.Depth].Aggregates...)
		}
		n.Aggregates = states[i].results(nodeSpecs)
	}

	return tree
}

// partition splits sorted[start:end] into runs of equal values at depth and
// returns the indices of the nodes it created.
func (t *GroupTree) partition(comparators []fieldComparator, values [][]any, depth, start, end, parent int) []int {
	var created []int
	cmp := comparators[depth].compare
	field := comparators[depth].field

	for runStart := start; runStart < end; {
		runEnd := runStart + 1
		for runEnd < end && cmp(values[runStart][depth], values[runEnd][depth]) == 0 {
			runEnd++
		}

		idx := len(t.Nodes)
		t.Nodes = append(t.Nodes, GroupNode{
			Field:  field,
			Value:  values[runStart][depth],
			Depth:  depth,
			Parent: parent,
			Start:  runStart,
			End:    runEnd,
		})
		created = append(created, idx)

		if depth+1 < len(comparators) {
			children := t.partition(comparators, values, depth+1, runStart, runEnd, idx)
			t.Nodes[idx].Children = children
		}
		runStart = runEnd
	}
	return created
}

// ItemKind distinguishes grid items
type ItemKind int

const (
	ItemRow ItemKind = iota
	ItemGroup
)

// DisplayItem is one line of the grid: a data row or a group header
type DisplayItem struct {
	Kind  ItemKind
	Depth int
	Row   Row // ItemRow only
	Node  int // ItemGroup only: index into GroupTree.Nodes
}

// RowItems wraps flat rows as display items
func RowItems(rows []Row) []DisplayItem {
	items := make([]DisplayItem, len(rows))
	for i, row := range rows {
		items[i] = DisplayItem{Kind: ItemRow, Row: row, Node: -1}
	}
	return items
}

// Flatten lists the tree as grid lines: each group header followed by its
// children, or by its rows at the deepest level. Groups whose Path is in
// collapsed contribute their header only. A tree without keys flattens to
// its rows.
func (t *GroupTree) Flatten(collapsed map[string]bool) []DisplayItem {
	if len(t.Keys) == 0 {
		return RowItems(t.Rows)
	}
	items := make([]DisplayItem, 0, len(t.Rows)+len(t.Nodes))
	var walk func(i int)
	walk = func(i int) {
		n := &t.Nodes[i]
		items = append(items, DisplayItem{Kind: ItemGroup, Depth: n.Depth, Node: i})
		if len(collapsed) > 0 && collapsed[t.Path(i)] {
			return
		}
		if n.IsLeafLevel() {
			for _, row := range t.Rows[n.Start:n.End] {
				items = append(items, DisplayItem{Kind: ItemRow, Depth: n.Depth + 1, Row: row, Node: -1})
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range t.Roots {
		walk(r)
	}
	return items
}
