package query

import (
	"fmt"
)

// Stages copy their input result and replace only the fields they produce:
// results may be shared through the cache and are never modified after
// they are returned.

// FilterStage keeps the rows matching every filter
type FilterStage struct {
	filters []FilterNode
	key     string
	name    string
}

// NewFilterStage creates a new filter stage
func NewFilterStage(filters []FilterNode) *FilterStage {
	return &FilterStage{
		filters: filters,
		key:     describeFilters(filters),
		name:    "filter",
	}
}

// Execute filters the input rows
func (f *FilterStage) Execute(input *StageResult) (*StageResult, error) {
	out := *input
	out.Rows = ApplyFilter(input.Rows, f.filters)
	out.Total = len(out.Rows)
	out.Items = nil
	return &out, nil
}

// CanCache returns true; filters are pure
func (f *FilterStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching
func (f *FilterStage) CacheKey() string {
	return f.key
}

// Name returns the stage name
func (f *FilterStage) Name() string {
	return f.name
}

// EstimateOutputSize estimates output size (filters typically reduce size)
func (f *FilterStage) EstimateOutputSize() float64 {
	return 0.5
}

// SortStage orders rows by one or more keys
type SortStage struct {
	keys []SortKey
	name string
}

// NewSortStage creates a new sort stage
func NewSortStage(keys []SortKey) *SortStage {
	return &SortStage{keys: keys, name: "sort"}
}

// Execute sorts the input rows
func (s *SortStage) Execute(input *StageResult) (*StageResult, error) {
	out := *input
	out.Rows = ApplySort(input.Rows, s.keys)
	out.Items = nil
	return &out, nil
}

// CanCache returns true if this stage's results can be cached
func (s *SortStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching
func (s *SortStage) CacheKey() string {
	return describeSortKeys(s.keys)
}

// Name returns the stage name
func (s *SortStage) Name() string {
	return s.name
}

// EstimateOutputSize estimates output size (sorting doesn't change row count)
func (s *SortStage) EstimateOutputSize() float64 {
	return 1.0
}

// GroupStage builds the group tree with its aggregates and flattens it into
// grid items. With no keys it only computes the global aggregates.
type GroupStage struct {
	keys      []GroupKey
	specs     []AggregateSpec
	collapsed map[string]bool
	name      string
}

// NewGroupStage creates a new group stage
func NewGroupStage(keys []GroupKey, specs []AggregateSpec, collapsed map[string]bool) *GroupStage {
	return &GroupStage{keys: keys, specs: specs, collapsed: collapsed, name: "group"}
}

// Execute groups the input rows
func (g *GroupStage) Execute(input *StageResult) (*StageResult, error) {
	out := *input
	tree := Group(input.Rows, g.keys, g.specs)
	out.Groups = tree
	out.Rows = tree.Rows
	out.Items = tree.Flatten(g.collapsed)
	return &out, nil
}

// CanCache is false when a group key uses an unnamed comparator
func (g *GroupStage) CanCache() bool {
	_, ok := describeGroupKeys(g.keys)
	return ok
}

// CacheKey returns a unique key for caching
func (g *GroupStage) CacheKey() string {
	keys, _ := describeGroupKeys(g.keys)
	return fmt.Sprintf("keys=[%s]:aggs=[%s]:collapsed=[%s]", keys, describeAggregates(g.specs), describeCollapsed(g.collapsed))
}

// Name returns the stage name
func (g *GroupStage) Name() string {
	return g.name
}

// EstimateOutputSize estimates output size (headers are added to the rows)
func (g *GroupStage) EstimateOutputSize() float64 {
	return 1.0
}

// PivotStage cross tabulates the input rows. Rows and items pass through.
type PivotStage struct {
	config PivotConfig
	name   string
}

// NewPivotStage creates a new pivot stage
func NewPivotStage(config PivotConfig) *PivotStage {
	return &PivotStage{config: config, name: "pivot"}
}

// Execute builds the pivot cube
func (p *PivotStage) Execute(input *StageResult) (*StageResult, error) {
	out := *input
	out.Pivot = BuildPivot(input.Rows, p.config)
	return &out, nil
}

// CanCache returns true if this stage's results can be cached
func (p *PivotStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching
func (p *PivotStage) CacheKey() string {
	return describePivot(p.config)
}

// Name returns the stage name
func (p *PivotStage) Name() string {
	return p.name
}

// EstimateOutputSize returns -1; the cube size depends on the data
func (p *PivotStage) EstimateOutputSize() float64 {
	return -1
}

// PageStage slices the grid items to one page. Without a page size every
// item is on the page.
type PageStage struct {
	page     int
	pageSize int
	name     string
}

// NewPageStage creates a new page stage
func NewPageStage(page, pageSize int) *PageStage {
	return &PageStage{page: page, pageSize: pageSize, name: "page"}
}

// Execute pages the grid items
func (p *PageStage) Execute(input *StageResult) (*StageResult, error) {
	out := *input
	items := input.Items
	if items == nil {
		items = RowItems(input.Rows)
		out.Items = items
	}
	if p.pageSize <= 0 {
		out.Page = items
	} else {
		out.Page = Paginate(items, p.page, p.pageSize)
	}
	return &out, nil
}

// CanCache returns true if this stage's results can be cached
func (p *PageStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching
func (p *PageStage) CacheKey() string {
	return fmt.Sprintf("%d/%d", p.page, p.pageSize)
}

// Name returns the stage name
func (p *PageStage) Name() string {
	return p.name
}

// EstimateOutputSize returns -1 for unknown
func (p *PageStage) EstimateOutputSize() float64 {
	return -1
}
