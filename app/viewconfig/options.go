package viewconfig

import (
	"gridquery/app/query"
)

// PersistedOptions is the grid state a storage collaborator saves between
// sessions. The pipeline only converts it; reading and writing it belongs
// to the caller.
type PersistedOptions struct {
	Sort         []SortDescriptor   `json:"sort,omitempty" yaml:"sort,omitempty"`
	Filter       []FilterDescriptor `json:"filter,omitempty" yaml:"filter,omitempty"`
	Page         int                `json:"page" yaml:"page"`
	PageSize     int                `json:"pageSize" yaml:"pageSize"`
	Order        []string           `json:"order,omitempty" yaml:"order,omitempty"`
	Widths       map[string]int     `json:"widths,omitempty" yaml:"widths,omitempty"`
	SelectedKeys []string           `json:"selectedKeys,omitempty" yaml:"selectedKeys,omitempty"`
}

// OptionsFromInputs captures the persistable part of engine inputs
func OptionsFromInputs(in query.Inputs) PersistedOptions {
	opts := PersistedOptions{
		Sort:     DescribeSort(in.Sort),
		Page:     in.Page,
		PageSize: in.PageSize,
	}
	for _, f := range in.Filters {
		opts.Filter = append(opts.Filter, DescribeFilter(f))
	}
	return opts
}

// Apply restores the persisted sort, filter and paging onto in
func (o PersistedOptions) Apply(in *query.Inputs) {
	in.Sort = SortKeys(o.Sort)
	in.Filters = FilterNodes(o.Filter)
	in.Page = max(o.Page, 1)
	in.PageSize = o.PageSize
}
