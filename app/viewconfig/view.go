package viewconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gridquery/app/query"

	"gopkg.in/yaml.v3"
)

// View is a saved grid view: columns with their overrides and the full set
// of pipeline inputs. View files are YAML; JSON files parse as well since
// the keys match.
type View struct {
	Name       string              `json:"name,omitempty" yaml:"name,omitempty"`
	Columns    []ColumnDef         `json:"columns,omitempty" yaml:"columns,omitempty"`
	Filter     []FilterDescriptor  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Sort       []SortDescriptor    `json:"sort,omitempty" yaml:"sort,omitempty"`
	Group      []GroupDescriptor   `json:"group,omitempty" yaml:"group,omitempty"`
	Aggregates map[string][]string `json:"aggregates,omitempty" yaml:"aggregates,omitempty"`
	Pivot      *PivotSchema        `json:"pivot,omitempty" yaml:"pivot,omitempty"`
	Collapsed  []string            `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Page       int                 `json:"page,omitempty" yaml:"page,omitempty"`
	PageSize   int                 `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
}

// ParseView decodes a YAML or JSON view
func ParseView(data []byte) (*View, error) {
	var v View
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse view: %w", err)
	}
	return &v, nil
}

// LoadView reads a view file
func LoadView(path string) (*View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read view %s: %w", path, err)
	}
	v, err := ParseView(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// SaveView writes a view as YAML
func SaveView(path string, v *View) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode view: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create view directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Inputs resolves the view into engine inputs over rows. Comparator names
// are looked up in reg. Page 0 is read as page 1.
func (v *View) Inputs(datasetID string, rows []query.Row, reg *Registry) (query.Inputs, error) {
	in := query.Inputs{
		DatasetID: datasetID,
		Rows:      rows,
		Filters:   FilterNodes(v.Filter),
		Sort:      SortKeys(v.Sort),
		Page:      max(v.Page, 1),
		PageSize:  v.PageSize,
	}

	var err error
	if in.Group, err = ResolveGroupKeys(v.Group, v.Columns, reg); err != nil {
		return query.Inputs{}, err
	}
	if in.Aggregates, err = ResolveAggregates(v.Aggregates, v.Columns); err != nil {
		return query.Inputs{}, err
	}
	if v.Pivot != nil {
		cfg, err := v.Pivot.Config()
		if err != nil {
			return query.Inputs{}, err
		}
		in.Pivot = &cfg
	}
	if len(v.Collapsed) > 0 {
		in.Collapsed = make(map[string]bool, len(v.Collapsed))
		for _, path := range v.Collapsed {
			in.Collapsed[path] = true
		}
	}
	return in, nil
}

// FromQuery builds a view from a parsed text query. Custom comparators and
// pivot names are not representable and are left out.
func FromQuery(q *query.Query) *View {
	v := &View{Page: q.Page, PageSize: q.PageSize, Sort: DescribeSort(q.Sort)}
	for _, f := range q.Filters {
		v.Filter = append(v.Filter, DescribeFilter(f))
	}
	for _, g := range q.Group {
		v.Group = append(v.Group, GroupDescriptor{Field: g.Field, Dir: string(g.Direction)})
	}
	if len(q.Aggregates) > 0 {
		v.Aggregates = make(map[string][]string)
		for _, a := range q.Aggregates {
			v.Aggregates[a.Field] = append(v.Aggregates[a.Field], string(a.Func))
		}
	}
	if q.Pivot != nil {
		v.Pivot = describePivot(*q.Pivot)
	}
	return v
}

// FromInputs captures engine inputs as a view. Named comparators are kept
// as column overrides; comparator functions without a name are dropped.
func FromInputs(name string, in query.Inputs) *View {
	v := &View{Name: name, Page: in.Page, PageSize: in.PageSize, Sort: DescribeSort(in.Sort)}
	for _, f := range in.Filters {
		v.Filter = append(v.Filter, DescribeFilter(f))
	}
	for _, g := range in.Group {
		v.Group = append(v.Group, GroupDescriptor{Field: g.Field, Dir: string(g.Direction)})
		if g.CompareName != "" {
			v.Columns = append(v.Columns, ColumnDef{Field: g.Field, GroupableSortCompare: g.CompareName})
		}
	}
	if len(in.Aggregates) > 0 {
		v.Aggregates = make(map[string][]string)
		for _, a := range in.Aggregates {
			v.Aggregates[a.Field] = append(v.Aggregates[a.Field], string(a.Func))
		}
	}
	if in.Pivot != nil {
		v.Pivot = describePivot(*in.Pivot)
	}
	for _, path := range sortedKeys(in.Collapsed) {
		if in.Collapsed[path] {
			v.Collapsed = append(v.Collapsed, path)
		}
	}
	return v
}

func describePivot(cfg query.PivotConfig) *PivotSchema {
	s := &PivotSchema{
		Dimensions: make(map[string]Dimension),
		Measures:   make(map[string]MeasureDef),
		ColumnSort: string(cfg.Columns.Sort),
		RowSort:    string(cfg.Rows.Sort),
	}
	for _, f := range cfg.Columns.Fields {
		s.Dimensions[f] = Dimension{}
		s.Columns = append(s.Columns, AxisRef{Name: f})
	}
	for _, f := range cfg.Rows.Fields {
		s.Dimensions[f] = Dimension{}
		s.Rows = append(s.Rows, AxisRef{Name: f})
	}
	for _, m := range cfg.Measures {
		name := m.Label()
		s.Measures[name] = MeasureDef{Field: m.Field, Aggregate: string(m.Func)}
		s.Values = append(s.Values, AxisRef{Name: name})
	}
	return s
}
