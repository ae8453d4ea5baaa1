package viewconfig

import (
	"fmt"

	"gridquery/app/interfaces"
	"gridquery/app/query"
)

// Dimension is a named pivot dimension. Field defaults to the dimension name.
type Dimension struct {
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
}

// MeasureDef is a named pivot measure
type MeasureDef struct {
	Caption   string `json:"caption,omitempty" yaml:"caption,omitempty"`
	Field     string `json:"field" yaml:"field"`
	Aggregate string `json:"aggregate" yaml:"aggregate"`
}

// AxisRef selects a dimension (or, in Values, a measure) by name
type AxisRef struct {
	Name string `json:"name" yaml:"name"`
}

// PivotSchema is the config shape of a pivot: named dimensions and measures
// plus the dimensions placed on each axis. Values picks and orders the
// measures; without it every measure is used, ordered by name.
type PivotSchema struct {
	Dimensions map[string]Dimension  `json:"dimensions" yaml:"dimensions"`
	Measures   map[string]MeasureDef `json:"measures" yaml:"measures"`
	Columns    []AxisRef             `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows       []AxisRef             `json:"rows,omitempty" yaml:"rows,omitempty"`
	Values     []AxisRef             `json:"values,omitempty" yaml:"values,omitempty"`
	ColumnSort string                `json:"columnSort,omitempty" yaml:"columnSort,omitempty"`
	RowSort    string                `json:"rowSort,omitempty" yaml:"rowSort,omitempty"`
}

// Config resolves the schema into an engine pivot config
func (s PivotSchema) Config() (query.PivotConfig, error) {
	var cfg query.PivotConfig

	cols, err := s.axisFields(s.Columns)
	if err != nil {
		return cfg, err
	}
	rows, err := s.axisFields(s.Rows)
	if err != nil {
		return cfg, err
	}
	cfg.Columns = query.PivotAxisSpec{Fields: cols, Sort: axisSort(s.ColumnSort)}
	cfg.Rows = query.PivotAxisSpec{Fields: rows, Sort: axisSort(s.RowSort)}

	names := make([]string, 0, len(s.Values))
	for _, v := range s.Values {
		names = append(names, v.Name)
	}
	if len(names) == 0 {
		names = sortedKeys(s.Measures)
	}
	if len(names) == 0 {
		return cfg, fmt.Errorf("pivot schema has no measures")
	}

	for _, name := range names {
		def, ok := s.Measures[name]
		if !ok {
			return cfg, fmt.Errorf("pivot: unknown measure %q", name)
		}
		fn, ok := query.ParseAggregateFunc(def.Aggregate)
		if !ok {
			return cfg, fmt.Errorf("pivot: measure %q has unknown aggregate %q", name, def.Aggregate)
		}
		if def.Field == "" {
			return cfg, fmt.Errorf("pivot: measure %q has no field", name)
		}
		label := def.Caption
		if label == "" {
			label = name
		}
		cfg.Measures = append(cfg.Measures, query.Measure{Name: label, Field: def.Field, Func: fn})
	}
	return cfg, nil
}

func (s PivotSchema) axisFields(refs []AxisRef) ([]string, error) {
	fields := make([]string, 0, len(refs))
	for _, ref := range refs {
		dim, ok := s.Dimensions[ref.Name]
		if !ok {
			return nil, fmt.Errorf("pivot: unknown dimension %q", ref.Name)
		}
		field := dim.Field
		if field == "" {
			field = ref.Name
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// Captions returns the display captions of an axis' dimensions
func (s PivotSchema) Captions(refs []AxisRef) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.Name
		if dim, ok := s.Dimensions[ref.Name]; ok && dim.Caption != "" {
			out[i] = dim.Caption
		}
	}
	return out
}

func axisSort(dir string) query.SortDirection {
	if dir == "" {
		return ""
	}
	return interfaces.ParseSortDirection(dir)
}
