package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gridquery/app/query"

	"github.com/ohler55/ojg/oj"
	"github.com/xuri/excelize/v2"
)

// Output formats
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
	formatXLSX  = "xlsx"
)

// grid is a rendered result: a header and rows of cell values
type grid struct {
	header []string
	rows   [][]any
}

// stateGrid lays out the current page. Grouped states get a leading group
// column holding the header line of each group.
func stateGrid(header []string, state *query.DerivedState) grid {
	return itemsGrid(header, state.Groups, state.Page)
}

func itemsGrid(header []string, groups *query.GroupTree, items []query.DisplayItem) grid {
	g := grid{}
	grouped := groups != nil && len(groups.Keys) > 0
	if grouped {
		g.header = append(g.header, "group")
	}
	g.header = append(g.header, header...)

	for _, item := range items {
		var line []any
		if item.Kind == query.ItemGroup {
			line = make([]any, len(g.header))
			line[0] = groupLabel(groups, item)
			g.rows = append(g.rows, line)
			continue
		}
		if grouped {
			line = append(line, strings.Repeat("  ", item.Depth))
		}
		for _, h := range header {
			line = append(line, item.Row.Get(h))
		}
		g.rows = append(g.rows, line)
	}
	return g
}

func groupLabel(tree *query.GroupTree, item query.DisplayItem) string {
	n := &tree.Nodes[item.Node]
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", item.Depth))
	fmt.Fprintf(&b, "%s = %s (%d)", n.Field, formatValue(n.Value), n.Count())
	for _, field := range sortedAggregateFields(n.Aggregates) {
		for _, fn := range aggregateOrder {
			if cell, ok := n.Aggregates[field][fn]; ok {
				fmt.Fprintf(&b, " %s(%s)=%s", fn, field, cell)
			}
		}
	}
	return b.String()
}

var aggregateOrder = []query.AggregateFunc{query.AggCount, query.AggSum, query.AggAvg, query.AggMin, query.AggMax}

func sortedAggregateFields(a query.Aggregates) []string {
	fields := make([]string, 0, len(a))
	for f := range a {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// pivotGrid lays out a pivot cube: one line per row tuple, one column per
// column tuple and measure, then the row totals. The last line holds the
// column totals and the grand total.
func pivotGrid(p *query.PivotResult) grid {
	g := grid{}
	g.header = append(g.header, strings.Join(p.Rows.Fields, " / "))
	for c := range p.Columns.Tuples {
		for _, m := range p.Measures {
			g.header = append(g.header, columnCaption(p.Columns.Label(c), m))
		}
	}
	for _, m := range p.Measures {
		g.header = append(g.header, columnCaption("Total", m))
	}

	for r := range p.Rows.Tuples {
		line := []any{p.Rows.Label(r)}
		for c := range p.Columns.Tuples {
			for m := range p.Measures {
				line = append(line, cellValue(p.Cell(r, c, m)))
			}
		}
		for _, cell := range p.RowTotals[r] {
			line = append(line, cellValue(cell))
		}
		g.rows = append(g.rows, line)
	}

	totals := []any{"Total"}
	for c := range p.Columns.Tuples {
		for _, cell := range p.ColumnTotals[c] {
			totals = append(totals, cellValue(cell))
		}
	}
	for _, cell := range p.GrandTotal {
		totals = append(totals, cellValue(cell))
	}
	g.rows = append(g.rows, totals)
	return g
}

func columnCaption(column string, m query.Measure) string {
	if column == "" {
		return m.Label()
	}
	return column + " · " + m.Label()
}

func cellValue(c query.Cell) any {
	if !c.Valid {
		return nil
	}
	return c.Value
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case map[string]any, []any:
		if data, err := oj.Marshal(x); err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}

// write renders g in format. xlsx needs a file path instead of a writer.
func (g grid) write(w io.Writer, format, out string) error {
	switch format {
	case "", formatTable:
		return g.writeTable(w)
	case formatCSV:
		return g.writeCSV(w)
	case formatJSON:
		return g.writeJSON(w)
	case formatXLSX:
		if out == "" {
			return fmt.Errorf("xlsx output needs --out")
		}
		return g.writeXLSX(out)
	}
	return fmt.Errorf("unknown format %q (table, csv, json, xlsx)", format)
}

func (g grid) writeTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(g.header, "\t"))
	for _, row := range g.rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func (g grid) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(g.header); err != nil {
		return err
	}
	for _, row := range g.rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (g grid) writeJSON(w io.Writer) error {
	records := make([]any, len(g.rows))
	for i, row := range g.rows {
		rec := make(map[string]any, len(g.header))
		for j, h := range g.header {
			if j < len(row) {
				rec[h] = row[j]
			}
		}
		records[i] = rec
	}
	data, err := oj.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func (g grid) writeXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := make([]any, len(g.header))
	for i, h := range g.header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range g.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		line := make([]any, len(row))
		for j, v := range row {
			switch v.(type) {
			case nil, float64, string, bool:
				line[j] = v
			default:
				line[j] = formatValue(v)
			}
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
