package main

import (
	"fmt"
	"os"
	"strings"

	"gridquery/app"
	"gridquery/app/query"

	"github.com/spf13/cobra"
)

type pivotOptions struct {
	table    string
	rows     []string
	cols     []string
	measures []string
	rowSort  string
	colSort  string
	output   outputFlags
}

func newPivotCmd() *cobra.Command {
	var o pivotOptions
	cmd := &cobra.Command{
		Use:   "pivot <path> [filter]",
		Short: "Cross-tabulate a dataset",
		Long: `Cross-tabulate a dataset by row and column dimensions.

  gridquery pivot sales.csv --rows region --cols quarter --measure 'sum(price)' --measure 'count(id)'
  gridquery pivot sales.csv 'year >= 2020' --rows region,product --measure 'avg(price)' --rowsort desc`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 2 {
				filter = args[1]
			}
			pivot, err := o.config()
			if err != nil {
				return err
			}
			return runPivot(cmd, args[0], filter, pivot, o)
		},
	}
	cmd.Flags().StringVar(&o.table, "table", "", "treat path as a SQLite database and pivot this table")
	cmd.Flags().StringSliceVar(&o.rows, "rows", nil, "row dimension fields")
	cmd.Flags().StringSliceVar(&o.cols, "cols", nil, "column dimension fields")
	cmd.Flags().StringArrayVarP(&o.measures, "measure", "m", nil, "measure as fn(field); repeatable")
	cmd.Flags().StringVar(&o.rowSort, "rowsort", "", "asc or desc; default keeps first-seen order")
	cmd.Flags().StringVar(&o.colSort, "colsort", "", "asc or desc; default keeps first-seen order")
	o.output.register(cmd)
	return cmd
}

// config builds the pivot configuration from the flags
func (o pivotOptions) config() (*query.PivotConfig, error) {
	if len(o.measures) == 0 {
		return nil, fmt.Errorf("at least one --measure is required")
	}
	q, err := query.ParseQuery("agg "+strings.Join(o.measures, ", "), "")
	if err != nil {
		return nil, err
	}
	pivot := &query.PivotConfig{
		Rows:    query.PivotAxisSpec{Fields: o.rows, Sort: query.ParseSortDirectionValue(o.rowSort)},
		Columns: query.PivotAxisSpec{Fields: o.cols, Sort: query.ParseSortDirectionValue(o.colSort)},
	}
	for _, s := range q.Aggregates {
		pivot.Measures = append(pivot.Measures, query.Measure{Field: s.Field, Func: s.Func})
	}
	return pivot, nil
}

func runPivot(cmd *cobra.Command, path, filter string, pivot *query.PivotConfig, o pivotOptions) error {
	ctx := cmd.Context()
	a := app.NewApp(cfg, logger())

	tab, err := openSource(ctx, a, path, o.table)
	if err != nil {
		return err
	}
	for _, w := range tab.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	if strings.TrimSpace(filter) != "" {
		q, err := query.ParseQuery(filter, query.AnyField)
		if err != nil {
			return err
		}
		if _, err := tab.SetFilters(ctx, q.Filters); err != nil {
			return err
		}
	}
	state, err := tab.SetPivot(ctx, pivot)
	if err != nil {
		return err
	}
	if state.Pivot == nil {
		return fmt.Errorf("no pivot computed for %s", path)
	}
	return o.output.emit(pivotGrid(state.Pivot))
}
