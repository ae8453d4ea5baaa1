package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gridquery/app"
	"gridquery/app/sqlsource"
	"gridquery/app/viewconfig"

	"github.com/spf13/cobra"
)

// outputFlags select how results are written
type outputFlags struct {
	format string
	out    string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", formatTable, "table, csv, json or xlsx")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "write to this file instead of stdout")
}

func (o *outputFlags) emit(g grid) error {
	if o.format == formatXLSX || o.out == "" {
		return g.write(os.Stdout, o.format, o.out)
	}
	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := g.write(f, o.format, o.out); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// openSource opens a file or directory, or with table set a SQLite table
// served page by page
func openSource(ctx context.Context, a *app.App, path, table string) (*app.Tab, error) {
	if table == "" {
		return a.OpenFileTab(ctx, path, fileOptions())
	}
	db, err := sqlsource.Open(path)
	if err != nil {
		return nil, err
	}
	provider, err := sqlsource.NewProvider(ctx, db, table, logger())
	if err != nil {
		db.Close()
		return nil, err
	}
	return a.OpenRemoteTab(ctx, path+":"+table, provider.Columns(), provider)
}

type runOptions struct {
	table    string
	view     string
	saveView string
	page     int
	pageSize int
	output   outputFlags
}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run <path> [query]",
		Short: "Run a query over a data file, directory or SQLite table",
		Long: `Run a pipe query over a data file, directory or SQLite table and print
one page of the result.

  gridquery run sales.csv 'filter region=East | sort price desc | page 1 20'
  gridquery run logs/ --pattern '**/*.json.gz' 'status>=500 | group host | agg count(status)'
  gridquery run sales.db --table sales 'price > 100'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 2 {
				text = args[1]
			}
			return runQuery(cmd, args[0], text, o)
		},
	}
	cmd.Flags().StringVar(&o.table, "table", "", "treat path as a SQLite database and query this table")
	cmd.Flags().StringVar(&o.view, "view", "", "apply a saved view (yaml or json) before the query")
	cmd.Flags().StringVar(&o.saveView, "save-view", "", "save the resulting inputs as a view file")
	cmd.Flags().IntVar(&o.page, "page", 0, "page to print (overrides the query)")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 0, "rows per page (default from settings)")
	o.output.register(cmd)
	return cmd
}

func runQuery(cmd *cobra.Command, path, text string, o runOptions) error {
	ctx := cmd.Context()
	if o.view != "" && strings.TrimSpace(text) != "" {
		return fmt.Errorf("--view and a query replace each other, give one")
	}
	a := app.NewApp(cfg, logger())

	tab, err := openSource(ctx, a, path, o.table)
	if err != nil {
		return err
	}
	for _, w := range tab.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	if o.view != "" {
		v, err := viewconfig.LoadView(o.view)
		if err != nil {
			return err
		}
		if _, err := tab.ApplyView(ctx, v, a.Registry()); err != nil {
			return err
		}
	}
	if strings.TrimSpace(text) != "" {
		if _, err := tab.ApplyQuery(ctx, text); err != nil {
			return err
		}
	}
	if o.pageSize > 0 {
		if _, err := tab.SetPageSize(ctx, o.pageSize); err != nil {
			return err
		}
	}
	if o.page > 0 {
		if _, err := tab.SetPage(ctx, o.page); err != nil {
			return err
		}
	}

	state := tab.State()
	if o.saveView != "" {
		if err := viewconfig.SaveView(o.saveView, viewconfig.FromInputs(tab.Name, tab.Inputs())); err != nil {
			return err
		}
	}

	var g grid
	if state.Pivot != nil {
		g = pivotGrid(state.Pivot)
	} else {
		g = stateGrid(tab.Header, state)
	}
	if err := o.output.emit(g); err != nil {
		return err
	}
	in := tab.Inputs()
	fmt.Fprintf(os.Stderr, "%d rows, page %d of %d\n", state.Total, in.Page, state.PageCount)
	return nil
}
