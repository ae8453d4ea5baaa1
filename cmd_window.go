package main

import (
	"fmt"
	"os"

	"gridquery/app/query"

	"github.com/spf13/cobra"
)

type windowOptions struct {
	rows      int
	scrollTop float64
	height    float64
	rowHeight float64
	buffer    int
	heights   []float64
	output    outputFlags
}

func newWindowCmd() *cobra.Command {
	var o windowOptions
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Compute the virtual scrolling window for a scroll position",
		Long: `Compute which rows a virtualized grid renders at a scroll position.

  gridquery window --rows 1000 --scroll-top 3500
  gridquery window --rows 4 --heights 20,40,20,60 --height 50 --scroll-top 30 --buffer 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.height == 0 {
				o.height = cfg.ContainerHeight
			}
			if o.rowHeight == 0 {
				o.rowHeight = cfg.RowHeight
			}
			if o.buffer < 0 {
				o.buffer = cfg.ViewportBuffer
			}
			w, err := o.window()
			if err != nil {
				return err
			}
			return o.output.emit(windowGrid(w))
		},
	}
	cmd.Flags().IntVar(&o.rows, "rows", 0, "number of rows in the grid")
	cmd.Flags().Float64Var(&o.scrollTop, "scroll-top", 0, "scroll offset in pixels")
	cmd.Flags().Float64Var(&o.height, "height", 0, "container height (default from settings)")
	cmd.Flags().Float64Var(&o.rowHeight, "row-height", 0, "fixed row height (default from settings)")
	cmd.Flags().IntVar(&o.buffer, "buffer", -1, "rows rendered beyond each edge (default from settings)")
	cmd.Flags().Float64SliceVar(&o.heights, "heights", nil, "per-row heights; overrides --row-height and --rows")
	o.output.register(cmd)
	return cmd
}

func (o windowOptions) window() (query.ViewportWindow, error) {
	if len(o.heights) > 0 {
		model := query.NewVariableRowHeights(o.heights)
		return query.ComputeWindowModel(o.scrollTop, o.height, model, len(o.heights), o.buffer), nil
	}
	if o.rows < 0 {
		return query.ViewportWindow{}, fmt.Errorf("--rows must not be negative")
	}
	if o.rowHeight <= 0 {
		return query.ViewportWindow{}, fmt.Errorf("--row-height must be positive")
	}
	return query.ComputeWindow(o.scrollTop, o.height, o.rowHeight, o.rows, o.buffer), nil
}

func windowGrid(w query.ViewportWindow) grid {
	if w.Len() == 0 {
		fmt.Fprintln(os.Stderr, "empty window")
	}
	return grid{
		header: []string{"startIndex", "endIndex", "bufferBefore", "bufferAfter"},
		rows: [][]any{{
			float64(w.StartIndex), float64(w.EndIndex),
			float64(w.BufferBefore), float64(w.BufferAfter),
		}},
	}
}
