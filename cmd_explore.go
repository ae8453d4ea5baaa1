package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gridquery/app"
	"gridquery/app/query"
	"gridquery/app/viewconfig"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const explorePrompt = "gridquery> "

const exploreHelp = `Queries run against the active tab:
  region=East | sort price desc | group region | agg sum(price) | page 2

Commands:
  .open <path> [table]   open a file, directory or SQLite table in a new tab
  .tabs                  list open tabs (* marks the active one)
  .use <n>               switch to tab n
  .close                 close the active tab
  .page <n>              go to page n
  .next / .prev          move one page
  .size <n>              set the page size
  .scroll <px>           move the viewport and print the visible lines
  .toggle <line>         collapse or expand the group on a printed line
  .view save|load <file> save or load a view
  .format <f>            table, csv or json
  .stats                 cache statistics
  .cache <mb>            resize the result cache
  .help                  this text
  .quit                  leave`

func newExploreCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "explore [path]",
		Short: "Interactive shell over one or more open datasets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := newShell(app.NewApp(cfg, logger()), os.Stdout)
			if len(args) == 1 {
				line := ".open " + args[0]
				if table != "" {
					line += " " + table
				}
				if _, err := sh.execute(cmd.Context(), line); err != nil {
					return err
				}
			}
			return sh.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "treat path as a SQLite database and open this table")
	return cmd
}

// shell is the state behind the explore prompt
type shell struct {
	app    *app.App
	out    io.Writer
	format string
}

func newShell(a *app.App, out io.Writer) *shell {
	return &shell{app: a, out: out, format: formatTable}
}

func historyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gridquery", "history")
}

func (s *shell) run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	history := historyPath()
	if history != "" {
		if f, err := os.Open(history); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Fprintln(s.out, "Type '.help' for commands.")
	for ctx.Err() == nil {
		input, err := line.Prompt(explorePrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				break
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		quit, err := s.execute(ctx, input)
		if err != nil {
			fmt.Fprintln(s.out, "ERROR:", err)
		}
		if quit {
			break
		}
	}

	if history != "" {
		if err := os.MkdirAll(filepath.Dir(history), 0o755); err == nil {
			if f, err := os.Create(history); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return nil
}

var shellCommands = []string{
	".open", ".tabs", ".use", ".close", ".page", ".next", ".prev", ".size",
	".scroll", ".toggle", ".view", ".format", ".stats", ".cache", ".help", ".quit",
}

func completeCommand(line string) []string {
	var out []string
	for _, c := range shellCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// execute runs one input line. Lines starting with a dot are commands;
// anything else is a query for the active tab.
func (s *shell) execute(ctx context.Context, input string) (bool, error) {
	if !strings.HasPrefix(input, ".") {
		tab, err := s.activeTab()
		if err != nil {
			return false, err
		}
		state, err := tab.ApplyQuery(ctx, input)
		if err != nil {
			return false, err
		}
		return false, s.printState(tab, state)
	}

	name, rest, _ := strings.Cut(input, " ")
	args := strings.Fields(rest)
	switch name {
	case ".quit", ".exit":
		return true, nil
	case ".help":
		fmt.Fprintln(s.out, exploreHelp)
		return false, nil
	case ".open":
		return false, s.open(ctx, args)
	case ".tabs":
		s.printTabs()
		return false, nil
	case ".use":
		return false, s.use(args)
	case ".close":
		tab, err := s.activeTab()
		if err != nil {
			return false, err
		}
		return false, s.app.CloseTab(tab.ID)
	case ".stats":
		stats := s.app.GetCacheStats()
		fmt.Fprintf(s.out, "entries=%d size=%d/%d (%.1f%%) state hits=%d stage hits=%d misses=%d\n",
			stats.EntryCount, stats.TotalSize, stats.MaxSize, stats.UsagePercent,
			stats.StateHits, stats.StageHits, stats.Misses)
		return false, nil
	case ".cache":
		mb, err := intArg(name, args)
		if err != nil {
			return false, err
		}
		if mb <= 0 {
			return false, fmt.Errorf("cache size must be positive")
		}
		s.app.SetCacheSizeLimit(mb)
		return false, nil
	case ".format":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: .format table|csv|json")
		}
		switch args[0] {
		case formatTable, formatCSV, formatJSON:
			s.format = args[0]
			return false, nil
		}
		return false, fmt.Errorf("format %q is not available here", args[0])
	}

	tab, err := s.activeTab()
	if err != nil {
		return false, err
	}
	switch name {
	case ".page", ".size":
		n, err := intArg(name, args)
		if err != nil {
			return false, err
		}
		var state *query.DerivedState
		if name == ".page" {
			state, err = tab.SetPage(ctx, n)
		} else {
			state, err = tab.SetPageSize(ctx, n)
		}
		if err != nil {
			return false, err
		}
		return false, s.printState(tab, state)
	case ".next", ".prev":
		page := tab.Inputs().Page
		if name == ".next" {
			page++
		} else if page > 1 {
			page--
		}
		state, err := tab.SetPage(ctx, page)
		if err != nil {
			return false, err
		}
		return false, s.printState(tab, state)
	case ".scroll":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: .scroll <px>")
		}
		top, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, fmt.Errorf("invalid scroll offset %q", args[0])
		}
		w := tab.Scroll(top)
		fmt.Fprintf(s.out, "window [%d, %d) buffer %d/%d\n", w.StartIndex, w.EndIndex, w.BufferBefore, w.BufferAfter)
		state := tab.State()
		return false, itemsGrid(tab.Header, state.Groups, tab.VisibleItems()).write(s.out, s.format, "")
	case ".toggle":
		n, err := intArg(name, args)
		if err != nil {
			return false, err
		}
		state := tab.State()
		if n < 1 || n > len(state.Page) || state.Page[n-1].Kind != query.ItemGroup {
			return false, fmt.Errorf("line %d is not a group", n)
		}
		state, err = tab.ToggleGroup(ctx, state.Groups.Path(state.Page[n-1].Node))
		if err != nil {
			return false, err
		}
		return false, s.printState(tab, state)
	case ".view":
		return false, s.view(ctx, tab, args)
	}
	return false, fmt.Errorf("unknown command %s, try .help", name)
}

func (s *shell) activeTab() (*app.Tab, error) {
	tab := s.app.GetActiveTab()
	if tab == nil {
		return nil, fmt.Errorf("no open tab, use .open <path>")
	}
	return tab, nil
}

func (s *shell) open(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: .open <path> [table]")
	}
	table := ""
	if len(args) == 2 {
		table = args[1]
	}
	tab, err := openSource(ctx, s.app, args[0], table)
	if err != nil {
		return err
	}
	for _, w := range tab.Warnings {
		fmt.Fprintln(s.out, "warning:", w)
	}
	return s.printState(tab, tab.State())
}

func (s *shell) printTabs() {
	active := s.app.GetActiveTabID()
	for i, info := range s.app.GetTabs() {
		mark := " "
		if info.ID == active {
			mark = "*"
		}
		fmt.Fprintf(s.out, "%s %d  %s  %d rows\n", mark, i+1, info.FileName, info.RowCount)
	}
}

func (s *shell) use(args []string) error {
	n, err := intArg(".use", args)
	if err != nil {
		return err
	}
	tabs := s.app.GetTabs()
	if n < 1 || n > len(tabs) {
		return fmt.Errorf("no tab %d, %d open", n, len(tabs))
	}
	return s.app.SetActiveTab(tabs[n-1].ID)
}

func (s *shell) view(ctx context.Context, tab *app.Tab, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: .view save|load <file>")
	}
	switch args[0] {
	case "save":
		if err := viewconfig.SaveView(args[1], viewconfig.FromInputs(tab.Name, tab.Inputs())); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "saved", args[1])
		return nil
	case "load":
		v, err := viewconfig.LoadView(args[1])
		if err != nil {
			return err
		}
		state, err := tab.ApplyView(ctx, v, s.app.Registry())
		if err != nil {
			return err
		}
		return s.printState(tab, state)
	}
	return fmt.Errorf("usage: .view save|load <file>")
}

func (s *shell) printState(tab *app.Tab, state *query.DerivedState) error {
	var g grid
	if state.Pivot != nil {
		g = pivotGrid(state.Pivot)
	} else {
		g = stateGrid(tab.Header, state)
	}
	if err := g.write(s.out, s.format, ""); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d rows, page %d of %d\n", state.Total, tab.Inputs().Page, state.PageCount)
	return nil
}

func intArg(name string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s <n>", name)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", name, args[0])
	}
	return n, nil
}
