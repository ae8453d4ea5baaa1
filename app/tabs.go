package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"gridquery/app/interfaces"
	"gridquery/app/query"
	"gridquery/app/viewconfig"

	"github.com/google/uuid"
	"github.com/minio/highwayhash"
)

// Tab is one open dataset with its current inputs, derived state and
// viewport. Input setters recompute; scrolling only moves the viewport.
type Tab struct {
	ID        string
	Name      string
	FilePath  string
	FileHash  string
	DatasetID string
	Options   interfaces.FileOptions
	Header    []string
	Warnings  []string

	engine   *query.Engine
	remote   *query.RemoteSource
	logger   interfaces.Logger
	viewport *query.Viewport

	mu     sync.Mutex
	rows   []query.Row
	inputs query.Inputs
	state  *query.DerivedState
	// Seq of the remote refresh behind state
	remoteSeq uint64
}

func newTab(a *App, name string) *Tab {
	s := a.settings
	return &Tab{
		ID:       "tab-" + uuid.NewString(),
		Name:     name,
		engine:   a.engine,
		logger:   a.logger,
		viewport: query.NewViewport(s.ContainerHeight, s.RowHeight, s.ViewportBuffer),
		inputs:   query.Inputs{Page: 1, PageSize: s.PageSize},
	}
}

func (t *Tab) logf(level, format string, args ...any) {
	if t.logger != nil {
		t.logger.Log(level, fmt.Sprintf(format, args...))
	}
}

// Info returns the tab's display metadata
func (t *Tab) Info() interfaces.TabInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return interfaces.TabInfo{
		ID:       t.ID,
		FileName: t.Name,
		FilePath: t.FilePath,
		FileHash: t.FileHash,
		Headers:  t.Header,
		RowCount: len(t.rows),
	}
}

// IsRemote reports whether the tab's rows come from a data provider
func (t *Tab) IsRemote() bool {
	return t.remote != nil
}

// Remote returns the tab's remote source, nil for local tabs
func (t *Tab) Remote() *query.RemoteSource {
	return t.remote
}

// Inputs returns a copy of the current inputs
func (t *Tab) Inputs() query.Inputs {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputs
}

// State returns the current derived state, nil before the first recompute
func (t *Tab) State() *query.DerivedState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Viewport returns the tab's viewport
func (t *Tab) Viewport() *query.Viewport {
	return t.viewport
}

// Update applies change to a copy of the inputs and recomputes. On error
// the previous inputs and state are kept.
func (t *Tab) Update(ctx context.Context, change func(in *query.Inputs)) (*query.DerivedState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.inputs
	if change != nil {
		change(&next)
	}
	next.DatasetID = t.DatasetID
	next.Rows = t.rows
	if next.Page < 1 {
		next.Page = 1
	}

	state, err := t.recomputeLocked(ctx, next)
	if err != nil {
		return nil, err
	}
	t.inputs = next
	t.state = state
	t.viewport.SetRowCount(len(state.Page))
	return state, nil
}

func (t *Tab) recomputeLocked(ctx context.Context, in query.Inputs) (*query.DerivedState, error) {
	if t.remote == nil {
		return t.engine.Recompute(ctx, in)
	}

	state, res := t.engine.RecomputeRemote(ctx, t.remote, in)
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Seq < t.remoteSeq {
		t.logf("debug", "[TAB_STALE] %s: dropping refresh %d older than %d", t.ID, res.Seq, t.remoteSeq)
		return nil, fmt.Errorf("refresh %s superseded", res.RequestID)
	}
	t.remoteSeq = res.Seq
	return state, nil
}

// Recompute reruns the pipeline with the current inputs
func (t *Tab) Recompute(ctx context.Context) (*query.DerivedState, error) {
	return t.Update(ctx, nil)
}

// SetFilters replaces the filters and returns to page 1
func (t *Tab) SetFilters(ctx context.Context, filters []query.FilterNode) (*query.DerivedState, error) {
	return t.Update(ctx, func(in *query.Inputs) {
		in.Filters = filters
		in.Page = 1
	})
}

// SetSort replaces the sort keys
func (t *Tab) SetSort(ctx context.Context, keys []query.SortKey) (*query.DerivedState, error) {
	return t.Update(ctx, func(in *query.Inputs) { in.Sort = keys })
}

// SetGroup replaces the group keys and aggregates. Collapsed groups are
// forgotten since their paths no longer apply.
func (t *Tab) SetGroup(ctx context.Context, keys []query.GroupKey, specs []query.AggregateSpec) (*query.DerivedState, error) {
	return t.Update(ctx, func(in *query.Inputs) {
		in.Group = keys
		in.Aggregates = specs
		in.Collapsed = nil
		in.Page = 1
	})
}

// SetPivot replaces the pivot config, nil to remove it
func (t *Tab) SetPivot(ctx context.Context, cfg *query.PivotConfig) (*query.DerivedState, error) {
	return t.Update(ctx, func(in *query.Inputs) { in.Pivot = cfg })
}

// SetPage moves to page (1-based)
func (t *Tab) SetPage(ctx context.Context, page int) (*query.DerivedState, error) {
	return t.Update(ctx, func(in *query.Inputs) { in.Page = page })
}

// SetPageSize changes the page size and returns to page 1
func (t *Tab) SetPageSize(ctx context.Context, size int) (*query.DerivedState, error) {
	return t.Update(ctx, func(in *query.Inputs) {
		in.PageSize = size
		in.Page = 1
	})
}

// ToggleGroup collapses or expands the group at path
func (t *Tab) ToggleGroup(ctx context.Context, path string) (*query.DerivedState, error) {
	return t.Update(ctx, func(in *query.Inputs) {
		collapsed := make(map[string]bool, len(in.Collapsed)+1)
		for k, v := range in.Collapsed {
			collapsed[k] = v
		}
		if collapsed[path] {
			delete(collapsed, path)
		} else {
			collapsed[path] = true
		}
		in.Collapsed = collapsed
	})
}

// ApplyQuery parses a text query and replaces the inputs with it. Bare
// words search every field.
func (t *Tab) ApplyQuery(ctx context.Context, text string) (*query.DerivedState, error) {
	q, err := query.ParseQuery(text, query.AnyField)
	if err != nil {
		return nil, err
	}
	return t.Update(ctx, func(in *query.Inputs) {
		pageSize := in.PageSize
		*in = q.Inputs(t.DatasetID, t.rows)
		if q.PageSize == 0 {
			in.PageSize = pageSize
		}
	})
}

// ApplyView replaces the inputs with a saved view
func (t *Tab) ApplyView(ctx context.Context, v *viewconfig.View, reg *viewconfig.Registry) (*query.DerivedState, error) {
	next, err := v.Inputs(t.DatasetID, nil, reg)
	if err != nil {
		return nil, err
	}
	return t.Update(ctx, func(in *query.Inputs) {
		pageSize := in.PageSize
		*in = next
		if v.PageSize == 0 {
			in.PageSize = pageSize
		}
	})
}

// PersistedOptions captures the tab's sort, filter and paging
func (t *Tab) PersistedOptions() viewconfig.PersistedOptions {
	return viewconfig.OptionsFromInputs(t.Inputs())
}

// RestoreOptions applies persisted options and recomputes
func (t *Tab) RestoreOptions(ctx context.Context, opts viewconfig.PersistedOptions) (*query.DerivedState, error) {
	return t.Update(ctx, opts.Apply)
}

// Scroll moves the viewport without recomputing anything
func (t *Tab) Scroll(scrollTop float64) query.ViewportWindow {
	return t.viewport.Scroll(scrollTop)
}

// VisibleItems returns the grid lines of the current page inside the
// viewport window, buffer included
func (t *Tab) VisibleItems() []query.DisplayItem {
	state := t.State()
	if state == nil {
		return nil
	}
	w := t.viewport.Window()
	start := min(w.StartIndex, len(state.Page))
	end := min(w.EndIndex, len(state.Page))
	if start >= end {
		return nil
	}
	return state.Page[start:end]
}

// datasetID combines the content hash with the options that change how
// the content parses
func datasetID(fileHash string, opts interfaces.FileOptions) string {
	desc := fmt.Sprintf("%s\x1f%t\x1f%s\x1f%t\x1f%s\x1f%t\x1f%d\x1f%s",
		opts.JPath, opts.NoHeaderRow, opts.Sheet, opts.InferNumbers,
		opts.FilePattern, opts.IncludeSource, opts.MaxFiles, opts.ExcludePattern)
	sum := highwayhash.Sum64([]byte(desc), FileHashKey)
	return fileHash + "-" + strconv.FormatUint(sum, 16)
}

func tabName(path string) string {
	return filepath.Base(path)
}
