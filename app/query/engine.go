package query

import (
	"context"
	"errors"
	"fmt"

	"gridquery/app/cache"
	"gridquery/app/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Inputs is everything a derived state is computed from
type Inputs struct {
	DatasetID  string // Identifies Rows in memo keys; empty disables memoization
	Rows       []Row
	Filters    []FilterNode
	Sort       []SortKey
	Group      []GroupKey
	Aggregates []AggregateSpec
	Pivot      *PivotConfig
	Page       int
	PageSize   int // 0 puts every item on one page
	Collapsed  map[string]bool
}

// DerivedState is an immutable snapshot of everything the grid renders
type DerivedState struct {
	Rows      []Row         // Filtered and sorted rows, in group order when grouped
	Total     int           // Rows after filtering
	Groups    *GroupTree    // nil without group keys or aggregates
	Totals    Aggregates    // Global aggregates over Rows
	Items     []DisplayItem // Every grid line before paging
	Pivot     *PivotResult  // nil without a pivot config
	Page      []DisplayItem // Grid lines of the requested page
	PageCount int
	Key       string // Structural memo key
	Cached    bool
}

// Engine recomputes derived states, memoizing them in the shared cache
type Engine struct {
	cache    *cache.Cache
	config   CacheConfig
	logger   Logger
	progress ProgressCallback
}

// NewEngine creates an engine. c may be nil to disable memoization.
func NewEngine(c *cache.Cache, config CacheConfig, logger Logger) *Engine {
	return &Engine{cache: c, config: config, logger: logger}
}

// SetProgressCallback installs a progress callback for subsequent recomputes
func (e *Engine) SetProgressCallback(cb ProgressCallback) {
	e.progress = cb
}

// Cache returns the engine's cache, possibly nil
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

func (e *Engine) logf(level, format string, args ...any) {
	if e.logger != nil {
		e.logger.Log(level, fmt.Sprintf(format, args...))
	}
}

// BuildPipeline translates inputs into stages: filter, sort, group, pivot
// and page, leaving out the ones with nothing to do.
func (e *Engine) BuildPipeline(in Inputs) *QueryPipeline {
	b := NewPipelineBuilder(in.DatasetID, e.cache, e.progress, e.logger, e.config)
	if len(in.Filters) > 0 {
		b.AddFilter(in.Filters)
	}
	if len(in.Sort) > 0 {
		b.AddSort(in.Sort)
	}
	if len(in.Group) > 0 || len(in.Aggregates) > 0 {
		b.AddGroup(in.Group, in.Aggregates, in.Collapsed)
	}
	if in.Pivot != nil {
		b.AddPivot(*in.Pivot)
	}
	b.AddPage(in.Page, in.PageSize)
	return b.Build()
}

// Recompute runs the full pipeline over in and returns a complete state or
// an error; no partial state is ever returned.
func (e *Engine) Recompute(ctx context.Context, in Inputs) (*DerivedState, error) {
	timer := prometheus.NewTimer(metrics.RecomputeDuration.WithLabelValues("local"))
	defer timer.ObserveDuration()

	pipeline := e.BuildPipeline(in)
	result, err := pipeline.Execute(ctx, &StageResult{Rows: in.Rows, Total: len(in.Rows)})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.RecomputeTotal.WithLabelValues("canceled").Inc()
		} else {
			metrics.RecomputeTotal.WithLabelValues("error").Inc()
			e.logf("error", "[RECOMPUTE_ERROR] %v", err)
		}
		return nil, err
	}

	if result.Cached {
		metrics.RecomputeTotal.WithLabelValues("cached").Inc()
	} else {
		metrics.RecomputeTotal.WithLabelValues("ok").Inc()
	}

	state := newDerivedState(result.StageResult, in.PageSize)
	state.Key = result.Key
	state.Cached = result.Cached
	e.logf("debug", "[RECOMPUTE] key=%s rows=%d items=%d page=%d cached=%v",
		state.Key, state.Total, len(state.Items), len(state.Page), state.Cached)
	return state, nil
}

func newDerivedState(r *StageResult, pageSize int) *DerivedState {
	state := &DerivedState{
		Rows:   r.Rows,
		Total:  r.Total,
		Groups: r.Groups,
		Items:  r.Items,
		Pivot:  r.Pivot,
		Page:   r.Page,
	}
	if r.Groups != nil {
		state.Totals = r.Groups.Totals
	}
	if pageSize > 0 {
		state.PageCount = PageCount(len(state.Items), pageSize)
	} else if len(state.Items) > 0 {
		state.PageCount = 1
	}
	return state
}

// InvalidateDataset drops every memoized state of a dataset
func (e *Engine) InvalidateDataset(datasetID string) int {
	if e.cache == nil {
		return 0
	}
	return e.cache.InvalidateDataset(datasetID)
}
