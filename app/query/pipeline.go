package query

import (
	"context"
	"fmt"

	"gridquery/app/cache"
)

// QueryPipeline orchestrates the execution of multiple pipeline stages
type QueryPipeline struct {
	stages      []PipelineStage
	cache       *cache.Cache
	progress    ProgressCallback
	logger      Logger
	datasetID   string
	cacheConfig CacheConfig
}

// QueryResult is the output of a full pipeline run
type QueryResult struct {
	*StageResult
	Key    string // Structural memo key of the run
	Cached bool   // Served whole from the state cache
}

// NewQueryPipeline creates a new query pipeline. A nil cache or an empty
// dataset id disables caching.
func NewQueryPipeline(datasetID string, c *cache.Cache, progress ProgressCallback, logger Logger, config CacheConfig) *QueryPipeline {
	return &QueryPipeline{
		datasetID:   datasetID,
		cache:       c,
		progress:    progress,
		logger:      logger,
		cacheConfig: config,
	}
}

func (p *QueryPipeline) logf(level, format string, args ...any) {
	if p.logger != nil {
		p.logger.Log(level, fmt.Sprintf(format, args...))
	}
}

// AddStage adds a pipeline stage
func (p *QueryPipeline) AddStage(stage PipelineStage) {
	p.stages = append(p.stages, stage)
}

// Key returns the structural memo key of the pipeline
func (p *QueryPipeline) Key() string {
	return StructuralKey(p.datasetID, p.stages)
}

func (p *QueryPipeline) cacheable() bool {
	return p.cache != nil && p.datasetID != ""
}

// cacheablePrefix returns how many leading stages can be cached. The output
// of an uncacheable stage taints every later stage key.
func (p *QueryPipeline) cacheablePrefix() int {
	for i, stage := range p.stages {
		if !stage.CanCache() {
			return i
		}
	}
	return len(p.stages)
}

// canCacheResult reports whether every stage supports caching
func (p *QueryPipeline) canCacheResult() bool {
	for _, stage := range p.stages {
		if !stage.CanCache() {
			return false
		}
	}
	return true
}

// Execute runs the stages in order over input. The context is checked
// before every stage; a canceled run returns ctx.Err() and no result.
func (p *QueryPipeline) Execute(ctx context.Context, input *StageResult) (*QueryResult, error) {
	key := p.Key()

	if len(p.stages) == 0 {
		out := *input
		out.Total = len(out.Rows)
		return &QueryResult{StageResult: &out, Key: key}, nil
	}

	if p.cacheable() && p.cacheConfig.EnablePipelineCache && p.canCacheResult() {
		if entry, found := p.cache.Get(key); found && entry.IsComplete {
			if result, ok := entry.Value.(*StageResult); ok {
				p.logf("debug", "[CACHE_HIT] Using cached state for key: %s (%d rows)", key, len(result.Rows))
				return &QueryResult{StageResult: result, Key: key, Cached: true}, nil
			}
		}
	} else if p.cacheable() && !p.cacheConfig.EnablePipelineCache {
		p.logf("debug", "[CACHE_DISABLED] State cache disabled by user settings")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reporter := newStageReporter(p.progress, len(p.stages))
	useStageCache := p.cacheable() && p.cacheConfig.EnableStageCache
	prefix := p.cacheablePrefix()

	current := input
	start := 0
	if useStageCache && prefix > 0 {
		fullKey := BuildStageCacheKey(p.datasetID, p.stages[:prefix])
		if prefixKey, entry, found := p.cache.LongestPrefix(fullKey); found {
			if cached, ok := entry.Value.(*StageResult); ok {
				start = cache.ExtractStageCount(prefixKey)
				current = cached
				p.logf("debug", "[CACHE_HIT_STAGE] Resuming after %d of %d stages (%d rows)", start, len(p.stages), len(cached.Rows))
				for _, stage := range p.stages[:start] {
					reporter.finish(stage, len(cached.Rows), true)
				}
			}
		}
	}

	for i := start; i < len(p.stages); i++ {
		stage := p.stages[i]
		select {
		case <-ctx.Done():
			p.logf("info", "[RECOMPUTE_CANCELED] Stopped before stage %s", stage.Name())
			return nil, ctx.Err()
		default:
		}

		reporter.start(stage, len(current.Rows))
		result, err := stage.Execute(current)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}

		if useStageCache && i < prefix {
			stageKey := BuildStageCacheKey(p.datasetID, p.stages[:i+1])
			if p.cache.Store(stageKey, result, len(result.Rows), resultSize(result)) {
				p.logf("debug", "[CACHE_STORE_STAGE] Cached stage %s: %s (%d rows)", stage.Name(), stageKey, len(result.Rows))
			}
		}

		current = result
		reporter.finish(stage, len(result.Rows), false)
	}

	if p.cacheable() && p.cacheConfig.EnablePipelineCache && p.canCacheResult() {
		if p.cache.Store(key, current, len(current.Rows), resultSize(current)) {
			p.logf("debug", "[CACHE_STORE] Stored state for key: %s (%d rows)", key, len(current.Rows))
		}
	}

	return &QueryResult{StageResult: current, Key: key}, nil
}

// resultSize estimates the cache footprint of a stage result. Rows are
// shared with the dataset, so only references and derived structures count.
func resultSize(r *StageResult) int64 {
	size := cache.SharedRowsSize(len(r.Rows))
	size += int64(len(r.Items)+len(r.Page)) * 40
	if r.Groups != nil {
		size += int64(len(r.Groups.Nodes)) * 160
	}
	if r.Pivot != nil {
		cells := r.Pivot.Rows.Len() * r.Pivot.Columns.Len() * len(r.Pivot.Measures)
		size += int64(cells) * 16
	}
	return size
}

// PipelineBuilder helps construct query pipelines
type PipelineBuilder struct {
	pipeline *QueryPipeline
}

// NewPipelineBuilder creates a new pipeline builder
func NewPipelineBuilder(datasetID string, c *cache.Cache, progress ProgressCallback, logger Logger, config CacheConfig) *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: NewQueryPipeline(datasetID, c, progress, logger, config),
	}
}

// AddFilter adds a filter stage to the pipeline
func (b *PipelineBuilder) AddFilter(filters []FilterNode) *PipelineBuilder {
	b.pipeline.AddStage(NewFilterStage(filters))
	return b
}

// AddSort adds a sort stage to the pipeline
func (b *PipelineBuilder) AddSort(keys []SortKey) *PipelineBuilder {
	b.pipeline.AddStage(NewSortStage(keys))
	return b
}

// AddGroup adds a group stage to the pipeline
func (b *PipelineBuilder) AddGroup(keys []GroupKey, specs []AggregateSpec, collapsed map[string]bool) *PipelineBuilder {
	b.pipeline.AddStage(NewGroupStage(keys, specs, collapsed))
	return b
}

// AddPivot adds a pivot stage to the pipeline
func (b *PipelineBuilder) AddPivot(config PivotConfig) *PipelineBuilder {
	b.pipeline.AddStage(NewPivotStage(config))
	return b
}

// AddPage adds a page stage to the pipeline
func (b *PipelineBuilder) AddPage(page, pageSize int) *PipelineBuilder {
	b.pipeline.AddStage(NewPageStage(page, pageSize))
	return b
}

// Build returns the constructed pipeline
func (b *PipelineBuilder) Build() *QueryPipeline {
	return b.pipeline
}
