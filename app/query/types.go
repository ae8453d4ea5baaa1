package query

import "gridquery/app/interfaces"

// Type aliases to interfaces package to avoid duplication and circular dependencies
type ProgressCallback = interfaces.ProgressCallback
type Row = interfaces.Row
type FilterNode = interfaces.FilterNode
type SortDirection = interfaces.SortDirection
type Logger = interfaces.Logger

const (
	SortAsc  = interfaces.SortAsc
	SortDesc = interfaces.SortDesc
)

// SortKey orders rows by one field
type SortKey struct {
	Field     string
	Direction SortDirection
}

// CompareFunc is a pluggable comparator with the usual negative/zero/positive contract
type CompareFunc func(a, b any) int

// GroupKey defines one level of grouping. Compare overrides the default
// ordering for the level and also decides which values share a group.
// Aggregates are computed for nodes at this level in addition to the global specs.
// CompareName identifies Compare in cache keys; a key with a Compare but no
// name makes the grouping uncacheable.
type GroupKey struct {
	Field       string
	Direction   SortDirection
	Compare     CompareFunc
	CompareName string
	Aggregates  []AggregateSpec
}

// StageResult is the output of a pipeline stage. Rows is always the flat
// filtered/sorted row set; Groups, Items and Pivot are filled by the stages
// that produce them.
type StageResult struct {
	Rows   []Row
	Total  int           // Rows after filtering, before paging
	Groups *GroupTree    // Set by the group stage
	Items  []DisplayItem // Flattened grid items (leaf rows or group headers and rows)
	Pivot  *PivotResult  // Set by the pivot stage
	Page   []DisplayItem // Set by the page stage
}

// PipelineStage represents a single stage in the query pipeline
type PipelineStage interface {
	// Execute processes the input data and returns a stage result
	Execute(input *StageResult) (*StageResult, error)

	// CanCache returns true if this stage's results can be cached
	CanCache() bool

	// CacheKey returns a unique key for caching this stage's results
	CacheKey() string

	// Name returns the stage name for progress reporting
	Name() string

	// EstimateOutputSize estimates the output size relative to input (0.0-1.0+)
	EstimateOutputSize() float64
}

const (
	// MinRowsForProgress is the minimum rows before showing progress
	MinRowsForProgress = 5000

	// DefaultCacheMaxSize is the default cache size limit (100MB)
	DefaultCacheMaxSize = 100 * 1024 * 1024
)

// CacheConfig controls caching behavior
type CacheConfig struct {
	EnablePipelineCache bool  // Cache full derived states
	EnableStageCache    bool  // Cache individual stage results
	CacheSizeLimit      int64 // Unified cache size limit in bytes
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		EnablePipelineCache: true,
		EnableStageCache:    true,
		CacheSizeLimit:      DefaultCacheMaxSize,
	}
}

// CacheConfigFromSettings creates cache config based on user settings
func CacheConfigFromSettings(enableCache bool, sizeMB int) CacheConfig {
	return CacheConfig{
		EnablePipelineCache: enableCache,
		EnableStageCache:    enableCache,
		CacheSizeLimit:      int64(sizeMB) * 1024 * 1024,
	}
}
