package cache

import (
	"time"

	"gridquery/app/interfaces"
)

// Logger interface for cache logging
type Logger = interfaces.Logger

// Entry is one cached derived value: a full derived state or a stage result
type Entry struct {
	Value      any
	RowCount   int
	IsComplete bool
	Size       int64
	AccessTime int64
	CreateTime time.Time
}

// CacheStats contains detailed cache statistics
type CacheStats struct {
	TotalEntries int
	TotalSize    int64
	MaxSize      int64
	UsagePercent float64
	StageStats   map[string]StageStats

	StateCacheHits int64   // Full derived-state hits
	StageCacheHits int64   // Individual stage hits
	CacheMisses    int64   // Total misses
	Evictions      int64   // Entries dropped to make room
	HitRate        float64 // Overall hit rate
	StageHitRate   float64 // Stage-level hit rate
}

// StageStats contains statistics for a specific stage type
type StageStats struct {
	EntryCount int
	TotalSize  int64
}

// DefaultCacheMaxSize is the default cache size limit (100MB)
const DefaultCacheMaxSize = 100 * 1024 * 1024

// SharedRowsSize estimates the footprint of an entry whose rows are shared
// with the source dataset: only the slice of row references is counted.
func SharedRowsSize(rowCount int) int64 {
	// 8 bytes per map reference + 24 bytes slice header + entry overhead
	return int64(rowCount*8) + 24 + 300
}

// RowsSize estimates the footprint of rows owned by the entry
func RowsSize(rows []interfaces.Row) int64 {
	size := int64(24 + 300)
	for _, row := range rows {
		size += 48
		for k, v := range row {
			size += int64(len(k)) + 16
			if s, ok := v.(string); ok {
				size += int64(len(s))
			} else {
				size += 8
			}
		}
	}
	return size
}
