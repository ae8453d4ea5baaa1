package cache

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gridquery/app/metrics"
)

// Cache is a size-bounded LRU of derived pipeline results. Entries are
// immutable once stored; callers must not modify a returned Value.
type Cache struct {
	storage     map[string]*Entry
	maxSize     int64
	currentSize int64
	lru         *lruList
	mutex       sync.RWMutex
	logger      Logger

	// Performance counters
	stateHits int64
	stageHits int64
	misses    int64
	evictions int64
}

// NewCache creates a new cache
func NewCache(maxSize int64) *Cache {
	return NewCacheWithLogger(maxSize, nil)
}

// NewCacheWithLogger creates a new cache with a logger
func NewCacheWithLogger(maxSize int64, logger Logger) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}

	return &Cache{
		storage: make(map[string]*Entry),
		maxSize: maxSize,
		lru:     newLRUList(),
		logger:  logger,
	}
}

func (c *Cache) logf(level, format string, args ...any) {
	if c.logger != nil {
		c.logger.Log(level, fmt.Sprintf(format, args...))
	}
}

// Get retrieves an entry and marks it as recently used
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tier := "stage"
	if IsStateKey(key) {
		tier = "state"
	}

	entry, exists := c.storage[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		metrics.CacheLookups.WithLabelValues(tier, "miss").Inc()
		c.logf("debug", "[CACHE_MISS] Key: %s", key)
		return nil, false
	}

	if tier == "state" {
		atomic.AddInt64(&c.stateHits, 1)
		c.logf("debug", "[CACHE_HIT_STATE] Key: %s, Rows: %d, Size: %d bytes", key, entry.RowCount, entry.Size)
	} else {
		atomic.AddInt64(&c.stageHits, 1)
		c.logf("debug", "[CACHE_HIT_STAGE] Key: %s, Rows: %d, Size: %d bytes", key, entry.RowCount, entry.Size)
	}
	metrics.CacheLookups.WithLabelValues(tier, "hit").Inc()

	entry.AccessTime = time.Now().Unix()
	c.lru.touch(key)

	return entry, true
}

// LongestPrefix finds the stored stage entry whose key is the longest
// segment prefix of fullKey and marks it as recently used. It counts as one
// stage lookup.
func (c *Cache) LongestPrefix(fullKey string) (string, *Entry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	bestKey, bestStages := "", 0
	for key, entry := range c.storage {
		if IsStateKey(key) || !entry.IsComplete || !IsCacheKeyPrefix(key, fullKey) {
			continue
		}
		if n := ExtractStageCount(key); n > bestStages {
			bestKey, bestStages = key, n
		}
	}

	if bestStages == 0 {
		atomic.AddInt64(&c.misses, 1)
		metrics.CacheLookups.WithLabelValues("stage", "miss").Inc()
		c.logf("debug", "[CACHE_MISS] No stage prefix of key: %s", fullKey)
		return "", nil, false
	}

	entry := c.storage[bestKey]
	atomic.AddInt64(&c.stageHits, 1)
	metrics.CacheLookups.WithLabelValues("stage", "hit").Inc()
	c.logf("debug", "[CACHE_HIT_STAGE] Key: %s covers %d of %d stages", bestKey, bestStages, ExtractStageCount(fullKey))
	entry.AccessTime = time.Now().Unix()
	c.lru.touch(bestKey)
	return bestKey, entry, true
}

// Store adds or replaces an entry. Entries larger than the whole cache are
// rejected; otherwise least recently used entries are evicted to make room.
func (c *Cache) Store(key string, value any, rowCount int, size int64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if size > c.maxSize {
		c.logf("warn", "[CACHE_REJECT] Entry too large: %d bytes > %d cache limit", size, c.maxSize)
		return false
	}

	if existing, exists := c.storage[key]; exists {
		c.currentSize -= existing.Size
		delete(c.storage, key)
		c.lru.remove(key)
	}

	if !c.evictToMakeSpace(size) {
		c.logf("warn", "[CACHE_REJECT] Could not make space for entry: %d bytes needed, %d available", size, c.maxSize-c.currentSize)
		return false
	}

	now := time.Now()
	c.storage[key] = &Entry{
		Value:      value,
		RowCount:   rowCount,
		IsComplete: true,
		Size:       size,
		AccessTime: now.Unix(),
		CreateTime: now,
	}
	c.currentSize += size
	c.lru.touch(key)

	if IsStateKey(key) {
		c.logf("debug", "[CACHE_STORE_STATE] Key: %s, Rows: %d, Size: %d bytes, Total Cache: %d/%d bytes",
			key, rowCount, size, c.currentSize, c.maxSize)
	} else {
		c.logf("debug", "[CACHE_STORE_STAGE] Key: %s, Rows: %d, Size: %d bytes, Total Cache: %d/%d bytes",
			key, rowCount, size, c.currentSize, c.maxSize)
	}
	return true
}

func (c *Cache) removeLocked(key string) {
	if entry, exists := c.storage[key]; exists {
		delete(c.storage, key)
		c.currentSize -= entry.Size
		c.lru.remove(key)
	}
}

// Size returns the current cache size in bytes
func (c *Cache) Size() int64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.currentSize
}

// EntryCount returns the number of cached entries
func (c *Cache) EntryCount() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.storage)
}

// evictToMakeSpace removes entries until there's enough space
func (c *Cache) evictToMakeSpace(neededSize int64) bool {
	if neededSize > c.maxSize {
		return false
	}

	for c.currentSize+neededSize > c.maxSize {
		oldestKey, ok := c.lru.popOldest()
		if !ok {
			return c.currentSize+neededSize <= c.maxSize
		}
		if entry, exists := c.storage[oldestKey]; exists {
			delete(c.storage, oldestKey)
			c.currentSize -= entry.Size
			atomic.AddInt64(&c.evictions, 1)
			metrics.CacheEvictions.Inc()
			c.logf("debug", "[CACHE_EVICT] Evicted entry: %s, Size: %d bytes, Remaining Cache: %d/%d bytes",
				oldestKey, entry.Size, c.currentSize, c.maxSize)
		}
	}

	return true
}

// UpdateMaxSize updates the maximum cache size and triggers eviction if necessary
func (c *Cache) UpdateMaxSize(newMaxSize int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if newMaxSize <= 0 {
		newMaxSize = DefaultCacheMaxSize
	}

	oldMaxSize := c.maxSize
	c.maxSize = newMaxSize
	c.logf("info", "[CACHE_RESIZE] Cache size updated from %d to %d bytes", oldMaxSize, newMaxSize)

	evictedCount := 0
	for c.currentSize > c.maxSize {
		oldestKey, ok := c.lru.popOldest()
		if !ok {
			break
		}
		if entry, exists := c.storage[oldestKey]; exists {
			delete(c.storage, oldestKey)
			c.currentSize -= entry.Size
			evictedCount++
			atomic.AddInt64(&c.evictions, 1)
			metrics.CacheEvictions.Inc()
		}
	}

	if evictedCount > 0 {
		c.logf("info", "[CACHE_RESIZE_EVICT] Evicted %d entries due to cache size reduction, Final Cache: %d/%d bytes",
			evictedCount, c.currentSize, c.maxSize)
	}
}

// InvalidateDataset removes every entry derived from a dataset
func (c *Cache) InvalidateDataset(datasetID string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	marker := datasetMarker(datasetID)
	var keysToRemove []string
	for key := range c.storage {
		if strings.Contains(key, marker) {
			keysToRemove = append(keysToRemove, key)
		}
	}
	for _, key := range keysToRemove {
		c.removeLocked(key)
	}

	if len(keysToRemove) > 0 {
		c.logf("debug", "[CACHE_INVALIDATE] Dataset %s: removed %d entries", datasetID, len(keysToRemove))
	}
	return len(keysToRemove)
}

// GetCacheStats returns detailed cache statistics
func (c *Cache) GetCacheStats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := CacheStats{
		TotalEntries:   len(c.storage),
		TotalSize:      c.currentSize,
		MaxSize:        c.maxSize,
		UsagePercent:   float64(c.currentSize) / float64(c.maxSize) * 100,
		StageStats:     make(map[string]StageStats),
		StateCacheHits: atomic.LoadInt64(&c.stateHits),
		StageCacheHits: atomic.LoadInt64(&c.stageHits),
		CacheMisses:    atomic.LoadInt64(&c.misses),
		Evictions:      atomic.LoadInt64(&c.evictions),
	}

	total := stats.StateCacheHits + stats.StageCacheHits + stats.CacheMisses
	if total > 0 {
		stats.HitRate = float64(stats.StateCacheHits+stats.StageCacheHits) / float64(total)
		stats.StageHitRate = float64(stats.StageCacheHits) / float64(total)
	}

	for key, entry := range c.storage {
		stageName := ExtractStageNameFromKey(key)
		if stageName != "" {
			s := stats.StageStats[stageName]
			s.EntryCount++
			s.TotalSize += entry.Size
			stats.StageStats[stageName] = s
		}
	}

	return stats
}
