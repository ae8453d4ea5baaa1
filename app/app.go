package app

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"gridquery/app/cache"
	"gridquery/app/fileloader"
	"gridquery/app/interfaces"
	"gridquery/app/query"
	"gridquery/app/settings"
	"gridquery/app/viewconfig"

	"github.com/minio/highwayhash"
)

// FileHashKey is the fixed HighwayHash key for dataset hashes, so the same
// file always hashes the same way and memoized states can be shared.
var FileHashKey = []byte("gridquery dataset hash key 0001!")

// App hosts the open tabs and the engine and cache they share
type App struct {
	tabsMu      sync.RWMutex
	tabs        map[string]*Tab
	order       []string
	activeTabID string

	settings   settings.Settings
	queryCache *cache.Cache
	engine     *query.Engine
	registry   *viewconfig.Registry
	logger     interfaces.Logger
}

// NewApp creates an app from settings. logger may be nil.
func NewApp(s settings.Settings, logger interfaces.Logger) *App {
	cacheConfig := query.CacheConfigFromSettings(s.EnableQueryCache, s.CacheSizeLimitMB)
	queryCache := cache.NewCacheWithLogger(cacheConfig.CacheSizeLimit, logger)

	engine := query.NewEngine(queryCache, cacheConfig, logger)
	if logger != nil {
		engine.SetProgressCallback(query.LogProgressCallback(logger))
	}
	return &App{
		tabs:       make(map[string]*Tab),
		settings:   s,
		queryCache: queryCache,
		engine:     engine,
		registry:   viewconfig.NewRegistry(),
		logger:     logger,
	}
}

// Log forwards to the app logger
func (a *App) Log(level, message string) {
	if a.logger != nil {
		a.logger.Log(level, message)
	}
}

func (a *App) logf(level, format string, args ...any) {
	if a.logger != nil {
		a.logger.Log(level, fmt.Sprintf(format, args...))
	}
}

// Engine returns the shared engine
func (a *App) Engine() *query.Engine {
	return a.engine
}

// Registry returns the comparator registry used when applying views
func (a *App) Registry() *viewconfig.Registry {
	return a.registry
}

// Settings returns the settings the app was created with
func (a *App) Settings() settings.Settings {
	return a.settings
}

// CacheStatsResponse summarizes the derived-state cache
type CacheStatsResponse struct {
	TotalSize    int64   `json:"totalSize"`
	MaxSize      int64   `json:"maxSize"`
	UsagePercent float64 `json:"usagePercent"`
	EntryCount   int     `json:"entryCount"`
	StateHits    int64   `json:"stateHits"`
	StageHits    int64   `json:"stageHits"`
	Misses       int64   `json:"misses"`
}

// GetCacheStats returns the current cache statistics
func (a *App) GetCacheStats() CacheStatsResponse {
	stats := a.queryCache.GetCacheStats()
	return CacheStatsResponse{
		TotalSize:    stats.TotalSize,
		MaxSize:      stats.MaxSize,
		UsagePercent: stats.UsagePercent,
		EntryCount:   stats.TotalEntries,
		StateHits:    stats.StateCacheHits,
		StageHits:    stats.StageCacheHits,
		Misses:       stats.CacheMisses,
	}
}

// SetCacheSizeLimit resizes the result cache, evicting the least recently
// used entries when it shrinks
func (a *App) SetCacheSizeLimit(mb int) {
	a.settings.CacheSizeLimitMB = mb
	a.queryCache.UpdateMaxSize(int64(mb) * 1024 * 1024)
}

// CalculateFileHash returns the hex HighwayHash of a file's content
func CalculateFileHash(filePath string) (string, error) {
	return CalculateFilesHash([]string{filePath})
}

// CalculateFilesHash hashes the contents of several files in order, used
// for datasets loaded from a directory
func CalculateFilesHash(paths []string) (string, error) {
	hash, err := highwayhash.New(FileHashKey)
	if err != nil {
		return "", fmt.Errorf("failed to create hash: %w", err)
	}
	for _, p := range paths {
		if err := hashFile(hash, p); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(w, file); err != nil {
		return err
	}
	// Separate files so moving bytes between them changes the hash
	_, err = w.Write([]byte{0})
	return err
}

// datasetHash hashes a file, or every file a directory load would read
func datasetHash(path string, opts interfaces.FileOptions, maxFiles int) (string, error) {
	if !fileloader.IsDirectory(path) {
		return CalculateFileHash(path)
	}
	if opts.MaxFiles == 0 {
		opts.MaxFiles = maxFiles
	}
	info, err := fileloader.DiscoverFiles(path, fileloader.DirectoryDiscoveryOptions{
		Pattern:        opts.FilePattern,
		ExcludePattern: opts.ExcludePattern,
		MaxFiles:       opts.MaxFiles,
	})
	if err != nil {
		return "", err
	}
	return CalculateFilesHash(info.Files)
}
