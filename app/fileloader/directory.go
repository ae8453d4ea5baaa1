package fileloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gridquery/app/interfaces"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/panjf2000/ants/v2"
)

// DirectoryInfo contains metadata about a discovered directory
type DirectoryInfo struct {
	RootPath  string   // Absolute path to directory
	Files     []string // Discovered file paths (absolute, sorted)
	TotalSize int64    // Total size in bytes
}

// DirectoryDiscoveryOptions controls file discovery behavior
type DirectoryDiscoveryOptions struct {
	Pattern        string // Glob pattern relative to the root, e.g. "**/*.csv.gz"
	ExcludePattern string // Base-name pattern to skip
	MaxFiles       int    // Maximum files to include (0 = unlimited)
}

// DiscoverFiles finds the files under dirPath matching the pattern.
// Files are returned in lexical order so loads are reproducible.
func DiscoverFiles(dirPath string, options DirectoryDiscoveryOptions) (*DirectoryInfo, error) {
	if options.Pattern == "" {
		return nil, fmt.Errorf("file pattern is required (e.g., *.json.gz, **/*.csv)")
	}
	if !doublestar.ValidatePattern(options.Pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", options.Pattern)
	}

	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	matches, err := doublestar.Glob(os.DirFS(absPath), options.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern matching failed: %w", err)
	}
	sort.Strings(matches)

	info := &DirectoryInfo{RootPath: absPath}
	for _, rel := range matches {
		if options.ExcludePattern != "" {
			if excluded, _ := doublestar.Match(options.ExcludePattern, filepath.Base(rel)); excluded {
				continue
			}
		}
		full := filepath.Join(absPath, filepath.FromSlash(rel))
		st, err := os.Stat(full)
		if err != nil || st.IsDir() {
			continue
		}
		info.Files = append(info.Files, full)
		info.TotalSize += st.Size()
		if options.MaxFiles > 0 && len(info.Files) >= options.MaxFiles {
			break
		}
	}
	return info, nil
}

type fileResult struct {
	ds  *Dataset
	err error
}

// LoadDirectory loads every file matching options.FilePattern under dirPath
// with at most workers files in flight. The header is the union of the file
// headers in order of first appearance; rows keep file order. Files that
// fail to load are skipped with a warning. With options.IncludeSource each
// row carries its file's relative path in SourceColumn.
func LoadDirectory(ctx context.Context, dirPath string, options FileOptions, workers int, logger interfaces.Logger) (*Dataset, error) {
	info, err := DiscoverFiles(dirPath, DirectoryDiscoveryOptions{
		Pattern:        options.FilePattern,
		ExcludePattern: options.ExcludePattern,
		MaxFiles:       options.MaxFiles,
	})
	if err != nil {
		return nil, err
	}
	if len(info.Files) == 0 {
		return nil, fmt.Errorf("no files matching %q in %s", options.FilePattern, dirPath)
	}
	logf(logger, "info", "[DISCOVER] %s: %d files, %d bytes", info.RootPath, len(info.Files), info.TotalSize)

	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		logf(logger, "error", "[LOAD_PANIC] %v", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]fileResult, len(info.Files))
	var wg sync.WaitGroup
	for i, path := range info.Files {
		i, path := i, path
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		// A panicking task never stores its result, so it is reported as missing
		results[i].err = fmt.Errorf("load of %s did not complete", path)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			ds, err := Load(ctx, path, options, 1, logger)
			results[i] = fileResult{ds: ds, err: err}
		})
		if submitErr != nil {
			wg.Done()
			results[i] = fileResult{err: fmt.Errorf("failed to schedule %s: %w", path, submitErr)}
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return mergeDirectory(info, results, options, logger)
}

func mergeDirectory(info *DirectoryInfo, results []fileResult, options FileOptions, logger interfaces.Logger) (*Dataset, error) {
	merged := &Dataset{Path: info.RootPath, Type: FileTypeUnknown}
	seen := make(map[string]bool)

	for i, res := range results {
		path := info.Files[i]
		if res.err != nil {
			merged.Warnings = append(merged.Warnings, fmt.Sprintf("skipped %s: %v", path, res.err))
			logf(logger, "warn", "[LOAD_SKIP] %s: %v", path, res.err)
			continue
		}
		merged.Files++
		if merged.Type == FileTypeUnknown {
			merged.Type = res.ds.Type
		}
		merged.Warnings = append(merged.Warnings, res.ds.Warnings...)

		for _, col := range res.ds.Header {
			if !seen[col] {
				seen[col] = true
				merged.Header = append(merged.Header, col)
			}
		}

		rel, err := filepath.Rel(info.RootPath, path)
		if err != nil {
			rel = path
		}
		for _, row := range res.ds.Rows {
			if options.IncludeSource {
				row[SourceColumn] = filepath.ToSlash(rel)
			}
			merged.Rows = append(merged.Rows, row)
		}
	}

	if merged.Files == 0 {
		return nil, fmt.Errorf("no files in %s could be loaded", info.RootPath)
	}
	if options.IncludeSource {
		merged.Header = append(merged.Header, SourceColumn)
	}
	return merged, nil
}
