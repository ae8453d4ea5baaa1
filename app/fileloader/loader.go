package fileloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gridquery/app/interfaces"
	"gridquery/app/metrics"
)

// IsDirectory checks if the path is a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Load reads a file into a dataset. Directories are loaded with
// LoadDirectory using a pool of workers.
func Load(ctx context.Context, path string, options FileOptions, workers int, logger interfaces.Logger) (*Dataset, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	if IsDirectory(path) {
		return LoadDirectory(ctx, path, options, workers, logger)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileType, compression := DetectFileTypeAndCompression(path)
	if fileType == FileTypeUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}

	result, err := DecompressFile(path, compression)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ds, err := Parse(result.Data, fileType, csvDelimiter(path), options)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	ds.Path = path
	ds.Compression = compression
	if result.Warning != "" {
		ds.Warnings = append(ds.Warnings, result.Warning)
	}
	for _, w := range ds.Warnings {
		logf(logger, "warn", "[LOAD_WARNING] %s: %s", path, w)
	}
	logf(logger, "info", "[LOAD] %s: %s (%s) %d rows, %d columns",
		path, fileType, compression, len(ds.Rows), len(ds.Header))
	return ds, nil
}

// Parse parses uncompressed data of a known type
func Parse(data []byte, fileType FileType, delimiter rune, options FileOptions) (*Dataset, error) {
	ds := &Dataset{Type: fileType, Files: 1}
	var err error

	switch fileType {
	case FileTypeCSV:
		var warning string
		ds.Header, ds.Rows, warning, err = ParseCSV(data, delimiter, options)
		if warning != "" {
			ds.Warnings = append(ds.Warnings, warning)
		}
	case FileTypeXLSX:
		ds.Header, ds.Rows, err = ParseXLSX(data, options)
	case FileTypeJSON:
		ds.Header, ds.Rows, err = ParseJSON(data, options)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	metrics.RowsLoaded.WithLabelValues(fileType.String()).Add(float64(len(ds.Rows)))
	return ds, nil
}

func logf(logger interfaces.Logger, level, format string, args ...any) {
	if logger != nil {
		logger.Log(level, fmt.Sprintf(format, args...))
	}
}
