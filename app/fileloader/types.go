package fileloader

import (
	"errors"

	"gridquery/app/interfaces"
)

// Package fileloader reads data files (CSV, XLSX, JSON, possibly compressed)
// and whole directories of them into rows for the query engine.

// ErrUnsupportedFormat is returned for files whose format cannot be detected
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FileType represents the type of data file being processed
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCSV
	FileTypeXLSX
	FileTypeJSON
)

// String returns the string representation of FileType
func (ft FileType) String() string {
	switch ft {
	case FileTypeCSV:
		return "CSV"
	case FileTypeXLSX:
		return "XLSX"
	case FileTypeJSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

// SourceColumn is the column added to directory loads when
// FileOptions.IncludeSource is set
const SourceColumn = "__source_file__"

// FileOptions is an alias to the shared type
type FileOptions = interfaces.FileOptions

// DefaultFileOptions returns the default parsing options
func DefaultFileOptions() FileOptions {
	return interfaces.DefaultFileOptions()
}

// Dataset is the result of loading a file or directory
type Dataset struct {
	Path        string
	Type        FileType
	Compression CompressionType
	Header      []string
	Rows        []interfaces.Row
	Files       int      // Files read; 1 for a single file
	Warnings    []string // Partial decompression, skipped directory files
}
