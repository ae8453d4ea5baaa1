package fileloader

import (
	"strings"
)

var compressionExtensions = []struct {
	ext string
	ct  CompressionType
}{
	{".gz", CompressionGzip},
	{".bz2", CompressionBzip2},
	{".xz", CompressionXZ},
}

// DetectFileTypeAndCompression determines the inner file type and the
// compression of a path. A compression extension (data.csv.gz) is stripped
// before the inner type is read from the remaining extension. Without one,
// the magic bytes are checked; a compressed file with no recognizable inner
// extension is read as CSV.
func DetectFileTypeAndCompression(filePath string) (FileType, CompressionType) {
	if filePath == "" {
		return FileTypeUnknown, CompressionNone
	}

	lower := strings.ToLower(filePath)
	for _, c := range compressionExtensions {
		if strings.HasSuffix(lower, c.ext) {
			return detectFileTypeFromPath(strings.TrimSuffix(lower, c.ext)), c.ct
		}
	}

	fileType := detectFileTypeFromPath(lower)
	if ct, err := DetectCompressionByMagic(filePath); err == nil && ct != CompressionNone {
		if fileType == FileTypeUnknown {
			fileType = FileTypeCSV
		}
		return fileType, ct
	}
	return fileType, CompressionNone
}

// detectFileTypeFromPath determines file type from a path without compression extension
func detectFileTypeFromPath(path string) FileType {
	switch {
	case strings.HasSuffix(path, ".csv"), strings.HasSuffix(path, ".tsv"), strings.HasSuffix(path, ".txt"):
		return FileTypeCSV
	case strings.HasSuffix(path, ".xlsx"):
		return FileTypeXLSX
	case strings.HasSuffix(path, ".json"), strings.HasSuffix(path, ".jsonl"), strings.HasSuffix(path, ".ndjson"):
		return FileTypeJSON
	}
	return FileTypeUnknown
}

// csvDelimiter picks the field separator for a CSV-family path
func csvDelimiter(filePath string) rune {
	lower := strings.ToLower(filePath)
	for _, c := range compressionExtensions {
		lower = strings.TrimSuffix(lower, c.ext)
	}
	if strings.HasSuffix(lower, ".tsv") {
		return '\t'
	}
	return ','
}

// GetUncompressedExtension returns the file extension without compression suffix
// e.g., "data.csv.gz" -> ".csv"
func GetUncompressedExtension(filePath string) string {
	lower := strings.ToLower(filePath)
	for _, c := range compressionExtensions {
		if strings.HasSuffix(lower, c.ext) {
			lower = strings.TrimSuffix(lower, c.ext)
			break
		}
	}
	lastDot := strings.LastIndex(lower, ".")
	if lastDot == -1 {
		return ""
	}
	return lower[lastDot:]
}
