package interfaces

// Logger is the logging sink shared by the pipeline, cache and loaders.
// Level is one of "debug", "info", "warn" or "error".
type Logger interface {
	Log(level, message string)
}

// ProgressCallback provides real-time feedback during pipeline execution
type ProgressCallback func(stage string, current, total int64, message string)

// Constants for file loading and query processing
const (
	// ProgressUpdateInterval defines how often to report progress
	ProgressUpdateInterval = 1000
)

// Logic combines the children of a composite filter node
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// SortDirection represents sort order
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection maps "desc"/"descending" to SortDesc and everything else to SortAsc
func ParseSortDirection(s string) SortDirection {
	switch s {
	case "desc", "DESC", "descending", "DESCENDING":
		return SortDesc
	default:
		return SortAsc
	}
}

// FilterNode is one node of a filter tree: either a *Leaf or a *Composite.
type FilterNode interface {
	filterNode()
}

// Leaf is a single field predicate.
type Leaf struct {
	Field    string
	Operator string
	Value    any
}

// Composite combines Children with Logic (and by default).
//
// Field, Operator and Value are carried so that descriptors with both a
// predicate and child filters round-trip unchanged. They are never evaluated:
// once a node has children only the children decide the match.
type Composite struct {
	Logic    Logic
	Children []FilterNode
	Field    string
	Operator string
	Value    any
}

func (*Leaf) filterNode()      {}
func (*Composite) filterNode() {}

// FileOptions controls how a data file is parsed into rows
type FileOptions struct {
	JPath          string `json:"jpath,omitempty" yaml:"jpath,omitempty"`                   // JSON path expression selecting the row array
	NoHeaderRow    bool   `json:"noHeaderRow,omitempty" yaml:"no_header_row,omitempty"`     // First CSV/XLSX row is data
	Sheet          string `json:"sheet,omitempty" yaml:"sheet,omitempty"`                   // XLSX sheet name, first sheet when empty
	InferNumbers   bool   `json:"inferNumbers" yaml:"infer_numbers"`                        // Convert numeric cells to float64
	FilePattern    string `json:"filePattern,omitempty" yaml:"file_pattern,omitempty"`      // Glob pattern for directory loading
	IncludeSource  bool   `json:"includeSource,omitempty" yaml:"include_source,omitempty"`  // Add a __source_file__ column for directories
	MaxFiles       int    `json:"maxFiles,omitempty" yaml:"max_files,omitempty"`            // Directory file limit, 0 for unlimited
	ExcludePattern string `json:"excludePattern,omitempty" yaml:"exclude_pattern,omitempty"` // Base-name pattern excluded from directory loads
}

// DefaultFileOptions returns the default parsing options
func DefaultFileOptions() FileOptions {
	return FileOptions{InferNumbers: true}
}

// TabInfo contains metadata about a tab for display
type TabInfo struct {
	ID       string   `json:"id"`
	FileName string   `json:"fileName"`
	FilePath string   `json:"filePath"`
	FileHash string   `json:"fileHash"`
	Headers  []string `json:"headers,omitempty"`
	RowCount int      `json:"rowCount"`
}
