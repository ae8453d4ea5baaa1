package settings

// Settings holds application settings that can be overridden by the user.
type Settings struct {
	// Grid geometry used by the viewport window calculator
	PageSize        int     `yaml:"page_size" json:"page_size" mapstructure:"page_size"`
	RowHeight       float64 `yaml:"row_height" json:"row_height" mapstructure:"row_height"`
	ContainerHeight float64 `yaml:"container_height" json:"container_height" mapstructure:"container_height"`
	ViewportBuffer  int     `yaml:"viewport_buffer" json:"viewport_buffer" mapstructure:"viewport_buffer"`
	// Remove omitempty so that false is serialized (we need to persist explicit overrides)
	EnableQueryCache bool `yaml:"enable_query_cache" json:"enable_query_cache" mapstructure:"enable_query_cache"`
	// Cache size limit in MB for derived states and stage results
	CacheSizeLimitMB int `yaml:"cache_size_limit_mb" json:"cache_size_limit_mb" mapstructure:"cache_size_limit_mb"`
	// DEBUG, INFO, WARN or ERROR
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	// text or json
	LogFormat string `yaml:"log_format" json:"log_format" mapstructure:"log_format"`
	// Maximum number of files when loading a directory
	MaxDirectoryFiles int `yaml:"max_directory_files" json:"max_directory_files" mapstructure:"max_directory_files"`
	// Size of the worker pool used to parse directory files
	LoadWorkers int `yaml:"load_workers" json:"load_workers" mapstructure:"load_workers"`
}

// defaultSettings defines the built-in defaults.
var defaultSettings = Settings{
	PageSize:          50,
	RowHeight:         44,
	ContainerHeight:   600,
	ViewportBuffer:    5,
	EnableQueryCache:  true,
	CacheSizeLimitMB:  100,
	LogLevel:          "INFO",
	LogFormat:         "text",
	MaxDirectoryFiles: 500,
	LoadWorkers:       4,
}

// Defaults returns a copy of the built-in defaults
func Defaults() Settings {
	return defaultSettings
}
