package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. GRIDQUERY_PAGE_SIZE
const EnvPrefix = "GRIDQUERY_"

// GetEffectiveSettings returns the defaults overlaid with the settings file
// and then with GRIDQUERY_* environment variables. If anything goes wrong
// reading the file it is ignored and the remaining layers still apply.
func GetEffectiveSettings() Settings {
	settings := defaultSettings
	if path, err := SettingsFilePath(); err == nil {
		if s, err := LoadFile(path, settings); err == nil {
			settings = s
		}
	}
	if s, err := LoadEnv(EnvPrefix, settings); err == nil {
		settings = s
	}
	return settings
}

// LoadFile overlays the yaml file at path onto base. A missing file is not an
// error. Only keys present in the file are applied, and values of the wrong
// type or outside their range are skipped.
func LoadFile(path string, base Settings) (Settings, error) {
	settings := base
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, err
	}
	// Unmarshal into a generic map to detect key presence
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return settings, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	applyMap(&settings, m)
	return settings, nil
}

func applyMap(settings *Settings, m map[string]any) {
	if v, ok := m["page_size"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.PageSize = vi
		}
	}
	if v, ok := m["row_height"]; ok {
		if vf, okf := toFloat(v); okf && vf > 0 {
			settings.RowHeight = vf
		}
	}
	if v, ok := m["container_height"]; ok {
		if vf, okf := toFloat(v); okf && vf >= 0 {
			settings.ContainerHeight = vf
		}
	}
	if v, ok := m["viewport_buffer"]; ok {
		if vi, oki := v.(int); oki && vi >= 0 {
			settings.ViewportBuffer = vi
		}
	}
	if v, ok := m["enable_query_cache"]; ok {
		if vb, okb := v.(bool); okb {
			settings.EnableQueryCache = vb
		}
	}
	if v, ok := m["cache_size_limit_mb"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.CacheSizeLimitMB = vi
		}
	}
	if v, ok := m["log_level"]; ok {
		if vs, oks := v.(string); oks {
			settings.LogLevel = strings.ToUpper(vs)
		}
	}
	if v, ok := m["log_format"]; ok {
		if vs, oks := v.(string); oks {
			settings.LogFormat = vs
		}
	}
	if v, ok := m["max_directory_files"]; ok {
		if vi, oki := v.(int); oki && vi >= 10 {
			settings.MaxDirectoryFiles = vi
		}
	}
	if v, ok := m["load_workers"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.LoadWorkers = vi
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// LoadEnv overlays environment variables starting with prefix onto base:
// GRIDQUERY_PAGE_SIZE=25 sets page_size.
func LoadEnv(prefix string, base Settings) (Settings, error) {
	v := viper.New()

	prefixUpper := strings.ToUpper(prefix)
	found := false
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		propKey := strings.ToLower(strings.TrimPrefix(key, prefixUpper))
		propKey = strings.TrimPrefix(propKey, "_")
		if propKey == "" || propKey == "config" {
			continue
		}
		v.Set(propKey, value)
		found = true
	}

	settings := base
	if !found {
		return settings, nil
	}
	if err := v.Unmarshal(&settings); err != nil {
		return base, fmt.Errorf("failed to unmarshal environment settings: %w", err)
	}
	settings.LogLevel = strings.ToUpper(settings.LogLevel)
	keepInRange(&settings, base)
	return settings, nil
}

// keepInRange puts back the base value of every field outside the range
// applyMap accepts
func keepInRange(s *Settings, base Settings) {
	if s.PageSize <= 0 {
		s.PageSize = base.PageSize
	}
	if !(s.RowHeight > 0) {
		s.RowHeight = base.RowHeight
	}
	if !(s.ContainerHeight >= 0) {
		s.ContainerHeight = base.ContainerHeight
	}
	if s.ViewportBuffer < 0 {
		s.ViewportBuffer = base.ViewportBuffer
	}
	if s.CacheSizeLimitMB <= 0 {
		s.CacheSizeLimitMB = base.CacheSizeLimitMB
	}
	if s.MaxDirectoryFiles < 10 {
		s.MaxDirectoryFiles = base.MaxDirectoryFiles
	}
	if s.LoadWorkers <= 0 {
		s.LoadWorkers = base.LoadWorkers
	}
}

// SaveSettings writes settings as yaml to path
func SaveSettings(path string, s Settings) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}

// SettingsFilePath returns GRIDQUERY_CONFIG when set, otherwise gridquery.yml
// next to the executable.
func SettingsFilePath() (string, error) {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), "gridquery.yml"), nil
}
