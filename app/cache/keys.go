package cache

import (
	"strings"
)

// StatePrefix marks keys of complete derived states; every other key is a
// stage key of the form "data:<id>|stage:key|stage:key..."
const StatePrefix = "state:"

// IsStateKey reports whether key addresses a full derived state
func IsStateKey(key string) bool {
	return strings.HasPrefix(key, StatePrefix)
}

// ExtractStageCount returns the number of stage segments in a stage key
func ExtractStageCount(key string) int {
	if IsStateKey(key) {
		return 0
	}
	return strings.Count(key, "|")
}

// IsCacheKeyPrefix checks if prefixKey is a prefix of fullKey at a segment boundary
func IsCacheKeyPrefix(prefixKey, fullKey string) bool {
	if !strings.HasPrefix(fullKey, prefixKey) {
		return false
	}
	remainder := strings.TrimPrefix(fullKey, prefixKey)
	return remainder == "" || strings.HasPrefix(remainder, "|")
}

// ExtractStageNameFromKey returns the name of the last stage in a stage key
func ExtractStageNameFromKey(key string) string {
	if IsStateKey(key) {
		return "state"
	}
	parts := strings.Split(key, "|")
	if len(parts) < 2 {
		return ""
	}
	last := parts[len(parts)-1]
	name, _, ok := strings.Cut(last, ":")
	if !ok {
		return ""
	}
	return name
}

// datasetMarker returns the substring identifying a dataset in any key.
// Both key forms carry "data:<id>|".
func datasetMarker(datasetID string) string {
	return "data:" + datasetID + "|"
}
