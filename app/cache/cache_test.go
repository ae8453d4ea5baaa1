package cache

import (
	"testing"
)

func TestCache_StoreAndGet(t *testing.T) {
	c := NewCache(1024)

	if ok := c.Store("data:a|filter:x", "value", 3, 100); !ok {
		t.Fatalf("Store returned false")
	}

	entry, ok := c.Get("data:a|filter:x")
	if !ok {
		t.Fatalf("expected hit")
	}
	if entry.Value.(string) != "value" || entry.RowCount != 3 || !entry.IsComplete {
		t.Errorf("unexpected entry: %+v", entry)
	}

	if _, ok := c.Get("data:a|filter:y"); ok {
		t.Errorf("expected miss for unknown key")
	}

	stats := c.GetCacheStats()
	if stats.StageCacheHits != 1 || stats.CacheMisses != 1 {
		t.Errorf("stats = %+v, want 1 stage hit and 1 miss", stats)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(300)

	c.Store("k1", 1, 0, 100)
	c.Store("k2", 2, 0, 100)
	c.Store("k3", 3, 0, 100)

	// k1 becomes most recently used, so k2 is the eviction candidate
	c.Get("k1")
	c.Store("k4", 4, 0, 100)

	if _, ok := c.Get("k2"); ok {
		t.Errorf("k2 should have been evicted")
	}
	for _, key := range []string{"k1", "k3", "k4"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}
	if c.Size() != 300 {
		t.Errorf("Size() = %d, want 300", c.Size())
	}
	if got := c.GetCacheStats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestCache_RejectsOversizedEntry(t *testing.T) {
	c := NewCache(100)
	if c.Store("big", "x", 0, 101) {
		t.Errorf("oversized entry should be rejected")
	}
	if c.EntryCount() != 0 {
		t.Errorf("EntryCount() = %d, want 0", c.EntryCount())
	}
}

func TestCache_ReplaceKeepsSizeAccurate(t *testing.T) {
	c := NewCache(1000)
	c.Store("k", 1, 0, 400)
	c.Store("k", 2, 0, 100)
	if c.Size() != 100 {
		t.Errorf("Size() = %d, want 100", c.Size())
	}
	entry, _ := c.Get("k")
	if entry.Value.(int) != 2 {
		t.Errorf("Value = %v, want 2", entry.Value)
	}
}

func TestCache_InvalidateDataset(t *testing.T) {
	c := NewCache(10000)
	c.Store("data:abc|filter:1", 1, 0, 10)
	c.Store("data:abc|filter:1|sort:2", 2, 0, 10)
	c.Store("state:data:abc|ff00", 3, 0, 10)
	c.Store("data:abcd|filter:1", 4, 0, 10)

	removed := c.InvalidateDataset("abc")
	if removed != 3 {
		t.Errorf("InvalidateDataset removed %d, want 3", removed)
	}
	if _, ok := c.Get("data:abcd|filter:1"); !ok {
		t.Errorf("other dataset entry should survive")
	}
}

func TestCache_UpdateMaxSizeEvicts(t *testing.T) {
	c := NewCache(1000)
	c.Store("a", 1, 0, 400)
	c.Store("b", 2, 0, 400)
	c.UpdateMaxSize(500)

	if c.EntryCount() != 1 {
		t.Fatalf("EntryCount() = %d, want 1", c.EntryCount())
	}
	if _, ok := c.Get("b"); !ok {
		t.Errorf("most recent entry should survive the resize")
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		key       string
		stages    int
		stageName string
	}{
		{"data:x|filter:abc", 1, "filter"},
		{"data:x|filter:abc|sort:def", 2, "sort"},
		{"state:data:x|1234", 0, "state"},
	}
	for _, tt := range tests {
		if got := ExtractStageCount(tt.key); got != tt.stages {
			t.Errorf("ExtractStageCount(%q) = %d, want %d", tt.key, got, tt.stages)
		}
		if got := ExtractStageNameFromKey(tt.key); got != tt.stageName {
			t.Errorf("ExtractStageNameFromKey(%q) = %q, want %q", tt.key, got, tt.stageName)
		}
	}

	if !IsCacheKeyPrefix("data:x|filter:a", "data:x|filter:a|sort:b") {
		t.Errorf("expected segment prefix")
	}
	if IsCacheKeyPrefix("data:x|filter:a", "data:x|filter:ab") {
		t.Errorf("prefix must end at a segment boundary")
	}
}

func TestCache_LongestPrefix(t *testing.T) {
	c := NewCache(1024)
	c.Store("data:x|filter:a", "f", 3, 10)
	c.Store("data:x|filter:a|sort:b", "fs", 3, 10)
	c.Store("data:x|filter:ab", "other", 1, 10)
	c.Store("data:y|filter:a|sort:b|page:1", "y", 1, 10)
	c.Store("state:data:x|1234", "state", 1, 10)

	key, entry, ok := c.LongestPrefix("data:x|filter:a|sort:b|group:c")
	if !ok || key != "data:x|filter:a|sort:b" || entry.Value != "fs" {
		t.Fatalf("LongestPrefix = %q, %v, %v", key, entry, ok)
	}
	if ExtractStageCount(key) != 2 {
		t.Errorf("ExtractStageCount(%q) = %d, want 2", key, ExtractStageCount(key))
	}

	if key, _, ok := c.LongestPrefix("data:x|filter:a"); !ok || key != "data:x|filter:a" {
		t.Errorf("exact key = %q, %v", key, ok)
	}
	if _, _, ok := c.LongestPrefix("data:x|sort:b"); ok {
		t.Errorf("no stored key is a prefix of data:x|sort:b")
	}

	stats := c.GetCacheStats()
	if stats.StageCacheHits != 2 || stats.CacheMisses != 1 {
		t.Errorf("stats = %+v, want 2 stage hits and 1 miss", stats)
	}
}
