package state

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestDedupMarkAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	cache := NewDedupCache(path, nil)

	if cache.IsProcessed("r-1") {
		t.Fatal("fresh cache should not contain r-1")
	}
	if err := cache.MarkProcessed("r-1"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if !cache.IsProcessed("r-1") {
		t.Fatal("r-1 should be marked")
	}

	// Marking twice stays a single entry.
	if err := cache.MarkProcessed("r-1"); err != nil {
		t.Fatalf("MarkProcessed again: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("len = %d, want 1", cache.Len())
	}

	// Survives reload from disk.
	reloaded := NewDedupCache(path, nil)
	if !reloaded.IsProcessed("r-1") {
		t.Fatal("r-1 lost across reload")
	}
}

func TestDedupCapacityEvictsOldestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	cache := NewDedupCache(path, nil)

	for i := 0; i <= DedupCapacity; i++ {
		if err := cache.MarkProcessed(fmt.Sprintf("id-%04d", i)); err != nil {
			t.Fatalf("MarkProcessed(%d): %v", i, err)
		}
	}

	if cache.Len() != DedupCapacity {
		t.Fatalf("len = %d, want %d", cache.Len(), DedupCapacity)
	}
	if cache.IsProcessed("id-0000") {
		t.Fatal("very first id should have been evicted")
	}
	if !cache.IsProcessed("id-0001") {
		t.Fatal("second id should survive")
	}
	if !cache.IsProcessed(fmt.Sprintf("id-%04d", DedupCapacity)) {
		t.Fatal("latest id should be present")
	}
}

func TestDedupEmptyIDRejected(t *testing.T) {
	cache := NewDedupCache(filepath.Join(t.TempDir(), "processed.json"), nil)
	if err := cache.MarkProcessed("  "); err == nil {
		t.Fatal("expected error for blank id")
	}
	if cache.IsProcessed("") {
		t.Fatal("blank id must never report processed")
	}
}
