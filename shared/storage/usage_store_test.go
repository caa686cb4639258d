package storage

import (
	"testing"
)

func TestUsageStoreRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewUsageStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	usage := map[string]DayUsage{
		"api-key-1": {Date: "2026-08-28", Requests: 42},
		"oauth":     {Date: "2026-08-28", Requests: 7},
	}
	if err := store.Save(usage); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reopened, err := NewUsageStore(dir)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	loaded, err := reopened.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded["api-key-1"].Requests != 42 || loaded["oauth"].Date != "2026-08-28" {
		t.Errorf("unexpected loaded usage: %+v", loaded)
	}
}

func TestUsageStoreMissingFile(t *testing.T) {
	store, err := NewUsageStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty usage, got %+v", loaded)
	}
}
