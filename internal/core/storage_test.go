package core

import (
	"path/filepath"
	"testing"

	"pedigreecore/internal/infra/persistence/memory"
	"pedigreecore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("PEDIGREECORE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	t.Setenv("PEDIGREECORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("PEDIGREECORE_SQLITE_PATH", path)
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sq, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	defer func() { _ = sq.DB().Close() }()
	if sq.Path() != path {
		t.Fatalf("expected configured path %q, got %q", path, sq.Path())
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("PEDIGREECORE_STORAGE_DRIVER", "tape")
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
