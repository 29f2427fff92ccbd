package core

import (
	"path/filepath"
	"testing"
)

func TestOpenPersistentStoreSelectsDriver(t *testing.T) {
	t.Setenv("CROWDCORE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if store == nil {
		t.Fatalf("nil store")
	}

	t.Setenv("CROWDCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("CROWDCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "state.db"))
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Setenv("CROWDCORE_STORAGE_DRIVER", "bogus")
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
