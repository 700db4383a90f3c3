package testutil

import (
	"path/filepath"
	"testing"

	"courtbook/internal/storage"
)

// NewTestStore creates a temporary SQLite store with migrations applied.
func NewTestStore(t *testing.T) *storage.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
