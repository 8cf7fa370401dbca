package ledgertest

import (
	"os"
	"testing"

	"Warpgate/internal/ledger"
	"Warpgate/internal/storage"
)

// New creates a ledger over a temporary pebble store removed at test end.
func New(t testing.TB) *ledger.Ledger {
	t.Helper()

	dir, err := os.MkdirTemp("", "warpgate_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return ledger.New(db)
}

// Update runs fn in a writable transaction and fails the test on error.
func Update(t testing.TB, l *ledger.Ledger, fn func(tx *ledger.Tx) error) {
	t.Helper()

	if err := l.Update(fn); err != nil {
		t.Fatalf("ledger update failed: %v", err)
	}
}

// View runs fn in a read-only transaction and fails the test on error.
func View(t testing.TB, l *ledger.Ledger, fn func(tx *ledger.Tx) error) {
	t.Helper()

	if err := l.View(fn); err != nil {
		t.Fatalf("ledger view failed: %v", err)
	}
}
