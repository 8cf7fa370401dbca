package ledger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"Warpgate/internal/storage"
)

// newTestLedger creates a ledger over a temporary pebble store.
func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	dir, err := os.MkdirTemp("", "ledger_test_*")
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

	return New(db)
}

// mustUpdate runs fn in a unit and fails the test if it does not commit.
func mustUpdate(t *testing.T, l *Ledger, fn func(tx *Tx) error) {
	t.Helper()

	if err := l.Update(fn); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestUpdateCommits(t *testing.T) {
	l := newTestLedger(t)

	err := l.Update(func(tx *Tx) error {
		return tx.Set([]byte("k"), []byte("v"))
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := l.Storage().Get([]byte("k"))
	if !bytes.Equal(got, []byte("v")) {
		t.Errorf("committed value = %q, want v", got)
	}
}

// TestUpdateRollsBackOnError verifies no write survives a failed unit.
func TestUpdateRollsBackOnError(t *testing.T) {
	l := newTestLedger(t)

	mustUpdate(t, l, func(tx *Tx) error {
		return tx.Set([]byte("keep"), []byte("1"))
	})

	boom := errors.New("boom")
	err := l.Update(func(tx *Tx) error {
		_ = tx.Set([]byte("a"), []byte("1"))
		_ = tx.Delete([]byte("keep"))
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if got, _ := l.Storage().Get([]byte("a")); got != nil {
		t.Error("write from failed update should not be committed")
	}

	if got, _ := l.Storage().Get([]byte("keep")); got == nil {
		t.Error("delete from failed update should not be committed")
	}
}

func TestOnCommitRunsAfterCommit(t *testing.T) {
	l := newTestLedger(t)

	var order []string
	err := l.Update(func(tx *Tx) error {
		tx.OnCommit(func() {
			got, _ := l.Storage().Get([]byte("a"))
			order = append(order, "first:"+string(got))
		})
		tx.OnCommit(func() { order = append(order, "second") })
		return tx.Set([]byte("a"), []byte("1"))
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if len(order) != 2 || order[0] != "first:1" || order[1] != "second" {
		t.Errorf("hooks ran as %v, want [first:1 second]", order)
	}
}

func TestOnCommitSkippedOnFailure(t *testing.T) {
	l := newTestLedger(t)

	ran := false
	boom := errors.New("boom")
	err := l.Update(func(tx *Tx) error {
		tx.OnCommit(func() { ran = true })
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if ran {
		t.Error("hook must not run for a failed unit")
	}

	if err := l.View(func(tx *Tx) error {
		tx.OnCommit(func() { ran = true })
		return nil
	}); err != nil {
		t.Fatalf("View failed: %v", err)
	}

	if ran {
		t.Error("hook must not run inside View")
	}
}

func TestReadYourWrites(t *testing.T) {
	l := newTestLedger(t)

	mustUpdate(t, l, func(tx *Tx) error {
		_ = tx.Set([]byte("x"), []byte("1"))

		got, _ := tx.Get([]byte("x"))
		if !bytes.Equal(got, []byte("1")) {
			t.Errorf("pending write not visible: %q", got)
		}

		_ = tx.Delete([]byte("x"))

		if ok, _ := tx.Has([]byte("x")); ok {
			t.Error("pending delete not visible")
		}

		return nil
	})
}

func TestNestedUpdateRejected(t *testing.T) {
	l := newTestLedger(t)

	var inner error
	mustUpdate(t, l, func(tx *Tx) error {
		inner = l.Update(func(tx *Tx) error { return nil })
		return nil
	})

	if !errors.Is(inner, ErrNestedUpdate) {
		t.Errorf("expected ErrNestedUpdate, got %v", inner)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	l := newTestLedger(t)

	err := l.View(func(tx *Tx) error {
		return tx.Set([]byte("k"), []byte("v"))
	})

	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestNextIDSequence(t *testing.T) {
	l := newTestLedger(t)

	var ids []uint64
	for i := 0; i < 3; i++ {
		mustUpdate(t, l, func(tx *Tx) error {
			id, err := tx.NextID("listing")
			ids = append(ids, id)
			return err
		})
	}

	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("unexpected ids: %v", ids)
	}

	// A failed unit does not consume an id
	if err := l.Update(func(tx *Tx) error {
		_, _ = tx.NextID("listing")
		return errors.New("abort")
	}); err == nil {
		t.Fatal("expected aborted unit to fail")
	}

	mustUpdate(t, l, func(tx *Tx) error {
		id, _ := tx.NextID("listing")
		if id != 4 {
			t.Errorf("expected 4 after aborted unit, got %d", id)
		}
		return nil
	})
}

func TestKeyHelpers(t *testing.T) {
	key := Key("l:", U64(5), []byte("x"))

	if len(key) != 2+8+1 {
		t.Fatalf("unexpected key length %d", len(key))
	}

	if ReadU64(key[2:10]) != 5 {
		t.Error("U64 round trip failed")
	}

	if ReadU64([]byte{1}) != 0 {
		t.Error("short input should decode to 0")
	}
}
