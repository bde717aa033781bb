package ledger

import (
	"testing"

	"Atelier/internal/storage"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	db, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// TestTxCommit verifies staged writes and emitted events are released together.
func TestTxCommit(t *testing.T) {
	db := newTestStorage(t)

	tx := Begin(db)
	_ = tx.Set([]byte("k"), []byte("v"))
	tx.Emit(TransferEvent(1, Address{}, Address{1}))

	if got, _ := tx.Get([]byte("k")); string(got) != "v" {
		t.Errorf("tx does not see its own write: %q", got)
	}
	if got, _ := db.Get([]byte("k")); got != nil {
		t.Errorf("uncommitted write visible: %q", got)
	}
	if len(tx.Events()) != 1 {
		t.Errorf("expected 1 event, got %d", len(tx.Events()))
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if got, _ := db.Get([]byte("k")); string(got) != "v" {
		t.Errorf("committed write missing: %q", got)
	}
}

func TestTxDiscard(t *testing.T) {
	db := newTestStorage(t)

	tx := Begin(db)
	_ = tx.Set([]byte("k"), []byte("v"))
	tx.Emit(TransferEvent(1, Address{}, Address{1}))
	tx.Discard()

	if got, _ := db.Get([]byte("k")); got != nil {
		t.Errorf("discarded write visible: %q", got)
	}
	if len(tx.Events()) != 0 {
		t.Error("discard kept events")
	}
}
