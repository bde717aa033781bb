package ledger

import (
	"Atelier/internal/storage"
)

// Tx is the write set of a single operation. All reads go through the
// underlying indexed batch, so an operation observes its own pending writes.
// Nothing becomes visible, and no event is released, until Commit.
type Tx struct {
	batch  *storage.Batch
	events []Event
}

// Begin opens a transaction over db.
func Begin(db *storage.Storage) *Tx {
	return &Tx{batch: db.NewBatch()}
}

// Get reads key as seen by this transaction.
func (tx *Tx) Get(key []byte) ([]byte, error) {
	return tx.batch.Get(key)
}

// IteratePrefix walks keys under prefix as seen by this transaction.
func (tx *Tx) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	return tx.batch.IteratePrefix(prefix, fn)
}

// Set stages a write.
func (tx *Tx) Set(key, value []byte) error {
	return tx.batch.Set(key, value)
}

// Delete stages a deletion.
func (tx *Tx) Delete(key []byte) error {
	return tx.batch.Delete(key)
}

// Emit appends an event to this transaction's ordered output.
func (tx *Tx) Emit(ev Event) {
	tx.events = append(tx.events, ev)
}

// Events returns the events emitted so far, in emission order.
func (tx *Tx) Events() []Event {
	return tx.events
}

// Commit applies every staged write atomically.
func (tx *Tx) Commit() error {
	return tx.batch.Commit()
}

// Discard drops all staged writes and emitted events.
func (tx *Tx) Discard() {
	tx.batch.Close()
	tx.events = nil
}
