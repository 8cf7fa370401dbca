package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"Warpgate/internal/logger"
	"Warpgate/internal/storage"
)

var (
	// ErrNestedUpdate is returned when Update is called while another Update runs.
	ErrNestedUpdate = errors.New("nested ledger update")

	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("ledger transaction is read-only")
)

// prefixSeq holds named sequence counters.
var prefixSeq = []byte("seq:")

// Ledger serializes atomic units of work over a Storage.
// It is not safe for concurrent use; callers serialize operations.
type Ledger struct {
	db     *storage.Storage // db is the committed state
	active bool             // active is set while an Update is running
}

// New creates a ledger over the given storage.
func New(db *storage.Storage) *Ledger {
	return &Ledger{db: db}
}

// Storage returns the underlying storage.
func (l *Ledger) Storage() *storage.Storage {
	return l.db
}

// Update runs fn inside a writable transaction.
// All writes are committed atomically if fn returns nil, otherwise none are.
func (l *Ledger) Update(fn func(tx *Tx) error) error {
	if l.active {
		return ErrNestedUpdate
	}

	l.active = true
	defer func() { l.active = false }()

	tx := newTx(l.db, false)

	if err := fn(tx); err != nil {
		return err
	}

	if err := l.db.Apply(tx.ops()); err != nil {
		return fmt.Errorf("commit ledger batch:\n%w", err)
	}

	logger.Debug("ledger unit committed", "writes", tx.Pending(), "hooks", len(tx.hooks))

	for _, hook := range tx.hooks {
		hook()
	}

	return nil
}

// View runs fn against committed state without write access.
func (l *Ledger) View(fn func(tx *Tx) error) error {
	return fn(newTx(l.db, true))
}

// IteratePrefix visits committed entries under prefix in key order.
func (l *Ledger) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	return l.db.IteratePrefix(prefix, fn)
}

// Tx is a write-set overlay with read-your-writes semantics.
type Tx struct {
	db       *storage.Storage  // db is the committed state
	writes   map[string][]byte // writes holds pending values, nil marks a delete
	order    []string          // order keeps first-write order for deterministic commits
	readOnly bool              // readOnly rejects writes
	hooks    []func()          // hooks run in order once the unit has committed
}

// newTx creates an empty transaction.
func newTx(db *storage.Storage, readOnly bool) *Tx {
	return &Tx{
		db:       db,
		writes:   make(map[string][]byte),
		readOnly: readOnly,
	}
}

// Get returns the value for key, or nil if absent.
func (tx *Tx) Get(key []byte) ([]byte, error) {
	if v, ok := tx.writes[string(key)]; ok {
		if v == nil {
			return nil, nil
		}

		out := make([]byte, len(v))
		copy(out, v)

		return out, nil
	}

	return tx.db.Get(key)
}

// Has reports whether key holds a value.
func (tx *Tx) Has(key []byte) (bool, error) {
	v, err := tx.Get(key)
	if err != nil {
		return false, err
	}

	return v != nil, nil
}

// Set buffers a write of value under key.
func (tx *Tx) Set(key, value []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	tx.record(key, stored)

	return nil
}

// Delete buffers a removal of key.
func (tx *Tx) Delete(key []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}

	tx.record(key, nil)

	return nil
}

// NextID increments the named counter and returns the new value (first is 1).
func (tx *Tx) NextID(name string) (uint64, error) {
	key := append(append([]byte{}, prefixSeq...), name...)

	raw, err := tx.Get(key)
	if err != nil {
		return 0, fmt.Errorf("read sequence %s:\n%w", name, err)
	}

	var current uint64
	if len(raw) == 8 {
		current = binary.BigEndian.Uint64(raw)
	}

	next := current + 1

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)

	if err := tx.Set(key, buf[:]); err != nil {
		return 0, err
	}

	return next, nil
}

// OnCommit queues fn to run after the unit commits.
// It never runs for a discarded unit or inside View.
func (tx *Tx) OnCommit(fn func()) {
	if tx.readOnly {
		return
	}

	tx.hooks = append(tx.hooks, fn)
}

// Pending returns the number of buffered writes.
func (tx *Tx) Pending() int {
	return len(tx.order)
}

// record stores a pending write keeping first-write order.
func (tx *Tx) record(key, value []byte) {
	k := string(key)
	if _, seen := tx.writes[k]; !seen {
		tx.order = append(tx.order, k)
	}

	tx.writes[k] = value
}

// ops converts pending writes into storage ops.
func (tx *Tx) ops() []storage.Op {
	ops := make([]storage.Op, 0, len(tx.order))

	for _, k := range tx.order {
		ops = append(ops, storage.Op{Key: []byte(k), Value: tx.writes[k]})
	}

	return ops
}
