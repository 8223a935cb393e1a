package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/schema"
)

// Memory is an in-process store with the same semantics as Store.
//
// Writes made inside Update go to an overlay and are merged into the
// committed state only when the callback returns nil. Update calls are
// serialized; View calls run concurrently with each other.
type Memory struct {
	mu        sync.RWMutex
	records   map[ir.Address][]byte
	journal   []ir.Transition
	validator *schema.Validator
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:   make(map[ir.Address][]byte),
		validator: schema.MustNew(),
	}
}

// Update runs fn against an overlay of the committed state and merges the
// overlay on success.
func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{
		base:      m.records,
		writes:    make(map[ir.Address][]byte),
		validator: m.validator,
		lastSeq:   m.lastSeqLocked(),
	}
	if err := fn(tx); err != nil {
		return err
	}

	maps.Copy(m.records, tx.writes)
	m.journal = append(m.journal, tx.appended...)
	return nil
}

// View runs fn against the committed state. Writes are rejected.
func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("view: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memoryTx{base: m.records, validator: m.validator, readOnly: true})
}

// ReadJournal returns journal entries with seq > after, ordered by seq.
// A limit of zero or less returns every remaining entry.
func (m *Memory) ReadJournal(ctx context.Context, after int64, limit int) ([]ir.Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []ir.Transition{}
	for _, tr := range m.journal {
		if tr.Seq <= after {
			continue
		}
		out = append(out, tr)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
func (m *Memory) LastSeq(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeqLocked(), nil
}

func (m *Memory) lastSeqLocked() int64 {
	if len(m.journal) == 0 {
		return 0
	}
	return m.journal[len(m.journal)-1].Seq
}

// Snapshot returns a copy of every stored record keyed by address.
func (m *Memory) Snapshot(ctx context.Context) (map[ir.Address][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[ir.Address][]byte, len(m.records))
	for addr, data := range m.records {
		out[addr] = append([]byte(nil), data...)
	}
	return out, nil
}

// memoryTx reads through its overlay to the committed base.
type memoryTx struct {
	base      map[ir.Address][]byte
	writes    map[ir.Address][]byte
	appended  []ir.Transition
	lastSeq   int64
	validator *schema.Validator
	readOnly  bool
}

func (t *memoryTx) lookup(addr ir.Address) ([]byte, bool) {
	if data, ok := t.writes[addr]; ok {
		return data, true
	}
	data, ok := t.base[addr]
	return data, ok
}

func (t *memoryTx) Create(ctx context.Context, addr ir.Address, data []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, err := t.check(data); err != nil {
		return fmt.Errorf("create %s: %w", addr.Short(), err)
	}
	if _, ok := t.lookup(addr); ok {
		return ErrAddressOccupied
	}
	t.writes[addr] = append([]byte(nil), data...)
	return nil
}

func (t *memoryTx) Load(ctx context.Context, addr ir.Address) ([]byte, error) {
	data, ok := t.lookup(addr)
	if !ok {
		return nil, ErrNotFound
	}
	if _, err := t.check(data); err != nil {
		return nil, fmt.Errorf("load %s: %w", addr.Short(), err)
	}
	return append([]byte(nil), data...), nil
}

func (t *memoryTx) Save(ctx context.Context, addr ir.Address, data []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	kind, err := t.check(data)
	if err != nil {
		return fmt.Errorf("save %s: %w", addr.Short(), err)
	}
	stored, ok := t.lookup(addr)
	if !ok {
		return ErrNotFound
	}
	storedKind, err := ir.PeekKind(stored)
	if err != nil {
		return fmt.Errorf("save %s: %w", addr.Short(), err)
	}
	if storedKind != kind {
		return fmt.Errorf("save %s: %w: stored %s, got %s", addr.Short(), ErrKindMismatch, storedKind, kind)
	}
	t.writes[addr] = append([]byte(nil), data...)
	return nil
}

func (t *memoryTx) Append(ctx context.Context, tr ir.Transition) error {
	if t.readOnly {
		return errReadOnly
	}
	if tr.Seq <= t.lastSeq {
		return fmt.Errorf("append transition %d: seq not after %d", tr.Seq, t.lastSeq)
	}
	if tr.Args == nil {
		tr.Args = ir.IRObject{}
	}
	t.appended = append(t.appended, tr)
	t.lastSeq = tr.Seq
	return nil
}

func (t *memoryTx) check(data []byte) (ir.Kind, error) {
	if err := t.validator.Validate(data); err != nil {
		return "", err
	}
	return ir.PeekKind(data)
}
