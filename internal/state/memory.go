package state

import (
	"context"
	"sync"

	"github.com/roach88/continual-learning/internal/ir"
)

// MemoryStore is an in-process Store used by tests and the scenario harness.
// Records pass through Encode and Decode so it behaves like the file store.
type MemoryStore struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith returns a store preloaded with st.
func NewMemoryStoreWith(st ir.EngineState) *MemoryStore {
	m := &MemoryStore{}
	m.data, _ = Encode(st)
	return m
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) ir.EngineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return ir.NewEngineState()
	}
	st, _ := Decode(m.data)
	return st
}

// Save implements Store. It fails with the error set by FailSaves.
func (m *MemoryStore) Save(ctx context.Context, st ir.EngineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(st)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

// FailSaves makes every later Save return err. Pass nil to recover.
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves returns the number of successful saves.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Raw returns the encoded record, or nil if nothing was saved.
func (m *MemoryStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}
