// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docketware/debt-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	cases   map[ledger.CaseID]*ledger.Case
	entries map[ledger.EntryID]*ledger.Entry
	nextSeq int64
}

func NewMemory() *Memory {
	return &Memory{
		cases:   make(map[ledger.CaseID]*ledger.Case),
		entries: make(map[ledger.EntryID]*ledger.Entry),
	}
}

func (m *Memory) CreateCase(_ context.Context, c *ledger.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; ok {
		return fmt.Errorf("case %s already exists", c.ID)
	}
	m.cases[c.ID] = cloneCase(c)
	return nil
}

func (m *Memory) GetCase(_ context.Context, id ledger.CaseID) (*ledger.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %s: %w", id, ledger.ErrCaseNotFound)
	}
	return cloneCase(c), nil
}

func (m *Memory) ListCases(_ context.Context) ([]*ledger.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ledger.Case, 0, len(m.cases))
	for _, c := range m.cases {
		if c.IsActive {
			out = append(out, cloneCase(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateCase(_ context.Context, c *ledger.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; !ok {
		return fmt.Errorf("case %s: %w", c.ID, ledger.ErrCaseNotFound)
	}
	m.cases[c.ID] = cloneCase(c)
	return nil
}

func (m *Memory) InsertEntry(_ context.Context, e *ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; ok {
		return fmt.Errorf("entry %s already exists", e.ID)
	}
	m.nextSeq++
	e.Seq = m.nextSeq
	m.entries[e.ID] = cloneEntry(e)
	return nil
}

func (m *Memory) UpdateEntry(_ context.Context, e *ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return fmt.Errorf("entry %s: %w", e.ID, ledger.ErrEntryNotFound)
	}
	m.entries[e.ID] = cloneEntry(e)
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, ledger.ErrEntryNotFound)
	}
	return cloneEntry(e), nil
}

func (m *Memory) LoadEntries(_ context.Context, caseID ledger.CaseID) ([]*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ledger.Entry
	for _, e := range m.entries {
		if e.CaseID == caseID {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// WithTx runs fn against a full copy of the store's state and swaps the
// copy in only if fn succeeds. This mirrors the all-or-nothing semantics
// the SQL store gets from database transactions, so engine tests exercise
// rollback behavior without a database.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	child := &Memory{
		cases:   make(map[ledger.CaseID]*ledger.Case, len(m.cases)),
		entries: make(map[ledger.EntryID]*ledger.Entry, len(m.entries)),
		nextSeq: m.nextSeq,
	}
	for id, c := range m.cases {
		child.cases[id] = cloneCase(c)
	}
	for id, e := range m.entries {
		child.entries[id] = cloneEntry(e)
	}

	if err := fn(child); err != nil {
		return err
	}

	m.cases = child.cases
	m.entries = child.entries
	m.nextSeq = child.nextSeq
	return nil
}

func cloneCase(c *ledger.Case) *ledger.Case {
	out := *c
	if c.LastPaymentDate != nil {
		d := *c.LastPaymentDate
		out.LastPaymentDate = &d
	}
	return &out
}

func cloneEntry(e *ledger.Entry) *ledger.Entry {
	out := *e
	return &out
}
