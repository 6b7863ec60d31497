package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists ledger entries with insert-if-absent semantics keyed by dedupe key.
// A key collision is reported as inserted=false, never as an error.
type Store interface {
	InsertEntry(ctx context.Context, e LedgerEntry) (inserted bool, err error)
	RecordDoubleEntry(ctx context.Context, d DoubleEntry) (Result, error)
}

// Reader lists recorded entries of one campground, oldest first.
type Reader interface {
	ListByCampground(ctx context.Context, campgroundID string, limit int) ([]LedgerEntry, error)
}

// Result counts entry sides written and skipped as duplicates.
type Result struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

func (r *Result) Add(o Result) {
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
}

func (r *Result) count(inserted bool) {
	if inserted {
		r.Inserted++
	} else {
		r.Duplicates++
	}
}

// MemoryStore is an in-process Store. Both sides of a DoubleEntry are written under one lock.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]LedgerEntry
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]LedgerEntry)}
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Reader = (*MemoryStore)(nil)
)

func (m *MemoryStore) InsertEntry(ctx context.Context, e LedgerEntry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(e), nil
}

func (m *MemoryStore) RecordDoubleEntry(ctx context.Context, d DoubleEntry) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var res Result
	res.count(m.insertLocked(d.Debit))
	res.count(m.insertLocked(d.Credit))
	return res, nil
}

func (m *MemoryStore) insertLocked(e LedgerEntry) bool {
	if _, ok := m.entries[e.DedupeKey]; ok {
		return false
	}
	m.entries[e.DedupeKey] = e
	m.order = append(m.order, e.DedupeKey)
	return true
}

// Get returns the stored entry for a dedupe key.
func (m *MemoryStore) Get(dedupeKey string) (LedgerEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[dedupeKey]
	return e, ok
}

// Entries returns a copy of all stored entries in insertion order.
func (m *MemoryStore) Entries() []LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LedgerEntry, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.entries[k])
	}
	return out
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Balances sums signed amounts per account. Across a balanced ledger they total zero.
func (m *MemoryStore) Balances() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for _, e := range m.entries {
		out[e.Account] += e.SignedAmount()
	}
	return out
}

func (m *MemoryStore) ListByCampground(ctx context.Context, campgroundID string, limit int) ([]LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LedgerEntry
	for _, k := range m.order {
		if e := m.entries[k]; e.TenantID == campgroundID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListInWindow returns a campground's entries with occurred_at in [from, to], oldest first.
func (m *MemoryStore) ListInWindow(ctx context.Context, campgroundID string, from, to time.Time) ([]LedgerEntry, error) {
	all, err := m.ListByCampground(ctx, campgroundID, 0)
	if err != nil {
		return nil, err
	}
	var out []LedgerEntry
	for _, e := range all {
		if !e.OccurredAt.Before(from) && !e.OccurredAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}
