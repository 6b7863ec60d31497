package reconciliation

import (
	"context"
	"sync"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
)

// MemoryPayoutStore is an in-process PayoutStore.
type MemoryPayoutStore struct {
	mu      sync.Mutex
	records map[string]PayoutRecord
}

func NewMemoryPayoutStore() *MemoryPayoutStore {
	return &MemoryPayoutStore{records: make(map[string]PayoutRecord)}
}

var (
	_ PayoutStore = (*MemoryPayoutStore)(nil)
	_ EntryReader = (*ledger.MemoryStore)(nil)
)

// UpsertPayout rejects a payout id already stored for another campground.
func (m *MemoryPayoutStore) UpsertPayout(_ context.Context, rec PayoutRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := append([]PayoutLine(nil), rec.Lines...)
	if existing, ok := m.records[rec.GatewayPayoutID]; ok {
		if existing.TenantID != rec.TenantID {
			return "", apperr.New(apperr.ErrConflict, "payout %s belongs to another campground", rec.GatewayPayoutID)
		}
		existing.Status = rec.Status
		existing.PaidAt = rec.PaidAt
		existing.Lines = lines
		m.records[rec.GatewayPayoutID] = existing
		return existing.ID, nil
	}
	rec.Lines = lines
	m.records[rec.GatewayPayoutID] = rec
	return rec.ID, nil
}

func (m *MemoryPayoutStore) GetPayout(_ context.Context, tenantID, gatewayPayoutID string) (PayoutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[gatewayPayoutID]
	if !ok || rec.TenantID != tenantID {
		return PayoutRecord{}, apperr.New(apperr.ErrNotFound, "payout %s not found", gatewayPayoutID)
	}
	rec.Lines = append([]PayoutLine(nil), rec.Lines...)
	return rec, nil
}
