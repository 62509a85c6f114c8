package kyc

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by unit tests and local
// development. It applies the same optimistic version check as the postgres
// implementation.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record // keyed by expert id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]*Record)}
}

func (m *MemoryRepository) Create(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ExpertID] = r.Clone()
	return nil
}

func (m *MemoryRepository) GetByExpertID(ctx context.Context, expertID uuid.UUID) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[expertID]
	if !ok {
		return nil, nil
	}
	return stored.Clone(), nil
}

func (m *MemoryRepository) Update(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[r.ExpertID]
	if !ok || stored.Version != r.Version {
		return ErrStaleRecord
	}
	r.Version++
	clone := r.Clone()
	clone.Documents = stored.Documents // documents are managed separately
	m.records[r.ExpertID] = clone
	return nil
}

func (m *MemoryRepository) ListByStatus(ctx context.Context, status Status) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Record
	for _, rec := range m.records {
		if rec.Status == status {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (m *MemoryRepository) UpsertDocument(ctx context.Context, ref *DocumentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == ref.RecordID {
			refCopy := *ref
			rec.Documents[ref.Slot] = &refCopy
			return nil
		}
	}
	return nil
}

func (m *MemoryRepository) DeleteDocument(ctx context.Context, recordID uuid.UUID, slot DocumentSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == recordID {
			delete(rec.Documents, slot)
			return nil
		}
	}
	return nil
}

// Corrupt force-bumps the stored version, simulating a concurrent writer.
func (m *MemoryRepository) Corrupt(expertID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[expertID]; ok {
		rec.Version++
	}
}
