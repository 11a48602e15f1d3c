package swap

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[int64]*SwapRequest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]*SwapRequest)}
}

func (m *MemoryRepository) Create(_ context.Context, r *SwapRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	m.byID[r.ID] = r.Clone()
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id int64) (*SwapRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryRepository) ListByMember(_ context.Context, memberID string) ([]*SwapRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*SwapRequest, 0)
	for _, r := range m.byID {
		if r.IsParty(memberID) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) CountByStatus(_ context.Context) (map[Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, r := range m.byID {
		counts[r.Status]++
	}
	return counts, nil
}

func (m *MemoryRepository) CompareAndSwap(_ context.Context, r *SwapRequest, expectedStatus Status, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[r.ID]
	if !ok {
		return ErrRequestNotFound
	}
	if current.Status != expectedStatus || current.Version != expectedVersion {
		return ErrRequestConflict
	}

	next := r.Clone()
	next.RequesterID = current.RequesterID
	next.RecipientID = current.RecipientID
	next.SkillOffered = current.SkillOffered
	next.SkillWanted = current.SkillWanted
	next.Message = current.Message
	next.CreatedAt = current.CreatedAt
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()
	m.byID[r.ID] = next

	r.Version = next.Version
	r.UpdatedAt = next.UpdatedAt
	return nil
}
