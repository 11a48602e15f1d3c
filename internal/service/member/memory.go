package member

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Member
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Member)}
}

func (r *MemoryRepository) Create(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, m.Email) {
			return ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	r.byID[m.ID] = m.Clone()
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return m.Clone(), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.byID {
		if strings.EqualFold(m.Email, email) {
			return m.Clone(), nil
		}
	}
	return nil, ErrMemberNotFound
}

func (r *MemoryRepository) List(_ context.Context) ([]*Member, error) {
	return r.filter(func(*Member) bool { return true }), nil
}

func (r *MemoryRepository) ListPublic(_ context.Context) ([]*Member, error) {
	return r.filter(func(m *Member) bool { return m.Public && !m.Banned }), nil
}

func (r *MemoryRepository) filter(keep func(*Member) bool) []*Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Member, 0, len(r.byID))
	for _, m := range r.byID {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryRepository) CompareAndSwap(_ context.Context, m *Member, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[m.ID]
	if !ok {
		return ErrMemberNotFound
	}
	if current.Version != expectedVersion {
		return ErrMemberConflict
	}

	next := m.Clone()
	next.Email = current.Email
	next.CreatedAt = current.CreatedAt
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()
	r.byID[m.ID] = next

	m.Version = next.Version
	m.UpdatedAt = next.UpdatedAt
	return nil
}
