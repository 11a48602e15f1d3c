package moderation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryReportRepository is an in-memory ReportRepository.
type MemoryReportRepository struct {
	mu   sync.RWMutex
	byID map[int64]Report
}

func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{byID: make(map[int64]Report)}
}

func (m *MemoryReportRepository) Create(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.CreatedAt = time.Now().UTC()
	m.byID[r.ID] = *r
	return nil
}

func (m *MemoryReportRepository) GetByID(_ context.Context, id int64) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &r, nil
}

func (m *MemoryReportRepository) ListByStatus(_ context.Context, status ReportStatus) ([]*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Report, 0)
	for _, r := range m.byID {
		r := r
		if r.Status == status {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryReportRepository) CompareAndSwap(_ context.Context, r *Report, expected ReportStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[r.ID]
	if !ok {
		return ErrReportNotFound
	}
	if current.Status != expected {
		return ErrReportProcessed
	}

	current.Status = r.Status
	current.ReviewedBy = r.ReviewedBy
	current.ReviewedAt = r.ReviewedAt
	m.byID[r.ID] = current
	return nil
}

// MemorySubmissionRepository is an in-memory SubmissionRepository.
type MemorySubmissionRepository struct {
	mu   sync.RWMutex
	byID map[int64]SkillSubmission
}

func NewMemorySubmissionRepository() *MemorySubmissionRepository {
	return &MemorySubmissionRepository{byID: make(map[int64]SkillSubmission)}
}

func (m *MemorySubmissionRepository) Create(_ context.Context, s *SkillSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.CreatedAt = time.Now().UTC()
	m.byID[s.ID] = *s
	return nil
}

func (m *MemorySubmissionRepository) GetByID(_ context.Context, id int64) (*SkillSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return &s, nil
}

func (m *MemorySubmissionRepository) ListByStatus(_ context.Context, status SubmissionStatus) ([]*SkillSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*SkillSubmission, 0)
	for _, s := range m.byID {
		s := s
		if s.Status == status {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemorySubmissionRepository) CompareAndSwap(_ context.Context, s *SkillSubmission, expected SubmissionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[s.ID]
	if !ok {
		return ErrSubmissionNotFound
	}
	if current.Status != expected {
		return ErrSubmissionReviewed
	}

	current.Status = s.Status
	current.RejectionReason = s.RejectionReason
	current.ReviewedBy = s.ReviewedBy
	current.ReviewedAt = s.ReviewedAt
	m.byID[s.ID] = current
	return nil
}
