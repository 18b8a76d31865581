package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"msa-backend/internal/domain"
)

// MemoryStore keeps the most recent jobs in process memory. It is used when
// no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	limit int
	jobs  []domain.Job // oldest first
}

// NewMemoryStore creates a MemoryStore holding at most limit jobs.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 1
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) RecordJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].ID == job.ID {
			s.jobs[i] = *job
			return nil
		}
	}
	s.jobs = append(s.jobs, *job)
	if over := len(s.jobs) - s.limit; over > 0 {
		s.jobs = append(s.jobs[:0:0], s.jobs[over:]...)
	}
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.jobs {
		if s.jobs[i].ID == id {
			job := s.jobs[i]
			return &job, nil
		}
	}
	return nil, ErrJobNotFound
}

// ListJobs returns up to limit jobs, newest first.
func (s *MemoryStore) ListJobs(_ context.Context, limit int) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.jobs) {
		limit = len(s.jobs)
	}
	out := make([]domain.Job, 0, limit)
	for i := len(s.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.jobs[i])
	}
	return out, nil
}
