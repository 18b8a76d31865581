package store

import (
	"context"

	"github.com/google/uuid"

	"msa-backend/internal/domain"
)

// Store defines persistence behavior for the alignment run history.
type Store interface {
	RecordJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	ListJobs(ctx context.Context, limit int) ([]domain.Job, error)
}
