package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"msa-backend/internal/domain"
)

const jobColumns = `id, filename, tool, status, sequences, input_bytes, output_bytes,
	       error, archived_at, started_at, finished_at`

// PostgresStore implements Store using a PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database using the provided connection string.
func NewPostgresStore(ctx context.Context, conn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(conn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) RecordJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO alignment_jobs (
			id, filename, tool, status, sequences, input_bytes, output_bytes,
			error, archived_at, started_at, finished_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			sequences = EXCLUDED.sequences,
			input_bytes = EXCLUDED.input_bytes,
			output_bytes = EXCLUDED.output_bytes,
			error = EXCLUDED.error,
			archived_at = EXCLUDED.archived_at,
			finished_at = EXCLUDED.finished_at
	`
	_, err := s.pool.Exec(ctx, query,
		job.ID, job.Filename, job.Tool, string(job.Status), job.Sequences,
		job.InputBytes, job.OutputBytes, job.Error, job.ArchivedAt,
		job.StartedAt, job.FinishedAt,
	)
	return err
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM alignment_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns up to limit jobs, newest first.
func (s *PostgresStore) ListJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM alignment_jobs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var status string
	err := row.Scan(
		&job.ID,
		&job.Filename,
		&job.Tool,
		&status,
		&job.Sequences,
		&job.InputBytes,
		&job.OutputBytes,
		&job.Error,
		&job.ArchivedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}
