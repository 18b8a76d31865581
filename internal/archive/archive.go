// Package archive copies finished alignments to long-term storage.
package archive

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"msa-backend/internal/config"
)

// Archiver stores an aligned output under key and returns where it went.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Name() string
}

// Nop discards everything. It is the default backend.
type Nop struct{}

func (Nop) Put(context.Context, string, []byte) (string, error) { return "", nil }
func (Nop) Name() string { return config.ArchiveNone }

// Key builds the object key for a job's aligned output.
func Key(jobID uuid.UUID, at time.Time) string {
	return path.Join("alignments", at.UTC().Format("2006/01/02"), jobID.String()+".aligned.fasta")
}

// New builds the archiver selected by cfg.ArchiveBackend.
func New(ctx context.Context, cfg *config.Config) (Archiver, error) {
	switch cfg.ArchiveBackend {
	case "", config.ArchiveNone:
		return Nop{}, nil
	case config.ArchiveMinIO:
		return NewMinIO(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	case config.ArchiveGitHub:
		return NewGitHub(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}
