package temp

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	inputDir  = "in"
	outputDir = "out"
)

// Job names the pair of staging files used by one alignment.
type Job struct {
	ID         uuid.UUID
	InputPath  string
	OutputPath string
}

// Store stages alignment inputs and outputs on disk.
type Store struct {
	basePath string
}

// NewStore creates a Store rooted at basePath, creating its in/ and out/
// directories.
func NewStore(basePath string) (*Store, error) {
	for _, dir := range []string{inputDir, outputDir} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{basePath: basePath}, nil
}

// BasePath returns the workspace root.
func (s *Store) BasePath() string {
	return s.basePath
}

// NewJob allocates unique input and output paths. Nothing is created on disk.
func (s *Store) NewJob() Job {
	return s.JobFor(uuid.New())
}

// JobFor returns the staging paths for an existing job id.
func (s *Store) JobFor(id uuid.UUID) Job {
	return Job{
		ID:         id,
		InputPath:  filepath.Join(s.basePath, inputDir, id.String()+".fasta"),
		OutputPath: filepath.Join(s.basePath, outputDir, id.String()+".aligned.fasta"),
	}
}

// WriteInput copies data to the job's input path.
func (s *Store) WriteInput(job Job, data io.Reader) (int64, error) {
	tmpPath := job.InputPath + ".partial"
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	written, err := io.Copy(file, data)
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, job.InputPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return written, nil
}

// ReadOutput returns the aligner's output for job.
func (s *Store) ReadOutput(job Job) ([]byte, error) {
	return os.ReadFile(job.OutputPath)
}

// Release deletes every file belonging to job. Missing files are ignored.
func (s *Store) Release(job Job) error {
	var errs []error
	for _, path := range []string{job.InputPath, job.InputPath + ".partial", job.OutputPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sweep removes staged files last modified more than maxAge ago and returns
// how many were deleted.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, dir := range []string{inputDir, outputDir} {
		entries, err := os.ReadDir(filepath.Join(s.basePath, dir))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(s.basePath, dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

// StartJanitor sweeps the store every interval until ctx is cancelled. It
// blocks, so callers run it in a goroutine. onSweep may be nil.
func (s *Store) StartJanitor(ctx context.Context, interval, maxAge time.Duration, logger *slog.Logger, onSweep func(removed int)) {
	if interval <= 0 {
		logger.Info("temp_janitor_disabled")
		return
	}
	logger.Info("temp_janitor_starting", "interval", interval, "max_age", maxAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("temp_janitor_stopped")
			return
		case <-ticker.C:
			removed, err := s.Sweep(maxAge)
			if err != nil {
				logger.Warn("temp_sweep_failed", "err", err)
			}
			if removed > 0 {
				logger.Info("temp_sweep_complete", "removed", removed)
			}
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
