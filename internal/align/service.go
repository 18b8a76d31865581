package align

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"msa-backend/internal/aligner"
	"msa-backend/internal/archive"
	"msa-backend/internal/domain"
	"msa-backend/internal/fasta"
	"msa-backend/internal/metrics"
	"msa-backend/internal/store"
	"msa-backend/internal/temp"
)

const (
	tracerName        = "msa-backend/internal/align"
	backgroundTimeout = 10 * time.Second
	defaultName       = "alignment"
)

// ErrInvalidInput indicates the upload is not usable FASTA.
var ErrInvalidInput = errors.New("invalid input")

// Upload is one file received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Result is a finished alignment.
type Result struct {
	JobID        uuid.UUID
	Filename     string
	DownloadName string
	Data         []byte
	Sequences    int
	Duration     time.Duration
	ArchivedAt   string
}

// Service orchestrates staging, the aligner call and cleanup for one upload.
type Service struct {
	aligner  aligner.Aligner
	temp     *temp.Store
	history  store.Store
	archiver archive.Archiver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithHistory records every run in st.
func WithHistory(st store.Store) Option {
	return func(s *Service) { s.history = st }
}

// WithArchiver copies successful outputs to a.
func WithArchiver(a archive.Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithMetrics reports runs to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService constructs a Service instance.
func NewService(a aligner.Aligner, tempStore *temp.Store, opts ...Option) *Service {
	s := &Service{
		aligner:  a,
		temp:     tempStore,
		history:  store.NewMemoryStore(100),
		archiver: archive.Nop{},
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s
}

// AlignerName reports the configured aligner.
func (s *Service) AlignerName() string {
	return s.aligner.Name()
}

// Align validates the upload, runs the aligner on it and returns the
// aligned bytes. Staged files are removed before Align returns, whatever
// the outcome.
func (s *Service) Align(ctx context.Context, up Upload) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "align.run", trace.WithAttributes(
		attribute.String("align.tool", s.aligner.Name()),
		attribute.String("align.filename", up.Filename),
	))
	defer span.End()

	rec := &domain.Job{
		ID:        uuid.New(),
		Filename:  up.Filename,
		Tool:      s.aligner.Name(),
		StartedAt: time.Now().UTC(),
	}
	logger := s.logger.With("job_id", rec.ID.String(), "filename", up.Filename)

	defer func() {
		if r := recover(); r != nil {
			s.finish(ctx, span, rec, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		s.finish(ctx, span, rec, err)
		if err != nil {
			logger.Warn("alignment_failed", "outcome", Outcome(err), "err", err)
		}
	}()

	data, err := io.ReadAll(up.Content)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	records, err := fasta.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	rec.Sequences = len(records)
	rec.InputBytes = int64(len(data))
	s.metrics.ObserveInput(rec.InputBytes)
	span.SetAttributes(attribute.Int("align.sequences", rec.Sequences))

	job := s.temp.JobFor(rec.ID)
	defer func() {
		if relErr := s.temp.Release(job); relErr != nil {
			logger.Error("temp_cleanup_failed", "err", relErr)
		}
	}()

	if _, err := s.temp.WriteInput(job, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}
	logger.Debug("input_staged", "path", job.InputPath, "bytes", rec.InputBytes, "sequences", rec.Sequences)

	done := s.metrics.Start()
	started := time.Now()
	alignErr := s.aligner.Align(ctx, job.InputPath, job.OutputPath)
	elapsed := time.Since(started)
	done()
	s.metrics.ObserveAlignment(elapsed)
	if alignErr != nil {
		return nil, alignErr
	}

	out, err := s.temp.ReadOutput(job)
	if err != nil {
		return nil, &aligner.InvocationError{Tool: s.aligner.Name(), ExitCode: 0, Err: fmt.Errorf("read output: %w", err)}
	}
	if len(out) == 0 {
		return nil, &aligner.InvocationError{Tool: s.aligner.Name(), ExitCode: 0, Err: errors.New("empty output")}
	}
	rec.OutputBytes = int64(len(out))

	rec.ArchivedAt = s.archive(ctx, logger, rec.ID, out)

	logger.Info("alignment_complete", "sequences", rec.Sequences, "output_bytes", rec.OutputBytes, "ms", elapsed.Milliseconds())
	return &Result{
		JobID:        rec.ID,
		Filename:     up.Filename,
		DownloadName: DownloadName(up.Filename),
		Data:         out,
		Sequences:    rec.Sequences,
		Duration:     elapsed,
		ArchivedAt:   rec.ArchivedAt,
	}, nil
}

// History returns up to limit recent runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.Job, error) {
	return s.history.ListJobs(ctx, limit)
}

// Job returns a single run from the history.
func (s *Service) Job(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return s.history.GetJob(ctx, id)
}

func (s *Service) archive(ctx context.Context, logger *slog.Logger, id uuid.UUID, data []byte) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	defer cancel()

	loc, err := s.archiver.Put(ctx, archive.Key(id, time.Now()), data)
	if err != nil {
		s.metrics.ObserveArchiveError()
		logger.Warn("archive_failed", "backend", s.archiver.Name(), "err", err)
		return ""
	}
	return loc
}

func (s *Service) finish(ctx context.Context, span trace.Span, rec *domain.Job, err error) {
	finished := time.Now().UTC()
	rec.FinishedAt = &finished

	outcome := Outcome(err)
	switch outcome {
	case metrics.OutcomeSuccess:
		rec.Status = domain.StatusSucceeded
	case metrics.OutcomeBadRequest:
		rec.Status = domain.StatusRejected
	default:
		rec.Status = domain.StatusFailed
	}
	if err != nil {
		rec.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("align.outcome", outcome))
	s.metrics.ObserveRequest(outcome)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	defer cancel()
	if err := s.history.RecordJob(ctx, rec); err != nil {
		s.logger.Error("history_record_failed", "job_id", rec.ID.String(), "err", err)
	}
}

// Outcome classifies an Align error for metrics and status mapping.
func Outcome(err error) string {
	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInvalidInput), errors.As(err, &maxErr):
		return metrics.OutcomeBadRequest
	case errors.Is(err, aligner.ErrToolNotFound):
		return metrics.OutcomeToolNotFound
	case errors.Is(err, aligner.ErrInvocationFailed):
		return metrics.OutcomeInvocationFailed
	default:
		return metrics.OutcomeInternal
	}
}

// DownloadName derives the attachment filename for an upload.
func DownloadName(uploaded string) string {
	base := filepath.Base(strings.ReplaceAll(uploaded, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, base)
	base = strings.Trim(base, "._")
	if base == "" {
		base = defaultName
	}
	return base + ".aligned.fasta"
}
