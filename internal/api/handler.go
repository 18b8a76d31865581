package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"msa-backend/internal/align"
	"msa-backend/internal/aligner"
	"msa-backend/internal/config"
	"msa-backend/internal/domain"
	"msa-backend/internal/metrics"
	"msa-backend/internal/store"
)

const (
	formField        = "file"
	defaultListLimit = 50
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeUploadTooLarge   = "upload_too_large"
	CodeMissingFile      = "missing_file"
	CodeInvalidFASTA     = "invalid_fasta"
	CodeToolNotFound     = "tool_not_found"
	CodeInvocationFailed = "invocation_failed"
	CodeInvalidID        = "invalid_id"
	CodeInvalidLimit     = "invalid_limit"
	CodeNotFound         = "not_found"
	CodeInternal         = "internal_error"
)

var errMissingFile = errors.New(`request must be multipart/form-data with a "file" field`)

// Handler wires HTTP routes to the alignment service.
type Handler struct {
	cfg     *config.Config
	svc     *align.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHandler creates a Handler instance.
func NewHandler(cfg *config.Config, svc *align.Service, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cfg: cfg, svc: svc, metrics: m, logger: logger}
}

// Router returns a configured chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(h.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Alignment-Id", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.handleHealth)
	r.Post("/align", h.handleAlign)
	r.Route("/alignments", func(r chi.Router) {
		r.Get("/", h.handleHistory)
		r.Get("/{jobID}", h.handleJob)
	})
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"aligner": h.svc.AlignerName(),
	})
}

func (h *Handler) handleAlign(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	}

	part, err := filePart(r)
	if err != nil {
		h.metrics.ObserveRequest(metrics.OutcomeBadRequest)
		h.writeAlignError(w, r, err)
		return
	}
	defer func() { _ = part.Close() }()

	res, err := h.svc.Align(r.Context(), align.Upload{
		Filename: part.FileName(),
		Content:  part,
	})
	if err != nil {
		h.writeAlignError(w, r, err)
		return
	}

	w.Header().Set("X-Alignment-Id", res.JobID.String())
	if responseFormat(r, h.cfg.ResponseFormat) == config.FormatJSON {
		writeJSON(w, http.StatusOK, domain.AlignResponse{
			ID:        res.JobID.String(),
			Filename:  res.DownloadName,
			Sequences: res.Sequences,
			Aligned:   base64.StdEncoding.EncodeToString(res.Data),
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.DownloadName))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidLimit, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if h.cfg.HistoryLimit > 0 && limit > h.cfg.HistoryLimit {
		limit = h.cfg.HistoryLimit
	}

	jobs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("history_list_failed", "err", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not load history")
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	writeJSON(w, http.StatusOK, domain.HistoryResponse{Jobs: jobs})
}

func (h *Handler) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidID, "invalid alignment id")
		return
	}
	job, err := h.svc.Job(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "alignment not found")
			return
		}
		h.logger.Error("history_get_failed", "job_id", jobID.String(), "err", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not load alignment")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) writeAlignError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if code == CodeInternal {
		h.logger.Error("align_internal_error", "request_id", middleware.GetReqID(r.Context()), "err", err)
		msg = "internal server error"
	}
	writeError(w, status, code, msg)
}

// filePart advances the multipart stream to the "file" part.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMissingFile, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errMissingFile
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errMissingFile, err)
		}
		if part.FormName() == formField {
			return part, nil
		}
		_ = part.Close()
	}
}

func classify(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, CodeUploadTooLarge
	case errors.Is(err, errMissingFile):
		return http.StatusBadRequest, CodeMissingFile
	case errors.Is(err, align.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidFASTA
	case errors.Is(err, aligner.ErrToolNotFound):
		return http.StatusInternalServerError, CodeToolNotFound
	case errors.Is(err, aligner.ErrInvocationFailed):
		return http.StatusInternalServerError, CodeInvocationFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func responseFormat(r *http.Request, fallback string) string {
	switch f := r.URL.Query().Get("format"); f {
	case config.FormatJSON, config.FormatDownload:
		return f
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, domain.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
