package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"msa-backend/internal/align"
	"msa-backend/internal/aligner"
	"msa-backend/internal/api"
	"msa-backend/internal/archive"
	"msa-backend/internal/config"
	"msa-backend/internal/logging"
	"msa-backend/internal/metrics"
	"msa-backend/internal/store"
	"msa-backend/internal/temp"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP alignment service",
		Long: `Run the HTTP alignment service.

Environment:
  ALIGN_SERVER_PORT       listen port (8080)
  ALIGN_ALLOWED_ORIGINS   comma separated CORS origins (*)
  ALIGNER_TOOL            aligner executable on PATH (muscle)
  ALIGNER_ARGS            argument template ("-align {input} -output {output}")
  ALIGNER_TIMEOUT         per-run deadline, 0 disables (10m)
  ALIGN_WORK_DIR          staging directory (tmp/msa under the system temp dir)
  ALIGN_MAX_UPLOAD_BYTES  request body cap (52428800)
  ALIGN_RESPONSE_FORMAT   download or json (download)
  DATABASE_URL            Postgres URL for run history (in-memory when unset)
  ARCHIVE_BACKEND         none, minio or github (none)
  LOG_LEVEL, LOG_FORMAT   debug|info|warn|error, text|json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	tempStore, err := temp.NewStore(cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("initialize temp store: %w", err)
	}
	if removed, err := tempStore.Sweep(cfg.JanitorMaxAge); err != nil {
		logger.Warn("temp_startup_sweep_failed", "err", err)
	} else if removed > 0 {
		logger.Info("temp_startup_sweep", "removed", removed)
		m.ObserveSweep(removed)
	}
	go tempStore.StartJanitor(ctx, cfg.JanitorInterval, cfg.JanitorMaxAge, logger, m.ObserveSweep)

	history, closeHistory, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory()

	archiver, err := archive.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize archive: %w", err)
	}

	exec, err := aligner.NewExec(cfg.AlignerTool, cfg.AlignerArgs, cfg.AlignerTimeout)
	if err != nil {
		return fmt.Errorf("configure aligner: %w", err)
	}
	if err := exec.Available(); err != nil {
		logger.Warn("aligner_unavailable", "tool", cfg.AlignerTool, "err", err)
	}

	svc := align.NewService(exec, tempStore,
		align.WithHistory(history),
		align.WithArchiver(archiver),
		align.WithMetrics(m),
		align.WithLogger(logger),
	)
	handler := api.NewHandler(cfg, svc, m, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      writeTimeout(cfg.AlignerTimeout),
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening",
			"addr", server.Addr,
			"aligner", cfg.AlignerTool,
			"work_dir", tempStore.BasePath(),
			"archive", archiver.Name(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful_shutdown_failed", "err", err)
		return err
	}
	return nil
}

// openHistory picks Postgres when DATABASE_URL is set and an in-memory ring
// otherwise.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("history_in_memory", "limit", cfg.HistoryLimit)
		return store.NewMemoryStore(cfg.HistoryLimit), func() {}, nil
	}
	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("history_postgres")
	return pg, pg.Close, nil
}

// writeTimeout leaves room for the aligner deadline plus the response.
func writeTimeout(alignerTimeout time.Duration) time.Duration {
	if alignerTimeout <= 0 {
		return 0
	}
	return alignerTimeout + time.Minute
}
