package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort                 = "8080"
	defaultTool                 = "muscle"
	defaultArgs                 = "-align {input} -output {output}"
	defaultTimeout              = 10 * time.Minute
	defaultWorkDir              = "tmp/msa"
	defaultMaxUploadBytes int64 = 50 * 1024 * 1024 // 50MB
	defaultResponseFormat       = FormatDownload
	defaultJanitorInterval      = 15 * time.Minute
	defaultJanitorMaxAge        = time.Hour
	defaultHistoryLimit         = 200
	defaultArchiveBackend       = ArchiveNone
	defaultLogLevel             = "info"
	defaultLogFormat            = "text"
)

// Response formats for a successful alignment.
const (
	FormatDownload = "download"
	FormatJSON     = "json"
)

// Archive backends.
const (
	ArchiveNone   = "none"
	ArchiveMinIO  = "minio"
	ArchiveGitHub = "github"
)

// Config captures server runtime configuration.
type Config struct {
	Port           string
	AllowedOrigins []string

	AlignerTool    string
	AlignerArgs    string
	AlignerTimeout time.Duration

	WorkDir         string
	MaxUploadBytes  int64
	ResponseFormat  string
	JanitorInterval time.Duration
	JanitorMaxAge   time.Duration

	DatabaseURL  string
	HistoryLimit int

	ArchiveBackend string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	GitHubToken    string
	GitHubOwner    string
	GitHubRepo     string

	LogLevel  string
	LogFormat string
}

// Load reads environment variables into a Config structure.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("ALIGN_SERVER_PORT", defaultPort),
		AllowedOrigins:  parseList("ALIGN_ALLOWED_ORIGINS", []string{"*"}),
		AlignerTool:     getEnv("ALIGNER_TOOL", defaultTool),
		AlignerArgs:     getEnv("ALIGNER_ARGS", defaultArgs),
		AlignerTimeout:  parseDuration("ALIGNER_TIMEOUT", defaultTimeout),
		WorkDir:         getEnv("ALIGN_WORK_DIR", defaultWorkDir),
		MaxUploadBytes:  parseInt64("ALIGN_MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		ResponseFormat:  strings.ToLower(getEnv("ALIGN_RESPONSE_FORMAT", defaultResponseFormat)),
		JanitorInterval: parseDuration("ALIGN_JANITOR_INTERVAL", defaultJanitorInterval),
		JanitorMaxAge:   parseDuration("ALIGN_JANITOR_MAX_AGE", defaultJanitorMaxAge),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HistoryLimit:    int(parseInt64("ALIGN_HISTORY_LIMIT", defaultHistoryLimit)),
		ArchiveBackend:  strings.ToLower(getEnv("ARCHIVE_BACKEND", defaultArchiveBackend)),
		S3Endpoint:      os.Getenv("ARCHIVE_S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("ARCHIVE_S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("ARCHIVE_S3_SECRET_KEY"),
		S3Bucket:        os.Getenv("ARCHIVE_BUCKET"),
		GitHubToken:     os.Getenv("ARCHIVE_GITHUB_TOKEN"),
		GitHubOwner:     os.Getenv("ARCHIVE_GITHUB_OWNER"),
		GitHubRepo:      os.Getenv("ARCHIVE_GITHUB_REPO"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.AlignerTimeout < 0 {
		cfg.AlignerTimeout = 0
	}
	if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(os.TempDir(), cfg.WorkDir)
	}

	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AlignerTool) == "" {
		return errors.New("ALIGNER_TOOL is required")
	}
	if !strings.Contains(c.AlignerArgs, "{input}") {
		return errors.New("ALIGNER_ARGS must contain {input}")
	}
	if !strings.Contains(c.AlignerArgs, "{output}") {
		return errors.New("ALIGNER_ARGS must contain {output}")
	}

	switch c.ResponseFormat {
	case FormatDownload, FormatJSON:
	default:
		return fmt.Errorf("ALIGN_RESPONSE_FORMAT must be %q or %q, got %q", FormatDownload, FormatJSON, c.ResponseFormat)
	}

	switch c.ArchiveBackend {
	case ArchiveNone:
	case ArchiveMinIO:
		if c.S3Endpoint == "" || c.S3AccessKey == "" || c.S3SecretKey == "" || c.S3Bucket == "" {
			return errors.New("minio archive requires ARCHIVE_S3_ENDPOINT, ARCHIVE_S3_ACCESS_KEY, ARCHIVE_S3_SECRET_KEY and ARCHIVE_BUCKET")
		}
	case ArchiveGitHub:
		if c.GitHubToken == "" || c.GitHubOwner == "" || c.GitHubRepo == "" {
			return errors.New("github archive requires ARCHIVE_GITHUB_TOKEN, ARCHIVE_GITHUB_OWNER and ARCHIVE_GITHUB_REPO")
		}
	default:
		return fmt.Errorf("unknown ARCHIVE_BACKEND %q", c.ArchiveBackend)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func parseList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseInt64(key string, fallback int64) int64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return dur
}
