package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ALIGNER_TOOL", "ALIGNER_ARGS", "ALIGN_WORK_DIR", "ARCHIVE_BACKEND", "LOG_FORMAT", "ALIGN_RESPONSE_FORMAT", "ALIGNER_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != defaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, defaultPort)
	}
	if cfg.AlignerTool != "muscle" {
		t.Errorf("AlignerTool = %q, want muscle", cfg.AlignerTool)
	}
	if cfg.AlignerArgs != defaultArgs {
		t.Errorf("AlignerArgs = %q, want %q", cfg.AlignerArgs, defaultArgs)
	}
	if cfg.AlignerTimeout != defaultTimeout {
		t.Errorf("AlignerTimeout = %s, want %s", cfg.AlignerTimeout, defaultTimeout)
	}
	if cfg.ArchiveBackend != ArchiveNone {
		t.Errorf("ArchiveBackend = %q, want none", cfg.ArchiveBackend)
	}
	want := filepath.Join(os.TempDir(), defaultWorkDir)
	if cfg.WorkDir != want {
		t.Errorf("WorkDir = %q, want %q", cfg.WorkDir, want)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ALIGNER_TOOL", "clustalo")
	t.Setenv("ALIGNER_ARGS", "-i {input} -o {output} --force")
	t.Setenv("ALIGNER_TIMEOUT", "0")
	t.Setenv("ALIGN_WORK_DIR", dir)
	t.Setenv("ALIGN_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("ALIGN_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("ALIGN_RESPONSE_FORMAT", "JSON")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AlignerTool != "clustalo" {
		t.Errorf("AlignerTool = %q", cfg.AlignerTool)
	}
	if cfg.AlignerTimeout != 0 {
		t.Errorf("AlignerTimeout = %s, want 0", cfg.AlignerTimeout)
	}
	if cfg.WorkDir != dir {
		t.Errorf("WorkDir = %q, want %q", cfg.WorkDir, dir)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.ResponseFormat != FormatJSON {
		t.Errorf("ResponseFormat = %q", cfg.ResponseFormat)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ALIGN_MAX_UPLOAD_BYTES", "lots")
	t.Setenv("ALIGN_JANITOR_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MaxUploadBytes != defaultMaxUploadBytes {
		t.Errorf("MaxUploadBytes = %d, want default", cfg.MaxUploadBytes)
	}
	if cfg.JanitorInterval != 15*time.Minute {
		t.Errorf("JanitorInterval = %s, want default", cfg.JanitorInterval)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "args without input",
			env:     map[string]string{"ALIGNER_ARGS": "-out {output}"},
			wantErr: "{input}",
		},
		{
			name:    "args without output",
			env:     map[string]string{"ALIGNER_ARGS": "-in {input}"},
			wantErr: "{output}",
		},
		{
			name:    "unknown archive",
			env:     map[string]string{"ARCHIVE_BACKEND": "ftp"},
			wantErr: "unknown ARCHIVE_BACKEND",
		},
		{
			name:    "incomplete minio",
			env:     map[string]string{"ARCHIVE_BACKEND": "minio", "ARCHIVE_S3_ENDPOINT": "minio:9000"},
			wantErr: "minio archive requires",
		},
		{
			name:    "incomplete github",
			env:     map[string]string{"ARCHIVE_BACKEND": "github", "ARCHIVE_GITHUB_TOKEN": "tok"},
			wantErr: "github archive requires",
		},
		{
			name:    "bad response format",
			env:     map[string]string{"ALIGN_RESPONSE_FORMAT": "xml"},
			wantErr: "ALIGN_RESPONSE_FORMAT",
		},
		{
			name:    "bad log format",
			env:     map[string]string{"LOG_FORMAT": "logfmt"},
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
