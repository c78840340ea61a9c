package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := Default()

	if c.Server.Port != "5050" {
		t.Errorf("Expected port 5050, got %s", c.Server.Port)
	}
	if c.Merge.MaxTotalBytes != 60*1024*1024 {
		t.Errorf("Expected 60 MiB ceiling, got %d", c.Merge.MaxTotalBytes)
	}
	if c.Merge.DefaultMargin != 16 || c.Merge.MaxMargin != 64 || c.Merge.MaxPageWidth != 595 {
		t.Errorf("Unexpected merge defaults %+v", c.Merge)
	}
	if c.Thumbnail.Scale != 1.2 || c.Thumbnail.JPEGQuality != 70 || c.Thumbnail.Workers != 4 {
		t.Errorf("Unexpected thumbnail defaults %+v", c.Thumbnail)
	}
	if c.Session.TTL != time.Hour {
		t.Errorf("Expected 1h ttl, got %v", c.Session.TTL)
	}
	if c.Convert.Ghostscript != "gs" || c.Convert.DPI != 200 || c.Convert.MaxUploadBytes != 100*1024*1024 {
		t.Errorf("Unexpected convert defaults %+v", c.Convert)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdftools.yaml")
	content := `server:
  port: "8080"
merge:
  max_total_bytes: 10MiB
  default_margin: 8
session:
  ttl: 15m
convert:
  max_upload_bytes: 2097152
log:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", c.Server.Port)
	}
	if c.Merge.MaxTotalBytes != 10*1024*1024 {
		t.Errorf("Expected 10 MiB, got %d", c.Merge.MaxTotalBytes)
	}
	if c.Merge.DefaultMargin != 8 {
		t.Errorf("Expected margin 8, got %v", c.Merge.DefaultMargin)
	}
	if c.Session.TTL != 15*time.Minute {
		t.Errorf("Expected 15m, got %v", c.Session.TTL)
	}
	if c.Convert.MaxUploadBytes != 2*1024*1024 {
		t.Errorf("Expected 2 MiB, got %d", c.Convert.MaxUploadBytes)
	}
	if c.Log.Format != "json" {
		t.Errorf("Expected json, got %s", c.Log.Format)
	}
	// Unset keys keep their defaults.
	if c.Merge.MaxPageWidth != 595 {
		t.Errorf("Expected default page width, got %v", c.Merge.MaxPageWidth)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdftools.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"8080\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDFTOOLS_PORT", "9090")
	t.Setenv("PDFTOOLS_MAX_TOTAL_BYTES", "5 MB")
	t.Setenv("PDFTOOLS_SESSION_TTL", "2h")
	t.Setenv("PDFTOOLS_THUMBNAIL_WORKERS", "8")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Port != "9090" {
		t.Errorf("Expected env port 9090, got %s", c.Server.Port)
	}
	if c.Merge.MaxTotalBytes != 5_000_000 {
		t.Errorf("Expected 5000000, got %d", c.Merge.MaxTotalBytes)
	}
	if c.Session.TTL != 2*time.Hour {
		t.Errorf("Expected 2h, got %v", c.Session.TTL)
	}
	if c.Thumbnail.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", c.Thumbnail.Workers)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "bad size", env: map[string]string{"PDFTOOLS_MAX_UPLOAD_BYTES": "lots"}},
		{name: "bad duration", env: map[string]string{"PDFTOOLS_SESSION_TTL": "soon"}},
		{name: "bad level", env: map[string]string{"PDFTOOLS_LOG_LEVEL": "chatty"}},
		{name: "margin above maximum", yaml: "merge:\n  default_margin: 80\n"},
		{name: "max margin above 64", yaml: "merge:\n  max_margin: 100\n"},
		{name: "bad port", yaml: "server:\n  port: http\n"},
		{name: "malformed yaml", yaml: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = filepath.Join(t.TempDir(), "c.yaml")
				if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := Load(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected info message to be filtered")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("Expected JSON warn record, got %q", out)
	}

	if _, err := (LogConfig{Level: "info", Format: "xml"}).NewLogger(&buf); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for input, expected := range tests {
		got, err := ParseLevel(input)
		if err != nil || got != expected {
			t.Errorf("ParseLevel(%q): expected %v, got %v (err %v)", input, expected, got, err)
		}
	}
}
