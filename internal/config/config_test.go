package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
upstream:
  base_url: "http://localhost:9090/fiscal"
api:
  host: "127.0.0.1"
  port: 3000
  cors_origins:
    - "http://localhost:5173"
logging:
  level: "debug"
  format: "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Upstream.BaseURL != "http://localhost:9090/fiscal" {
		t.Errorf("Upstream.BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.API.Host != "127.0.0.1" || cfg.API.Port != 3000 {
		t.Errorf("API = %+v", cfg.API)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("CORSOrigins = %v", cfg.API.CORSOrigins)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadFromFilePartialFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  port: 9999\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", cfg.API.Port)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host = %q, want default 0.0.0.0", cfg.API.Host)
	}
	if cfg.Upstream.BaseURL != "https://api.fiscaldata.treasury.gov/services/api/fiscal_service" {
		t.Errorf("Upstream.BaseURL = %q, want production default", cfg.Upstream.BaseURL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want defaults", cfg.Logging)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FISCALGATE_API_PORT", "4242")
	t.Setenv("FISCALGATE_UPSTREAM_BASE_URL", "http://fake-upstream:8000")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  port: 3000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.API.Port != 4242 {
		t.Errorf("API.Port = %d, want env override 4242", cfg.API.Port)
	}
	if cfg.Upstream.BaseURL != "http://fake-upstream:8000" {
		t.Errorf("Upstream.BaseURL = %q, want env override", cfg.Upstream.BaseURL)
	}
}
