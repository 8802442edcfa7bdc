package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()

	homeDir := filepath.Join(tempDir, "home")
	configDir := filepath.Join(homeDir, ".xorbreak")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	tomlConfig := []byte(`min_keysize = 3
max_keysize = 30
encoding = "base64"

[api]
addr = "0.0.0.0:1111"
jwt_issuer = "home-issuer"
token_ttl = "15m"
`)
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), tomlConfig, 0o644); err != nil {
		t.Fatalf("write toml config: %v", err)
	}

	// The local YAML file overrides the TOML file.
	workDir := filepath.Join(tempDir, "work")
	if err := os.Mkdir(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work: %v", err)
	}
	yamlConfig := []byte(`max_keysize: 24
workers: 2
api:
  addr: 127.0.0.1:6500
  static_token: local-token
`)
	if err := os.WriteFile(filepath.Join(workDir, "xorbreak.yml"), yamlConfig, 0o644); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	// Environment beats both files.
	t.Setenv("XORBREAK_WORKERS", "6")
	t.Setenv("XORBREAK_JWT_SECRET", "env-secret")
	chdir(t, workDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.MinKeySize != 3 {
		t.Fatalf("expected TOML min_keysize, got %d", cfg.MinKeySize)
	}
	if cfg.MaxKeySize != 24 {
		t.Fatalf("expected YAML max_keysize override, got %d", cfg.MaxKeySize)
	}
	if cfg.Encoding != "base64" {
		t.Fatalf("expected TOML encoding, got %s", cfg.Encoding)
	}
	if cfg.Workers != 6 {
		t.Fatalf("expected env workers override, got %d", cfg.Workers)
	}
	if cfg.API.Addr != "127.0.0.1:6500" {
		t.Fatalf("unexpected api addr: %s", cfg.API.Addr)
	}
	if cfg.API.JWTIssuer != "home-issuer" {
		t.Fatalf("expected TOML issuer, got %s", cfg.API.JWTIssuer)
	}
	if cfg.API.TokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m token ttl, got %s", cfg.API.TokenTTL)
	}
	if cfg.API.StaticToken != "local-token" {
		t.Fatalf("expected YAML static token, got %s", cfg.API.StaticToken)
	}
	if cfg.API.JWTSecret != "env-secret" {
		t.Fatalf("expected env secret, got %s", cfg.API.JWTSecret)
	}
	if cfg.Candidates != 10 {
		t.Fatalf("expected default candidates, got %d", cfg.Candidates)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	defaults := Default()
	if cfg != defaults {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
	if !strings.HasSuffix(cfg.HistoryPath, filepath.Join(".xorbreak", "history.db")) {
		t.Fatalf("unexpected history path %s", cfg.HistoryPath)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "non numeric env", env: map[string]string{"XORBREAK_MAX_KEYSIZE": "forty"}},
		{name: "bad ttl env", env: map[string]string{"XORBREAK_TOKEN_TTL": "soon"}},
		{name: "inverted range", yaml: "min_keysize: 10\nmax_keysize: 4\n"},
		{name: "unknown encoding", yaml: "encoding: rot13\n"},
		{name: "unknown log level", yaml: "log_level: chatty\n"},
		{name: "malformed yaml", yaml: "min_keysize: [\n"},
		{name: "bad ttl file", yaml: "api:\n  token_ttl: forever\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
			dir := t.TempDir()
			if tt.yaml != "" {
				if err := os.WriteFile(filepath.Join(dir, "xorbreak.yml"), []byte(tt.yaml), 0o644); err != nil {
					t.Fatalf("write yaml config: %v", err)
				}
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			chdir(t, dir)

			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("candidates = 4\nlog_level = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Candidates != 4 {
		t.Fatalf("expected 4 candidates, got %d", cfg.Candidates)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg := Default()
	cfg.MinKeySize = 0
	cfg.Candidates = 0
	cfg.Workers = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"min_keysize", "candidates", "workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
