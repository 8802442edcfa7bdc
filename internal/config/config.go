package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	homeDirName   = ".xorbreak"
	homeFileName  = "config.toml"
	localFileName = "xorbreak.yml"
	envPrefix     = "XORBREAK_"
)

// Config captures the xorbreak configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	MinKeySize  int       `yaml:"min_keysize" toml:"min_keysize" json:"min_keysize"`
	MaxKeySize  int       `yaml:"max_keysize" toml:"max_keysize" json:"max_keysize"`
	Candidates  int       `yaml:"candidates" toml:"candidates" json:"candidates"`
	Workers     int       `yaml:"workers" toml:"workers" json:"workers"`
	Encoding    string    `yaml:"encoding" toml:"encoding" json:"encoding"`
	HistoryPath string    `yaml:"history_path" toml:"history_path" json:"history_path"`
	LogLevel    string    `yaml:"log_level" toml:"log_level" json:"log_level"`
	AuditLog    string    `yaml:"audit_log" toml:"audit_log" json:"audit_log"`
	API         APIConfig `yaml:"api" toml:"api" json:"api"`
}

// APIConfig controls the HTTP API started by "xorbreak serve".
type APIConfig struct {
	Addr        string        `yaml:"addr" toml:"addr" json:"addr"`
	StaticToken string        `yaml:"static_token" toml:"static_token" json:"static_token"`
	JWTSecret   string        `yaml:"jwt_secret" toml:"jwt_secret" json:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer" toml:"jwt_issuer" json:"jwt_issuer"`
	TokenTTL    time.Duration `yaml:"token_ttl" toml:"token_ttl" json:"token_ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MinKeySize:  2,
		MaxKeySize:  40,
		Candidates:  10,
		Workers:     0,
		Encoding:    "hex",
		HistoryPath: defaultHistoryPath(),
		LogLevel:    "info",
		AuditLog:    "",
		API: APIConfig{
			Addr:      "127.0.0.1:8713",
			JWTIssuer: "xorbreak",
			TokenTTL:  time.Hour,
		},
	}
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(homeDirName, "history.db")
	}
	return filepath.Join(home, homeDirName, "history.db")
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Later sources win:
//  1. built-in defaults
//  2. ~/.xorbreak/config.toml (TOML)
//  3. ./xorbreak.yml (YAML)
//  4. XORBREAK_* environment variables
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile applies a single TOML or YAML file, chosen by extension, on top of
// the defaults and then applies environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(&cfg, data, format); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}
	return loadOptional(cfg, filepath.Join(home, homeDirName, homeFileName), "toml")
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadOptional(cfg, filepath.Join(wd, localFileName), "yaml")
}

func loadOptional(cfg *Config, path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, format); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig mirrors Config with pointers so absent keys keep earlier values.
type fileConfig struct {
	MinKeySize  *int           `yaml:"min_keysize" toml:"min_keysize"`
	MaxKeySize  *int           `yaml:"max_keysize" toml:"max_keysize"`
	Candidates  *int           `yaml:"candidates" toml:"candidates"`
	Workers     *int           `yaml:"workers" toml:"workers"`
	Encoding    *string        `yaml:"encoding" toml:"encoding"`
	HistoryPath *string        `yaml:"history_path" toml:"history_path"`
	LogLevel    *string        `yaml:"log_level" toml:"log_level"`
	AuditLog    *string        `yaml:"audit_log" toml:"audit_log"`
	API         *fileAPIConfig `yaml:"api" toml:"api"`
}

type fileAPIConfig struct {
	Addr        *string `yaml:"addr" toml:"addr"`
	StaticToken *string `yaml:"static_token" toml:"static_token"`
	JWTSecret   *string `yaml:"jwt_secret" toml:"jwt_secret"`
	JWTIssuer   *string `yaml:"jwt_issuer" toml:"jwt_issuer"`
	TokenTTL    *string `yaml:"token_ttl" toml:"token_ttl"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return err
		}
	case "toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	setInt(&cfg.MinKeySize, fc.MinKeySize)
	setInt(&cfg.MaxKeySize, fc.MaxKeySize)
	setInt(&cfg.Candidates, fc.Candidates)
	setInt(&cfg.Workers, fc.Workers)
	setString(&cfg.Encoding, fc.Encoding)
	setString(&cfg.HistoryPath, fc.HistoryPath)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.AuditLog, fc.AuditLog)

	if fc.API != nil {
		setString(&cfg.API.Addr, fc.API.Addr)
		setString(&cfg.API.StaticToken, fc.API.StaticToken)
		setString(&cfg.API.JWTSecret, fc.API.JWTSecret)
		setString(&cfg.API.JWTIssuer, fc.API.JWTIssuer)
		if fc.API.TokenTTL != nil {
			ttl, err := time.ParseDuration(strings.TrimSpace(*fc.API.TokenTTL))
			if err != nil {
				return fmt.Errorf("api.token_ttl: %w", err)
			}
			cfg.API.TokenTTL = ttl
		}
	}
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"MIN_KEYSIZE", &cfg.MinKeySize},
		{"MAX_KEYSIZE", &cfg.MaxKeySize},
		{"CANDIDATES", &cfg.Candidates},
		{"WORKERS", &cfg.Workers},
	}
	for _, e := range ints {
		val := env(e.name)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, e.name, err)
		}
		*e.dst = n
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"ENCODING", &cfg.Encoding},
		{"HISTORY", &cfg.HistoryPath},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"AUDIT_LOG", &cfg.AuditLog},
		{"API_ADDR", &cfg.API.Addr},
		{"API_TOKEN", &cfg.API.StaticToken},
		{"JWT_SECRET", &cfg.API.JWTSecret},
		{"JWT_ISSUER", &cfg.API.JWTIssuer},
	}
	for _, e := range strs {
		if val := env(e.name); val != "" {
			*e.dst = val
		}
	}

	if val := env("TOKEN_TTL"); val != "" {
		ttl, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%sTOKEN_TTL: %w", envPrefix, err)
		}
		cfg.API.TokenTTL = ttl
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

// Validate reports settings the cracker cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.MinKeySize < 1 {
		errs = append(errs, fmt.Errorf("min_keysize must be at least 1, got %d", c.MinKeySize))
	}
	if c.MaxKeySize < c.MinKeySize {
		errs = append(errs, fmt.Errorf("max_keysize %d is below min_keysize %d", c.MaxKeySize, c.MinKeySize))
	}
	if c.Candidates < 1 {
		errs = append(errs, fmt.Errorf("candidates must be positive, got %d", c.Candidates))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	switch strings.ToLower(c.Encoding) {
	case "hex", "base64", "raw", "auto":
	default:
		errs = append(errs, fmt.Errorf("unsupported encoding %q", c.Encoding))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.API.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("api.token_ttl must be positive, got %s", c.API.TokenTTL))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log_level %q", s)
	}
}
