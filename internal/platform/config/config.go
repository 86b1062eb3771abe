// Package config loads application configuration from an optional TOML file
// overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileEnv names the environment variable that points at a TOML config file.
const FileEnv = "LINEDIFF_CONFIG"

// Config holds the application configuration.
type Config struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`

	// Diff defaults
	ContextLines       int    `toml:"context_lines"`
	TrimEdges          bool   `toml:"trim_edges"`
	CollapseWhitespace bool   `toml:"collapse_whitespace"`
	FoldCase           bool   `toml:"fold_case"`
	DiffEngine         string `toml:"diff_engine"` // "myers" or "difflib"
	MaxConcurrency     int    `toml:"max_concurrency"`
	MaxBodyBytes       int64  `toml:"max_body_bytes"`

	// Git ref source (optional)
	GitRepoURL       string        `toml:"git_repo_url"`
	GitRepoLocalPath string        `toml:"git_repo_local_path"`
	GitSyncInterval  time.Duration `toml:"git_sync_interval"`

	// GitHub (optional)
	GitHubRepo           string `toml:"github_repo"` // owner/repo for GET /compare
	GitHubToken          string `toml:"github_token"`
	GitHubAppID          int64  `toml:"github_app_id"`
	GitHubInstallationID int64  `toml:"github_installation_id"`
	GitHubPrivateKey     string `toml:"github_private_key"` // PEM file contents

	// Pull request review (enabled by WebhookSecret)
	WebhookSecret string `toml:"webhook_secret"`
	ManifestPath  string `toml:"manifest_path"`
	AppName       string `toml:"app_name"`

	// OpenTelemetry (optional)
	OTelEnabled bool `toml:"otel_enabled"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:             8080,
		LogLevel:         "info",
		ContextLines:     3,
		DiffEngine:       "myers",
		MaxConcurrency:   4,
		MaxBodyBytes:     10 << 20,
		GitRepoLocalPath: "/tmp/linediff-repo",
		GitSyncInterval:  time.Hour,
		ManifestPath:     ".linediff.yaml",
		AppName:          "linediff",
	}
}

// Load starts from Default, applies the TOML file named by LINEDIFF_CONFIG
// when set, then environment variables, and validates the result.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := loadCoreConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadDiffConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadGitConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadGitHubConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadOTelConfig(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %s: unknown keys %v", path, undecoded)
	}
	return nil
}

// Validate checks values that would otherwise fail later, far from their
// source.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ContextLines < 0 {
		return fmt.Errorf("context lines must not be negative, got %d", c.ContextLines)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	switch c.DiffEngine {
	case "myers", "difflib":
	default:
		return fmt.Errorf("unknown diff engine %q (want myers or difflib)", c.DiffEngine)
	}
	if c.GitHubRepo != "" {
		if owner, repo, ok := strings.Cut(c.GitHubRepo, "/"); !ok || owner == "" || repo == "" {
			return fmt.Errorf("invalid github repo %q (want owner/repo)", c.GitHubRepo)
		}
	}
	if c.WebhookSecret != "" && !c.HasGitHubCredentials() {
		return errors.New("WEBHOOK_SECRET requires GitHub credentials (GITHUB_TOKEN or GitHub App)")
	}
	return nil
}

// HasGitHubCredentials reports whether a token or any GitHub App field is set.
func (c Config) HasGitHubCredentials() bool {
	return c.GitHubToken != "" || c.GitHubAppID != 0 || c.GitHubInstallationID != 0 || c.GitHubPrivateKey != ""
}

func loadCoreConfig(cfg *Config) error {
	if err := parseInt("PORT", &cfg.Port); err != nil {
		return err
	}
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("WEBHOOK_SECRET", &cfg.WebhookSecret)
	setString("MANIFEST_PATH", &cfg.ManifestPath)
	setString("APP_NAME", &cfg.AppName)
	return nil
}

func loadDiffConfig(cfg *Config) error {
	if err := parseInt("CONTEXT_LINES", &cfg.ContextLines); err != nil {
		return err
	}
	if err := parseBool("TRIM_EDGES", &cfg.TrimEdges); err != nil {
		return err
	}
	if err := parseBool("COLLAPSE_WHITESPACE", &cfg.CollapseWhitespace); err != nil {
		return err
	}
	if err := parseBool("FOLD_CASE", &cfg.FoldCase); err != nil {
		return err
	}
	setString("DIFF_ENGINE", &cfg.DiffEngine)
	if err := parseInt("MAX_CONCURRENCY", &cfg.MaxConcurrency); err != nil {
		return err
	}
	return parseInt64("MAX_BODY_BYTES", &cfg.MaxBodyBytes)
}

func loadGitConfig(cfg *Config) error {
	setString("GIT_REPO_URL", &cfg.GitRepoURL)
	setString("GIT_REPO_LOCAL_PATH", &cfg.GitRepoLocalPath)
	return parseDuration("GIT_SYNC_INTERVAL", &cfg.GitSyncInterval)
}

func loadGitHubConfig(cfg *Config) error {
	setString("GITHUB_REPO", &cfg.GitHubRepo)
	setString("GITHUB_TOKEN", &cfg.GitHubToken)
	setString("GITHUB_PRIVATE_KEY", &cfg.GitHubPrivateKey)
	if err := parseInt64("GITHUB_APP_ID", &cfg.GitHubAppID); err != nil {
		return err
	}
	return parseInt64("GITHUB_INSTALLATION_ID", &cfg.GitHubInstallationID)
}

func loadOTelConfig(cfg *Config) error {
	return parseBool("OTEL_ENABLED", &cfg.OTelEnabled)
}

func setString(envKey string, dst *string) {
	if v := os.Getenv(envKey); v != "" {
		*dst = v
	}
}

func parseInt(envKey string, dst *int) error {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	*dst = n
	return nil
}

func parseInt64(envKey string, dst *int64) error {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	*dst = n
	return nil
}

func parseBool(envKey string, dst *bool) error {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	*dst = b
	return nil
}

func parseDuration(envKey string, dst *time.Duration) error {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	*dst = dur
	return nil
}
