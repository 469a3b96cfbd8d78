// Package config loads application configuration from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// EnvPrefix is prepended to every variable in Config.
const EnvPrefix = "ISSUETRIAGE_"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// GitHubToken authorises tracker mutations and gathering. Optional: the
	// review loop runs read-only without it. Falls back to GITHUB_TOKEN.
	GitHubToken string `env:"GITHUB_TOKEN"`

	TriageDir string `env:"TRIAGE_DIR,default=.git/triage"`
	Repo      string `env:"REPO"`
	Port      int    `env:"PORT,default=8765"`

	ActionTimeout        time.Duration `env:"ACTION_TIMEOUT,default=30s"`
	DeepDiveTimeout      time.Duration `env:"DEEP_DIVE_TIMEOUT,default=10m"`
	DeepDivePollInterval time.Duration `env:"DEEP_DIVE_POLL_INTERVAL,default=3s"`

	// AnalyzerCommand is run through the shell for each deep dive. Empty
	// disables deep dives.
	AnalyzerCommand string `env:"ANALYZER_COMMAND"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l. Tests pass envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return nil, fmt.Errorf("processing %s environment: %w", EnvPrefix, err)
	}

	if cfg.GitHubToken == "" {
		if token, ok := l.Lookup("GITHUB_TOKEN"); ok {
			cfg.GitHubToken = token
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that the environment parser cannot.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%sPORT must be between 1 and 65535, got %d", EnvPrefix, c.Port)
	}
	if strings.TrimSpace(c.TriageDir) == "" {
		return fmt.Errorf("%sTRIAGE_DIR must not be empty", EnvPrefix)
	}
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("%sACTION_TIMEOUT must be positive, got %s", EnvPrefix, c.ActionTimeout)
	}
	if c.DeepDiveTimeout <= 0 {
		return fmt.Errorf("%sDEEP_DIVE_TIMEOUT must be positive, got %s", EnvPrefix, c.DeepDiveTimeout)
	}
	if c.DeepDivePollInterval < time.Second {
		return fmt.Errorf("%sDEEP_DIVE_POLL_INTERVAL must be at least 1s, got %s", EnvPrefix, c.DeepDivePollInterval)
	}
	if c.Repo != "" && !validRepo(c.Repo) {
		return fmt.Errorf("%sREPO must look like owner/name, got %q", EnvPrefix, c.Repo)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%sLOG_LEVEL: %w", EnvPrefix, err)
	}
	return nil
}

// HasGitHubCredentials reports whether remote actions can be performed.
func (c *Config) HasGitHubCredentials() bool {
	return c.GitHubToken != ""
}

// ListenAddr binds all interfaces so the UI is reachable from outside a
// sandbox once the operator opens the port.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Port))
}

// BaseURL is the address printed for the reviewer on startup.
func (c *Config) BaseURL() string {
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(c.Port))
}

// SlogLevel returns the configured log level. Validate has already checked it.
func (c *Config) SlogLevel() slog.Level {
	level, _ := ParseLogLevel(c.LogLevel)
	return level
}

// ParseLogLevel maps debug|info|warn|error to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func validRepo(s string) bool {
	owner, name, ok := strings.Cut(s, "/")
	return ok && owner != "" && name != "" && !strings.Contains(name, "/")
}
