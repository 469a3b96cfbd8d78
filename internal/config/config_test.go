package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadWith(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, ".git/triage", cfg.TriageDir)
	assert.Equal(t, 8765, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ActionTimeout)
	assert.Equal(t, 10*time.Minute, cfg.DeepDiveTimeout)
	assert.Equal(t, 3*time.Second, cfg.DeepDivePollInterval)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Empty(t, cfg.Repo)
	assert.Empty(t, cfg.AnalyzerCommand)
	assert.False(t, cfg.HasGitHubCredentials())
	assert.Equal(t, "0.0.0.0:8765", cfg.ListenAddr())
	assert.Equal(t, "http://127.0.0.1:8765", cfg.BaseURL())
}

func TestLoad_Success(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"ISSUETRIAGE_GITHUB_TOKEN":            "ghp_test123",
		"ISSUETRIAGE_TRIAGE_DIR":              "/tmp/triage",
		"ISSUETRIAGE_REPO":                    "owner/repo",
		"ISSUETRIAGE_PORT":                    "9000",
		"ISSUETRIAGE_ACTION_TIMEOUT":          "5s",
		"ISSUETRIAGE_DEEP_DIVE_TIMEOUT":       "2m",
		"ISSUETRIAGE_DEEP_DIVE_POLL_INTERVAL": "5s",
		"ISSUETRIAGE_ANALYZER_COMMAND":        "./analyze.sh",
		"ISSUETRIAGE_LOG_LEVEL":               "debug",
	})

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, "/tmp/triage", cfg.TriageDir)
	assert.Equal(t, "owner/repo", cfg.Repo)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ActionTimeout)
	assert.Equal(t, 2*time.Minute, cfg.DeepDiveTimeout)
	assert.Equal(t, 5*time.Second, cfg.DeepDivePollInterval)
	assert.Equal(t, "./analyze.sh", cfg.AnalyzerCommand)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_GitHubTokenFallback(t *testing.T) {
	cfg, err := load(t, map[string]string{"GITHUB_TOKEN": "ghp_fallback"})
	require.NoError(t, err)
	assert.Equal(t, "ghp_fallback", cfg.GitHubToken)

	cfg, err = load(t, map[string]string{
		"GITHUB_TOKEN":             "ghp_fallback",
		"ISSUETRIAGE_GITHUB_TOKEN": "ghp_primary",
	})
	require.NoError(t, err)
	assert.Equal(t, "ghp_primary", cfg.GitHubToken)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"port out of range", map[string]string{"ISSUETRIAGE_PORT": "70000"}, "ISSUETRIAGE_PORT"},
		{"port not a number", map[string]string{"ISSUETRIAGE_PORT": "http"}, "ISSUETRIAGE_ environment"},
		{"bad duration", map[string]string{"ISSUETRIAGE_ACTION_TIMEOUT": "soon"}, "ISSUETRIAGE_ environment"},
		{"zero timeout", map[string]string{"ISSUETRIAGE_DEEP_DIVE_TIMEOUT": "0s"}, "ISSUETRIAGE_DEEP_DIVE_TIMEOUT"},
		{"poll too fast", map[string]string{"ISSUETRIAGE_DEEP_DIVE_POLL_INTERVAL": "10ms"}, "ISSUETRIAGE_DEEP_DIVE_POLL_INTERVAL"},
		{"bad repo", map[string]string{"ISSUETRIAGE_REPO": "just-a-name"}, "ISSUETRIAGE_REPO"},
		{"bad log level", map[string]string{"ISSUETRIAGE_LOG_LEVEL": "loud"}, "ISSUETRIAGE_LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
