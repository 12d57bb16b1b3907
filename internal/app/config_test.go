package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7380, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, time.Second, cfg.Connection.BackoffMin)
	require.Equal(t, 30*time.Second, cfg.Connection.BackoffMax)
	require.Equal(t, 3, cfg.Connection.FallbackAfter)
	require.Equal(t, 10*time.Second, cfg.Connection.PollInterval)
	require.Equal(t, 3, cfg.Notifications.MaxToasts)
	require.Equal(t, 30*time.Second, cfg.Notifications.ToastWindow)
	require.Equal(t, 10*time.Minute, cfg.Optimistic.TTL)
	require.Equal(t, 250*time.Millisecond, cfg.Optimistic.Debounce)
	require.Equal(t, time.Hour, cfg.Storage.ProposalMaxAge)
	require.Equal(t, 24*time.Hour, cfg.Storage.CompletionMaxAge)
	require.Equal(t, 100, cfg.Storage.MaxProposals)
	require.Equal(t, 50, cfg.Storage.MaxAuditRecords)
	require.Equal(t, 200, cfg.Storage.MaxCompletions)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
server:
  port: 9000
marketplace:
  base_url: https://market.example.com
  user_id: user-42
connection:
  heartbeat_interval: 5s
  fallback_after: 5
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "https://market.example.com", cfg.Marketplace.BaseURL)
	require.Equal(t, 5*time.Second, cfg.Connection.HeartbeatInterval)
	require.Equal(t, 5, cfg.Connection.FallbackAfter)
	// untouched values keep defaults
	require.Equal(t, 30*time.Second, cfg.Connection.BackoffMax)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	// defaults lack marketplace coordinates
	require.Error(t, cfg.Validate())

	cfg.Marketplace.BaseURL = "https://market.example.com"
	cfg.Marketplace.UserID = "user-1"
	require.NoError(t, cfg.Validate())

	cfg.Connection.BackoffMax = cfg.Connection.BackoffMin / 2
	require.Error(t, cfg.Validate())
}
