package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the swapsync agent.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Marketplace   MarketplaceConfig   `mapstructure:"marketplace"`
	Connection    ConnectionConfig    `mapstructure:"connection"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Optimistic    OptimisticConfig    `mapstructure:"optimistic"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

// ServerConfig configures the local diagnostics HTTP listener.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// MarketplaceConfig locates the booking-swap marketplace backend.
type MarketplaceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	StreamURL string        `mapstructure:"stream_url"`
	Token     string        `mapstructure:"token"`
	UserID    string        `mapstructure:"user_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ConnectionConfig tunes the realtime channel manager.
type ConnectionConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	BackoffMin        time.Duration `mapstructure:"backoff_min"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	FallbackAfter     int           `mapstructure:"fallback_after"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	ErrorRingSize     int           `mapstructure:"error_ring_size"`
}

// NotificationsConfig tunes the notification store and toast lifecycle.
type NotificationsConfig struct {
	MaxToasts   int           `mapstructure:"max_toasts"`
	ToastWindow time.Duration `mapstructure:"toast_window"`
	PageSize    int           `mapstructure:"page_size"`
}

// OptimisticConfig tunes the optimistic update layer.
type OptimisticConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// StorageConfig describes the durable local snapshot store.
type StorageConfig struct {
	Driver           string        `mapstructure:"driver"`
	Path             string        `mapstructure:"path"`
	ProposalMaxAge   time.Duration `mapstructure:"proposal_max_age"`
	CompletionMaxAge time.Duration `mapstructure:"completion_max_age"`
	MaxProposals     int           `mapstructure:"max_proposals"`
	MaxAuditRecords  int           `mapstructure:"max_audit_records"`
	MaxCompletions   int           `mapstructure:"max_completions"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
	LogTail    int              `mapstructure:"log_tail"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises agent configuration using Viper with sensible
// defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SWAPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate rejects configurations the agent cannot start with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if strings.TrimSpace(c.Marketplace.BaseURL) == "" {
		return errors.New("config: marketplace.base_url must be configured")
	}
	if strings.TrimSpace(c.Marketplace.UserID) == "" {
		return errors.New("config: marketplace.user_id must be configured")
	}
	if c.Connection.BackoffMin <= 0 || c.Connection.BackoffMax < c.Connection.BackoffMin {
		return errors.New("config: connection backoff bounds are invalid")
	}
	if c.Connection.FallbackAfter <= 0 {
		return errors.New("config: connection.fallback_after must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 7380)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("marketplace.timeout", "10s")

	v.SetDefault("connection.heartbeat_interval", "30s")
	v.SetDefault("connection.backoff_min", "1s")
	v.SetDefault("connection.backoff_max", "30s")
	v.SetDefault("connection.fallback_after", 3)
	v.SetDefault("connection.poll_interval", "10s")
	v.SetDefault("connection.error_ring_size", 25)

	v.SetDefault("notifications.max_toasts", 3)
	v.SetDefault("notifications.toast_window", "30s")
	v.SetDefault("notifications.page_size", 25)

	v.SetDefault("optimistic.ttl", "10m")
	v.SetDefault("optimistic.debounce", "250ms")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/swapsync.sqlite")
	v.SetDefault("storage.proposal_max_age", "1h")
	v.SetDefault("storage.completion_max_age", "24h")
	v.SetDefault("storage.max_proposals", 100)
	v.SetDefault("storage.max_audit_records", 50)
	v.SetDefault("storage.max_completions", 200)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.log_tail", 200)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
