package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/layoutsync/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Sync          SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Auth          AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Cache         CacheConfig   `mapstructure:"cache" yaml:"cache"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 2

// SyncConfig controls the layout synchronization engine.
type SyncConfig struct {
	BaseURL              string   `mapstructure:"base_url" yaml:"base_url"`
	DeviceType           string   `mapstructure:"device_type" yaml:"device_type"`
	FallbackOrder        []string `mapstructure:"fallback_order" yaml:"fallback_order"`
	PullIntervalSeconds  int      `mapstructure:"pull_interval_seconds" yaml:"pull_interval_seconds"`
	FlushDebounceMillis  int      `mapstructure:"flush_debounce_ms" yaml:"flush_debounce_ms"`
	VerifyRetries        int      `mapstructure:"verify_retries" yaml:"verify_retries"`
	AllowedCopyDomains   []string `mapstructure:"allowed_copy_domains" yaml:"allowed_copy_domains"`
	RequestTimeoutSecond int      `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// AuthConfig controls bearer token acquisition. The token itself comes
// from an external provider; this only configures where to find it and
// how patiently to wait for it.
type AuthConfig struct {
	TokenFile         string `mapstructure:"token_file" yaml:"token_file"`
	TokenEnv          string `mapstructure:"token_env" yaml:"token_env"`
	TokenRetries      int    `mapstructure:"token_retries" yaml:"token_retries"`
	TokenRetryDelayMS int    `mapstructure:"token_retry_delay_ms" yaml:"token_retry_delay_ms"`
}

// CacheConfig controls the encrypted local snapshot cache.
type CacheConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir"`
	KeyStorePath string `mapstructure:"key_store_path" yaml:"key_store_path"`
	MaxEntries   int    `mapstructure:"max_entries" yaml:"max_entries"`
	MaxBytes     int64  `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// HTTPConfig configures the local HTTP surface for UI sessions.
type HTTPConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
}

// LoggingConfig controls optional rotating file logging alongside the
// process logger.
type LoggingConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Sync: SyncConfig{
			BaseURL:              "",
			DeviceType:           string(schema.DeviceLaptop),
			FallbackOrder:        []string{string(schema.DeviceBigscreen), string(schema.DeviceMobile)},
			PullIntervalSeconds:  int(schema.DefaultPullInterval.Seconds()),
			FlushDebounceMillis:  int(schema.DefaultFlushDebounce.Milliseconds()),
			VerifyRetries:        schema.DefaultVerifyRetries,
			AllowedCopyDomains:   []string{},
			RequestTimeoutSecond: 15,
		},
		Auth: AuthConfig{
			TokenFile:         filepath.Join(home, ".layoutsync", "token"),
			TokenEnv:          "LAYOUTSYNC_TOKEN",
			TokenRetries:      3,
			TokenRetryDelayMS: 500,
		},
		Cache: CacheConfig{
			Dir:          filepath.Join(home, ".layoutsync", "cache"),
			KeyStorePath: filepath.Join(home, ".layoutsync", "cache", "keys.bundle"),
			MaxEntries:   0,
			MaxBytes:     0,
		},
		HTTP: HTTPConfig{
			Addr:     "127.0.0.1:27490",
			BasePath: "",
		},
		Logging: LoggingConfig{
			File:       "",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".layoutsync", "config.yaml"), nil
}
