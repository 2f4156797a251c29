package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/layoutsync/schema"
)

// Load reads configuration from the provided path. If path is empty,
// uses DefaultConfigPath. A missing file yields the defaults; a present
// file must carry the supported config_version and its required fields.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("sync.base_url", cfg.Sync.BaseURL)
	v.SetDefault("sync.device_type", cfg.Sync.DeviceType)
	v.SetDefault("sync.fallback_order", cfg.Sync.FallbackOrder)
	v.SetDefault("sync.pull_interval_seconds", cfg.Sync.PullIntervalSeconds)
	v.SetDefault("sync.flush_debounce_ms", cfg.Sync.FlushDebounceMillis)
	v.SetDefault("sync.verify_retries", cfg.Sync.VerifyRetries)
	v.SetDefault("sync.allowed_copy_domains", cfg.Sync.AllowedCopyDomains)
	v.SetDefault("sync.request_timeout_seconds", cfg.Sync.RequestTimeoutSecond)
	v.SetDefault("auth.token_file", cfg.Auth.TokenFile)
	v.SetDefault("auth.token_env", cfg.Auth.TokenEnv)
	v.SetDefault("auth.token_retries", cfg.Auth.TokenRetries)
	v.SetDefault("auth.token_retry_delay_ms", cfg.Auth.TokenRetryDelayMS)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.key_store_path", cfg.Cache.KeyStorePath)
	v.SetDefault("cache.max_entries", cfg.Cache.MaxEntries)
	v.SetDefault("cache.max_bytes", cfg.Cache.MaxBytes)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", cfg.Logging.Compress)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
		if !v.IsSet("sync.base_url") || strings.TrimSpace(v.GetString("sync.base_url")) == "" {
			return Config{}, fmt.Errorf("sync.base_url is required for config_version %d", CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	baseURL := strings.TrimSpace(cfg.Sync.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("sync.base_url must include scheme and host (e.g. https://example.com)")
		}
	}
	if _, err := schema.NormalizeDeviceType(cfg.Sync.DeviceType); err != nil {
		return fmt.Errorf("sync.device_type: %w", err)
	}
	for _, fallback := range cfg.Sync.FallbackOrder {
		if _, err := schema.NormalizeDeviceType(fallback); err != nil {
			return fmt.Errorf("sync.fallback_order: %w", err)
		}
	}
	basePath := strings.TrimSpace(cfg.HTTP.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Sync.BaseURL = expandEnv(cfg.Sync.BaseURL)
	cfg.Auth.TokenFile = expandEnv(cfg.Auth.TokenFile)
	cfg.Cache.Dir = expandEnv(cfg.Cache.Dir)
	cfg.Cache.KeyStorePath = expandEnv(cfg.Cache.KeyStorePath)
	cfg.Logging.File = expandEnv(cfg.Logging.File)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// EngineConfig maps the sync section onto the engine configuration.
func (c Config) EngineConfig() schema.EngineConfig {
	fallback := make([]schema.DeviceType, 0, len(c.Sync.FallbackOrder))
	current, _ := schema.NormalizeDeviceType(c.Sync.DeviceType)
	for _, dt := range c.Sync.FallbackOrder {
		normalized, err := schema.NormalizeDeviceType(dt)
		if err != nil || normalized == current {
			continue
		}
		fallback = append(fallback, normalized)
	}
	return schema.EngineConfig{
		DeviceType:         current,
		FallbackOrder:      fallback,
		PullInterval:       time.Duration(c.Sync.PullIntervalSeconds) * time.Second,
		FlushDebounce:      time.Duration(c.Sync.FlushDebounceMillis) * time.Millisecond,
		VerifyRetries:      c.Sync.VerifyRetries,
		AllowedCopyDomains: append([]string(nil), c.Sync.AllowedCopyDomains...),
	}
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
