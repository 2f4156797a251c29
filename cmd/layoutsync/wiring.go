package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"pkt.systems/layoutsync/configstore"
	"pkt.systems/layoutsync/internal/appconfig"
	"pkt.systems/layoutsync/internal/localcache"
	"pkt.systems/pslog"
)

// tokenProvider sources the bearer token from the configured env var
// first, then the token file. The surrounding client retries with
// backoff, so "not yet" is a plain error here.
func tokenProvider(cfg appconfig.AuthConfig) configstore.TokenProvider {
	return func(ctx context.Context) (string, error) {
		if cfg.TokenEnv != "" {
			if token := strings.TrimSpace(os.Getenv(cfg.TokenEnv)); token != "" {
				return token, nil
			}
		}
		if cfg.TokenFile != "" {
			data, err := os.ReadFile(cfg.TokenFile)
			if err == nil {
				if token := strings.TrimSpace(string(data)); token != "" {
					return token, nil
				}
			} else if !os.IsNotExist(err) {
				return "", err
			}
		}
		return "", errors.New("bearer token not available")
	}
}

func newStoreClient(cfg appconfig.Config, logger pslog.Logger) (*configstore.Client, error) {
	timeout := time.Duration(cfg.Sync.RequestTimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return configstore.New(configstore.Options{
		BaseURL:         cfg.Sync.BaseURL,
		TokenProvider:   tokenProvider(cfg.Auth),
		HTTPClient:      &http.Client{Timeout: timeout},
		TokenRetries:    cfg.Auth.TokenRetries,
		TokenRetryDelay: time.Duration(cfg.Auth.TokenRetryDelayMS) * time.Millisecond,
		AllowedDomains:  cfg.Sync.AllowedCopyDomains,
		Logger:          logger,
	})
}

func newSnapshotCache(cfg appconfig.CacheConfig, logger pslog.Logger) (*localcache.Cache, error) {
	return localcache.New(localcache.Options{
		Dir:          cfg.Dir,
		KeyStorePath: cfg.KeyStorePath,
		MaxEntries:   cfg.MaxEntries,
		MaxBytes:     cfg.MaxBytes,
		Logger:       logger,
	})
}
