package schema

import (
	"errors"
	"time"
)

// EngineConfig defines defaults and limits for the sync engine.
type EngineConfig struct {
	// DeviceType is the detected device class for this process.
	DeviceType DeviceType
	// FallbackOrder lists the device types tried when the current
	// device's document is missing or empty.
	FallbackOrder []DeviceType
	// PullInterval is the periodic background pull cadence.
	PullInterval time.Duration
	// FlushDebounce delays the lock-engaged full flush so a
	// just-completed per-tab save can settle first.
	FlushDebounce time.Duration
	// VerifyRetries caps VerificationGuard re-puts after a mismatch.
	VerifyRetries int
	// AllowedCopyDomains lists organizational domains accepted by the
	// copy-to operation.
	AllowedCopyDomains []string
	// SessionID identifies this process in edit-lock headers.
	// Generated when empty.
	SessionID SessionID
}

const (
	// DefaultPullInterval is the default background pull cadence.
	DefaultPullInterval = 30 * time.Second
	// DefaultFlushDebounce is the default lock-engaged flush delay.
	DefaultFlushDebounce = 750 * time.Millisecond
	// DefaultVerifyRetries bounds re-puts after a verification mismatch.
	DefaultVerifyRetries = 1
)

// DefaultFallbackOrder returns the device types tried after current,
// in order. Devices commonly share layouts; a bigscreen layout is often
// a reasonable laptop fallback.
func DefaultFallbackOrder(current DeviceType) []DeviceType {
	all := []DeviceType{DeviceLaptop, DeviceBigscreen, DeviceMobile}
	out := make([]DeviceType, 0, len(all)-1)
	for _, dt := range all {
		if dt != current {
			out = append(out, dt)
		}
	}
	return out
}

// NormalizeEngineConfig applies defaults and validates the config.
func NormalizeEngineConfig(cfg EngineConfig) (EngineConfig, error) {
	deviceType, err := NormalizeDeviceType(string(cfg.DeviceType))
	if err != nil {
		return EngineConfig{}, err
	}
	cfg.DeviceType = deviceType
	if len(cfg.FallbackOrder) == 0 {
		cfg.FallbackOrder = DefaultFallbackOrder(deviceType)
	}
	for i, dt := range cfg.FallbackOrder {
		normalized, err := NormalizeDeviceType(string(dt))
		if err != nil {
			return EngineConfig{}, err
		}
		if normalized == deviceType {
			return EngineConfig{}, errors.New("fallback order must not include the current device type")
		}
		cfg.FallbackOrder[i] = normalized
	}
	if cfg.PullInterval <= 0 {
		cfg.PullInterval = DefaultPullInterval
	}
	if cfg.FlushDebounce <= 0 {
		cfg.FlushDebounce = DefaultFlushDebounce
	}
	if cfg.VerifyRetries < 0 {
		cfg.VerifyRetries = DefaultVerifyRetries
	}
	if cfg.VerifyRetries == 0 {
		cfg.VerifyRetries = DefaultVerifyRetries
	}
	return cfg, nil
}
