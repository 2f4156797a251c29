package logx

import (
	"context"

	"pkt.systems/layoutsync/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	deviceKey contextKey = iota
	tabKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithDevice annotates the logger with the device type if present.
func WithDevice(ctx context.Context, deviceType schema.DeviceType) pslog.Logger {
	log := pslog.Ctx(ctx)
	if deviceType != "" {
		if current, ok := ctx.Value(deviceKey).(schema.DeviceType); ok && current == deviceType {
			return log
		}
		log = log.With("device", deviceType)
	}
	return log
}

// WithTab annotates the logger with the tab id if present.
func WithTab(ctx context.Context, tabID schema.TabID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if tabID != "" {
		if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
			return log
		}
		log = log.With("tab", tabID)
	}
	return log
}

// WithDeviceTab annotates the logger with device and tab identifiers.
func WithDeviceTab(ctx context.Context, deviceType schema.DeviceType, tabID schema.TabID) pslog.Logger {
	log := WithDevice(ctx, deviceType)
	if tabID != "" {
		if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
			return log
		}
		log = log.With("tab", tabID)
	}
	return log
}

// WithSession annotates the logger with a session id when available.
func WithSession(log pslog.Logger, sessionID schema.SessionID) pslog.Logger {
	if sessionID != "" {
		log = log.With("session", sessionID)
	}
	return log
}

// ContextWithDevice stores a device marker on the context for log
// de-duplication.
func ContextWithDevice(ctx context.Context, deviceType schema.DeviceType) context.Context {
	if deviceType == "" {
		return ctx
	}
	return context.WithValue(ctx, deviceKey, deviceType)
}

// ContextWithTab stores a tab marker on the context for log
// de-duplication.
func ContextWithTab(ctx context.Context, tabID schema.TabID) context.Context {
	if tabID == "" {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}

// ContextWithDeviceLogger attaches the logger and device marker to the
// context.
func ContextWithDeviceLogger(ctx context.Context, log pslog.Logger, deviceType schema.DeviceType) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithDevice(ctx, deviceType)
}
