package core

import (
	"context"

	"pkt.systems/layoutsync/schema"
	"pkt.systems/pslog"
)

// ConfigStore is the remote per-device-type document endpoint. A
// missing document is schema.ErrNotFound, which is not a failure; it
// triggers the device fallback chain.
type ConfigStore interface {
	Get(ctx context.Context, deviceType schema.DeviceType) (schema.DeviceConfig, error)
	Put(ctx context.Context, deviceType schema.DeviceType, tabs []schema.Tab, layouts []schema.SavedLayout, headers map[string]string) error
	Delete(ctx context.Context, deviceType schema.DeviceType, headers map[string]string) error
	CopyTo(ctx context.Context, req schema.CopyRequest, headers map[string]string) error
}

// SnapshotCache stores the last known layout per device type so the
// resolver can fall back to it when every remote document misses.
type SnapshotCache interface {
	Load(deviceType schema.DeviceType) (schema.DeviceConfig, bool, error)
	Store(deviceType schema.DeviceType, doc schema.DeviceConfig) error
	Reset() error
}

// EngineDeps captures dependencies for the sync engine. Store is
// required; the rest are optional.
type EngineDeps struct {
	Store  ConfigStore
	Cache  SnapshotCache
	Layout LayoutStore
	Sink   EventSink
	Logger pslog.Logger
}
