package core

import (
	"context"

	"pkt.systems/layoutsync/schema"
)

// Engine is the transport-agnostic API for the layout synchronization
// engine: it owns the canonical in-memory workspace state, applies
// UI-originated mutations, and reconciles against the remote
// per-device-type document store.
type Engine interface {
	// Load resolves the initial layout through the device fallback
	// chain and seeds the canonical state.
	Load(ctx context.Context) error
	// Start launches the background scheduler: periodic pulls and the
	// debounced lock-engaged full flush.
	Start() error
	// Stop halts the scheduler. In-flight HTTP calls complete or fail
	// naturally; their results are discarded.
	Stop()

	Snapshot() schema.LayoutSnapshot
	Subscribe(listener func(schema.LayoutSnapshot)) (unsubscribe func())

	// ToggleEditLock flips the advisory edit lock. Engaging the lock
	// triggers a debounced full flush of the in-memory tab set.
	ToggleEditLock(ctx context.Context) (schema.ToggleEditLockResponse, error)
	// Flush pushes the entire in-memory tab set through the config
	// store and the write verification cycle, synchronously.
	Flush(ctx context.Context) error

	AddTab(ctx context.Context, req schema.AddTabRequest) (schema.AddTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	RenameTab(ctx context.Context, req schema.RenameTabRequest) (schema.RenameTabResponse, error)
	MoveTab(ctx context.Context, req schema.MoveTabRequest) (schema.MoveTabResponse, error)
	SetEditMode(ctx context.Context, req schema.SetEditModeRequest) (schema.SetEditModeResponse, error)
	AddComponent(ctx context.Context, req schema.AddComponentRequest) (schema.AddComponentResponse, error)
	RemoveComponent(ctx context.Context, req schema.RemoveComponentRequest) (schema.RemoveComponentResponse, error)
	UpdateComponentPosition(ctx context.Context, req schema.UpdateComponentPositionRequest) (schema.UpdateComponentPositionResponse, error)
	SetComponentProps(ctx context.Context, req schema.SetComponentPropsRequest) (schema.SetComponentPropsResponse, error)
	SaveLayout(ctx context.Context, req schema.SaveLayoutRequest) (schema.SaveLayoutResponse, error)

	// CopyTo copies the current layout to another identified user.
	CopyTo(ctx context.Context, req schema.CopyRequest) error
	// DeleteRemote removes the remote document for this device type.
	DeleteRemote(ctx context.Context) error
	// ResetCache evicts all locally cached snapshots.
	ResetCache() error
}
