package schema

import "time"

// LayoutEventType describes tab or component lifecycle changes.
type LayoutEventType string

const (
	// LayoutEventSeeded indicates the canonical state was (re)loaded.
	LayoutEventSeeded LayoutEventType = "seeded"
	// LayoutEventTabAdded indicates a tab was added.
	LayoutEventTabAdded LayoutEventType = "tab_added"
	// LayoutEventTabClosed indicates a tab was removed.
	LayoutEventTabClosed LayoutEventType = "tab_closed"
	// LayoutEventTabUpdated indicates a tab was renamed or reconfigured.
	LayoutEventTabUpdated LayoutEventType = "tab_updated"
	// LayoutEventTabMoved indicates a tab changed position.
	LayoutEventTabMoved LayoutEventType = "tab_moved"
	// LayoutEventComponentChanged indicates a component mutation.
	LayoutEventComponentChanged LayoutEventType = "component_changed"
)

// LayoutEvent represents a change to the canonical layout state.
type LayoutEvent struct {
	Type        LayoutEventType
	DeviceType  DeviceType
	TabID       TabID
	ComponentID ComponentID
	Tabs        []Tab
}

// SyncStatus is the per-tab (and per-flush) synchronization state.
type SyncStatus string

const (
	// SyncEditing marks dirty in-memory state not yet flushed.
	SyncEditing SyncStatus = "editing"
	// SyncFlushing marks a write in flight.
	SyncFlushing SyncStatus = "flushing"
	// SyncVerified marks a write confirmed by read-back.
	SyncVerified SyncStatus = "verified"
	// SyncUncertain marks a write whose read-back never matched.
	// Best-effort success; not escalated to a hard failure.
	SyncUncertain SyncStatus = "uncertain"
	// SyncFailed marks a transport failure; state stays dirty and is
	// retried on the next scheduler tick.
	SyncFailed SyncStatus = "failed"
)

// SyncEvent reports the outcome of a persistence attempt.
type SyncEvent struct {
	DeviceType DeviceType
	Status     SyncStatus
	Attempts   int
	Err        string
	UpdatedAt  time.Time
}

// NoticeLevel grades user-visible notices.
type NoticeLevel string

const (
	// NoticeInfo is an informational notice.
	NoticeInfo NoticeLevel = "info"
	// NoticeWarn is a degraded-operation notice.
	NoticeWarn NoticeLevel = "warn"
	// NoticeError is a user-actionable failure notice.
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible notification dispatched through the injected
// event sink instead of a UI-toolkit singleton.
type Notice struct {
	Level   NoticeLevel
	Message string
}
