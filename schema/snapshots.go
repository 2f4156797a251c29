package schema

import "time"

// LayoutSnapshot is a read-only view of the engine's canonical state
// for transports and UI sessions.
type LayoutSnapshot struct {
	DeviceType DeviceType    `json:"deviceType"`
	Tabs       []Tab         `json:"tabs"`
	Layouts    []SavedLayout `json:"layouts,omitempty"`
	Unlocked   bool          `json:"unlocked"`
	Dirty      bool          `json:"dirty"`
	SyncStatus SyncStatus    `json:"syncStatus,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
