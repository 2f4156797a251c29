package schema

// AddTabRequest creates a new closable tab.
type AddTabRequest struct {
	Name         TabName
	Kind         TabKind
	ComponentRef string
}

// AddTabResponse returns the created tab.
type AddTabResponse struct {
	Tab Tab
}

// CloseTabRequest removes a tab from the workspace.
type CloseTabRequest struct {
	TabID TabID
}

// CloseTabResponse reports the surviving tab order.
type CloseTabResponse struct {
	Closed bool
	Tabs   []Tab
}

// RenameTabRequest changes a tab's user-facing name.
type RenameTabRequest struct {
	TabID TabID
	Name  TabName
}

// RenameTabResponse returns the renamed tab.
type RenameTabResponse struct {
	Tab Tab
}

// MoveTabRequest repositions a tab within the workspace order.
type MoveTabRequest struct {
	TabID TabID
	Index int
}

// MoveTabResponse reports the new tab order.
type MoveTabResponse struct {
	Tabs []Tab
}

// SetEditModeRequest toggles a tab's grid-edit mode.
type SetEditModeRequest struct {
	TabID    TabID
	EditMode bool
}

// SetEditModeResponse returns the updated tab.
type SetEditModeResponse struct {
	Tab Tab
}

// AddComponentRequest places a component on a tab's grid.
type AddComponentRequest struct {
	TabID     TabID
	Component ComponentInTab
}

// AddComponentResponse returns the normalized component as stored.
type AddComponentResponse struct {
	Component ComponentInTab
}

// RemoveComponentRequest removes a component from a tab.
type RemoveComponentRequest struct {
	TabID       TabID
	ComponentID ComponentID
}

// RemoveComponentResponse reports whether a component was removed.
type RemoveComponentResponse struct {
	Removed bool
}

// UpdateComponentPositionRequest moves or resizes a component.
type UpdateComponentPositionRequest struct {
	TabID       TabID
	ComponentID ComponentID
	Position    GridPosition
}

// UpdateComponentPositionResponse returns the component as stored.
type UpdateComponentPositionResponse struct {
	Component ComponentInTab
}

// SetComponentPropsRequest replaces a component's props map.
type SetComponentPropsRequest struct {
	TabID       TabID
	ComponentID ComponentID
	Props       map[string]any
}

// SetComponentPropsResponse returns the component as stored.
type SetComponentPropsResponse struct {
	Component ComponentInTab
}

// SaveLayoutRequest snapshots a tab's current components under a name.
type SaveLayoutRequest struct {
	Name  string
	TabID TabID
}

// SaveLayoutResponse returns the saved layout.
type SaveLayoutResponse struct {
	Layout SavedLayout
}

// ToggleEditLockResponse reports the new advisory lock state.
type ToggleEditLockResponse struct {
	Unlocked bool
}
