package schema

import "time"

// HomeTabID is the reserved identifier of the non-closable home tab.
// It always occupies position 0 in a layout.
const HomeTabID TabID = "home"

// HomeComponentRef is the component reference rendered by the home tab.
const HomeComponentRef = "workspace.home"

const (
	// DynamicContainerRef is the generic container for dynamic tabs.
	DynamicContainerRef = "container.dynamic"
	// StaticContainerRef is the generic container for static tabs.
	StaticContainerRef = "container.static"
	// PlaceholderRef marks a tab record that never finished loading.
	// Records carrying it are rejected during normalization.
	PlaceholderRef = "placeholder"
)

const (
	// ThumbnailWidth is the pinned grid width for thumbnail components.
	ThumbnailWidth = 4
	// ThumbnailHeight is the pinned grid height for thumbnail components.
	ThumbnailHeight = 1
)

// GridPosition locates a component on a tab's grid.
type GridPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// ComponentInTab is a positioned, typed widget instance inside a tab.
type ComponentInTab struct {
	ID       ComponentID    `json:"id"`
	Type     ComponentType  `json:"type"`
	Position GridPosition   `json:"position"`
	Props    map[string]any `json:"props,omitempty"`
	ZIndex   *int           `json:"zIndex,omitempty"`
}

// DisplayMode returns the component's display mode from props, if any.
func (c ComponentInTab) DisplayMode() DisplayMode {
	if c.Props == nil {
		return ""
	}
	if mode, ok := c.Props[DisplayModeProp].(string); ok {
		return DisplayMode(mode)
	}
	return ""
}

// Tab is a named container in the user's workspace.
type Tab struct {
	ID             TabID            `json:"id"`
	Name           TabName          `json:"name"`
	ComponentRef   string           `json:"componentRef"`
	Kind           TabKind          `json:"kind"`
	Closable       bool             `json:"closable"`
	GridEnabled    bool             `json:"gridEnabled"`
	Components     []ComponentInTab `json:"components"`
	EditMode       bool             `json:"editMode,omitempty"`
	MemoryStrategy MemoryStrategy   `json:"memoryStrategy,omitempty"`
}

// Clone returns a deep copy of the tab.
func (t Tab) Clone() Tab {
	out := t
	if t.Components != nil {
		out.Components = make([]ComponentInTab, len(t.Components))
		for i, c := range t.Components {
			out.Components[i] = c.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the component.
func (c ComponentInTab) Clone() ComponentInTab {
	out := c
	if c.Props != nil {
		out.Props = make(map[string]any, len(c.Props))
		for k, v := range c.Props {
			out.Props[k] = v
		}
	}
	if c.ZIndex != nil {
		z := *c.ZIndex
		out.ZIndex = &z
	}
	return out
}

// CloneTabs returns a deep copy of a tab list.
func CloneTabs(tabs []Tab) []Tab {
	if tabs == nil {
		return nil
	}
	out := make([]Tab, len(tabs))
	for i, t := range tabs {
		out[i] = t.Clone()
	}
	return out
}

// HomeTab returns the built-in home tab.
func HomeTab() Tab {
	return Tab{
		ID:             HomeTabID,
		Name:           "Home",
		ComponentRef:   HomeComponentRef,
		Kind:           TabKindStatic,
		Closable:       false,
		GridEnabled:    false,
		Components:     []ComponentInTab{},
		MemoryStrategy: MemoryRemote,
	}
}

// DefaultLayout returns the built-in single-tab layout used when no
// remote document and no local snapshot can be resolved.
func DefaultLayout() []Tab {
	return []Tab{HomeTab()}
}

// SavedLayout is a named grid layout stored alongside the tab list.
// The engine round-trips saved layouts verbatim on writes.
type SavedLayout struct {
	Name    string           `json:"name"`
	TabID   TabID            `json:"tabId,omitempty"`
	Entries []ComponentInTab `json:"entries,omitempty"`
	SavedAt time.Time        `json:"savedAt,omitempty"`
}

// DeviceConfig is the per-(user, deviceType) configuration document.
type DeviceConfig struct {
	DeviceType DeviceType    `json:"deviceType"`
	Tabs       []Tab         `json:"tabs"`
	Layouts    []SavedLayout `json:"layouts,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
