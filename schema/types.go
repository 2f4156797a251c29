package schema

// UserID identifies a user in the system.
type UserID string

// SessionID identifies a browser or agent session.
type SessionID string

// TabID identifies a workspace tab.
type TabID string

// TabName is the user-facing name of a tab.
type TabName string

// ComponentID identifies a component instance within a tab.
type ComponentID string

// ComponentType identifies the kind of widget a component renders.
type ComponentType string

// DeviceType is the coarse client class a configuration document applies to.
type DeviceType string

const (
	// DeviceLaptop is the default desktop/laptop device class.
	DeviceLaptop DeviceType = "laptop"
	// DeviceMobile is the mobile device class.
	DeviceMobile DeviceType = "mobile"
	// DeviceBigscreen is the large-display device class.
	DeviceBigscreen DeviceType = "bigscreen"
)

// TabKind distinguishes user-composed tabs from fixed ones.
type TabKind string

const (
	// TabKindDynamic marks a tab whose grid the user composes.
	TabKindDynamic TabKind = "dynamic"
	// TabKindStatic marks a tab with a fixed component layout.
	TabKindStatic TabKind = "static"
)

// MemoryStrategy controls where a tab's transient state is kept.
type MemoryStrategy string

const (
	// MemoryLocal keeps tab state in the local session only.
	MemoryLocal MemoryStrategy = "local"
	// MemoryRemote keeps tab state in the remote document.
	MemoryRemote MemoryStrategy = "remote"
	// MemoryHybrid keeps tab state locally and mirrors it remotely.
	MemoryHybrid MemoryStrategy = "hybrid"
)

// DisplayMode is a component rendering hint carried in component props.
type DisplayMode string

// DisplayModeThumbnail pins a component to a fixed 4x1 footprint at
// persistence time regardless of any positional data written earlier.
const DisplayModeThumbnail DisplayMode = "thumbnail"

// DisplayModeProp is the props key holding a component's display mode.
const DisplayModeProp = "displayMode"
