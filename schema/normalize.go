package schema

import (
	"regexp"
	"strings"
)

// reservedNamePattern matches auto-generated tab names ("Tab <uuid>" or
// "Tab <hex id>"). Such names indicate a record that was persisted before
// the user ever named it, not valid data.
var reservedNamePattern = regexp.MustCompile(`^Tab [0-9a-fA-F-]{8,36}$`)

// loadingPlaceholders are transient names written by interrupted sessions.
var loadingPlaceholders = map[string]struct{}{
	"Loading…":   {},
	"Loading...": {},
}

// IsReservedTabName reports whether name matches a reserved
// auto-generated pattern and must be rejected during load.
func IsReservedTabName(name TabName) bool {
	trimmed := strings.TrimSpace(string(name))
	if _, ok := loadingPlaceholders[trimmed]; ok {
		return true
	}
	return reservedNamePattern.MatchString(trimmed)
}

// ValidateTabName rejects empty and reserved tab names.
func ValidateTabName(name TabName) error {
	if strings.TrimSpace(string(name)) == "" {
		return ErrInvalidTabName
	}
	if IsReservedTabName(name) {
		return ErrReservedTabName
	}
	return nil
}

// NormalizeDeviceType validates and normalizes a device type value.
// Allowed values: laptop, mobile, bigscreen.
func NormalizeDeviceType(value string) (DeviceType, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	switch DeviceType(trimmed) {
	case DeviceLaptop, DeviceMobile, DeviceBigscreen:
		return DeviceType(trimmed), nil
	default:
		return "", ErrInvalidDeviceType
	}
}

// DropReason classifies why normalization discarded a record.
type DropReason string

const (
	// DropDuplicateTab marks a tab discarded as a duplicate id.
	DropDuplicateTab DropReason = "duplicate_tab"
	// DropDuplicateComponent marks a component discarded as a duplicate id.
	DropDuplicateComponent DropReason = "duplicate_component"
	// DropReservedName marks a tab discarded for a placeholder name.
	DropReservedName DropReason = "reserved_name"
	// DropPlaceholderRef marks a tab discarded for a placeholder componentRef.
	DropPlaceholderRef DropReason = "placeholder_ref"
	// DropMisplacedHome marks a home-tab record found outside position 0.
	DropMisplacedHome DropReason = "misplaced_home"
	// DropEmptyID marks a record without an id.
	DropEmptyID DropReason = "empty_id"
)

// DroppedRecord describes one record discarded during normalization.
type DroppedRecord struct {
	TabID       TabID
	ComponentID ComponentID
	Reason      DropReason
}

// NormalizeReport lists the records normalization discarded so callers
// can log them. Normalization itself stays pure.
type NormalizeReport struct {
	Dropped []DroppedRecord
}

// Clean reports whether normalization discarded nothing.
func (r NormalizeReport) Clean() bool { return len(r.Dropped) == 0 }

// NormalizeTabs produces a canonical, deduplicated, schema-complete tab
// list from arbitrary input. It is idempotent: applying it to its own
// output changes nothing and reports no drops.
//
// Steps, in order: deduplicate tabs by id (first occurrence wins), fill
// defaults, repair component positions, then drop records carrying
// reserved placeholder names, the placeholder componentRef, or the
// reserved home-tab id outside position 0.
func NormalizeTabs(tabs []Tab) ([]Tab, NormalizeReport) {
	report := NormalizeReport{}
	seen := make(map[TabID]struct{}, len(tabs))
	out := make([]Tab, 0, len(tabs))

	for _, raw := range tabs {
		if strings.TrimSpace(string(raw.ID)) == "" {
			report.Dropped = append(report.Dropped, DroppedRecord{Reason: DropEmptyID})
			continue
		}
		if _, dup := seen[raw.ID]; dup {
			report.Dropped = append(report.Dropped, DroppedRecord{TabID: raw.ID, Reason: DropDuplicateTab})
			continue
		}
		seen[raw.ID] = struct{}{}

		tab := raw.Clone()
		fillTabDefaults(&tab)
		tab.Components = normalizeComponents(tab.ID, tab.Components, &report)

		if tab.ID == HomeTabID && len(out) != 0 {
			report.Dropped = append(report.Dropped, DroppedRecord{TabID: tab.ID, Reason: DropMisplacedHome})
			continue
		}
		if IsReservedTabName(tab.Name) || string(tab.Name) == "Tab "+string(tab.ID) {
			report.Dropped = append(report.Dropped, DroppedRecord{TabID: tab.ID, Reason: DropReservedName})
			continue
		}
		if tab.ComponentRef == PlaceholderRef {
			report.Dropped = append(report.Dropped, DroppedRecord{TabID: tab.ID, Reason: DropPlaceholderRef})
			continue
		}
		out = append(out, tab)
	}
	return out, report
}

// EnsureHomeTab guarantees the layout carries the non-closable home tab
// at position 0.
func EnsureHomeTab(tabs []Tab) []Tab {
	for i, tab := range tabs {
		if tab.ID != HomeTabID {
			continue
		}
		if i == 0 {
			tabs[0].Closable = false
			return tabs
		}
		// NormalizeTabs drops misplaced home records, but callers may
		// hand us unnormalized input.
		rest := append(append([]Tab{}, tabs[:i]...), tabs[i+1:]...)
		home := tab
		home.Closable = false
		return append([]Tab{home}, rest...)
	}
	return append([]Tab{HomeTab()}, tabs...)
}

func fillTabDefaults(tab *Tab) {
	if tab.Kind != TabKindStatic {
		tab.Kind = TabKindDynamic
	}
	if strings.TrimSpace(string(tab.Name)) == "" {
		// Synthetic names indicate corrupt input; the record is then
		// rejected by the reserved-name filter.
		tab.Name = TabName("Tab " + string(tab.ID))
	}
	if strings.TrimSpace(tab.ComponentRef) == "" {
		if tab.Kind == TabKindDynamic {
			tab.ComponentRef = DynamicContainerRef
		} else {
			tab.ComponentRef = StaticContainerRef
		}
	}
	if tab.Components == nil {
		tab.Components = []ComponentInTab{}
	}
	switch tab.MemoryStrategy {
	case MemoryLocal, MemoryRemote, MemoryHybrid:
	default:
		tab.MemoryStrategy = MemoryRemote
	}
	if tab.ID == HomeTabID {
		tab.Closable = false
	}
}

func normalizeComponents(tabID TabID, components []ComponentInTab, report *NormalizeReport) []ComponentInTab {
	out := make([]ComponentInTab, 0, len(components))
	seen := make(map[ComponentID]struct{}, len(components))
	for _, raw := range components {
		if strings.TrimSpace(string(raw.ID)) == "" {
			report.Dropped = append(report.Dropped, DroppedRecord{TabID: tabID, Reason: DropEmptyID})
			continue
		}
		if _, dup := seen[raw.ID]; dup {
			report.Dropped = append(report.Dropped, DroppedRecord{TabID: tabID, ComponentID: raw.ID, Reason: DropDuplicateComponent})
			continue
		}
		seen[raw.ID] = struct{}{}
		out = append(out, NormalizeComponent(raw))
	}
	return out
}

// NormalizeComponent clamps a component's position to non-negative
// integers and pins thumbnail footprints to the fixed 4x1 size.
func NormalizeComponent(component ComponentInTab) ComponentInTab {
	c := component
	if c.Position.X < 0 {
		c.Position.X = 0
	}
	if c.Position.Y < 0 {
		c.Position.Y = 0
	}
	if c.Position.W < 1 {
		c.Position.W = 1
	}
	if c.Position.H < 1 {
		c.Position.H = 1
	}
	if c.DisplayMode() == DisplayModeThumbnail {
		c.Position.W = ThumbnailWidth
		c.Position.H = ThumbnailHeight
	}
	return c
}

// ValidatePosition rejects grid positions with non-positive dimensions.
func ValidatePosition(pos GridPosition) error {
	if pos.X < 0 || pos.Y < 0 || pos.W < 1 || pos.H < 1 {
		return ErrInvalidPosition
	}
	return nil
}

// ValidateTargetEmail checks a copy-to target against the allowed
// organizational domains. The check runs client-side before any network
// request is issued.
func ValidateTargetEmail(email string, allowedDomains []string) error {
	trimmed := strings.TrimSpace(strings.ToLower(email))
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return ErrInvalidTargetEmail
	}
	domain := trimmed[at+1:]
	for _, allowed := range allowedDomains {
		if domain == strings.TrimSpace(strings.ToLower(allowed)) {
			return nil
		}
	}
	return ErrInvalidTargetEmail
}
