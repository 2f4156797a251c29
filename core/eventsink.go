package core

import "pkt.systems/layoutsync/schema"

// EventSink receives layout, sync, and notice events from the engine.
// Injected so notification dispatch stays decoupled from any UI
// toolkit.
type EventSink interface {
	OnLayoutEvent(event schema.LayoutEvent)
	OnSyncEvent(event schema.SyncEvent)
	OnNotice(notice schema.Notice)
}
