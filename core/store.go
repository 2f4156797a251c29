package core

import (
	"sync"
	"time"

	"pkt.systems/layoutsync/schema"
)

// WorkspaceState is the engine's canonical in-memory state.
type WorkspaceState struct {
	Tabs []schema.Tab
	// Layouts are named saved layouts round-tripped verbatim on writes.
	Layouts []schema.SavedLayout
	// RemoteUpdatedAt is the last remote updatedAt observed for this
	// device type; the scheduler merges a pulled document only when
	// the remote value is newer.
	RemoteUpdatedAt time.Time
	Dirty           bool
	Sync            schema.SyncStatus
}

// Clone returns a deep copy of the state.
func (s WorkspaceState) Clone() WorkspaceState {
	out := s
	out.Tabs = schema.CloneTabs(s.Tabs)
	if s.Layouts != nil {
		out.Layouts = make([]schema.SavedLayout, len(s.Layouts))
		copy(out.Layouts, s.Layouts)
	}
	return out
}

// LayoutStore holds the canonical workspace state independent of any
// rendering layer. Mutate applies fn to a copy and commits it only
// when fn returns nil; listeners observe every committed state.
type LayoutStore interface {
	State() WorkspaceState
	Mutate(fn func(*WorkspaceState) error) (WorkspaceState, error)
	Subscribe(listener func(WorkspaceState)) (unsubscribe func())
}

type memoryStore struct {
	mu        sync.Mutex
	state     WorkspaceState
	nextSub   int
	listeners map[int]func(WorkspaceState)
}

// NewMemoryStore returns an empty in-memory layout store.
func NewMemoryStore() LayoutStore {
	return &memoryStore{listeners: make(map[int]func(WorkspaceState))}
}

func (m *memoryStore) State() WorkspaceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

func (m *memoryStore) Mutate(fn func(*WorkspaceState) error) (WorkspaceState, error) {
	m.mu.Lock()
	working := m.state.Clone()
	if err := fn(&working); err != nil {
		m.mu.Unlock()
		return WorkspaceState{}, err
	}
	m.state = working
	snapshot := working.Clone()
	listeners := make([]func(WorkspaceState), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()
	for _, l := range listeners {
		l(snapshot.Clone())
	}
	return snapshot, nil
}

func (m *memoryStore) Subscribe(listener func(WorkspaceState)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = listener
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}
