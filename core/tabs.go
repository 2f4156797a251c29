package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"pkt.systems/layoutsync/internal/logx"
	"pkt.systems/layoutsync/schema"
)

// mutateTabs applies a validated mutation to the canonical state,
// marks it dirty, emits the layout event, and issues the write unless
// the advisory lock suppresses it. Validation failures reject before
// any state change.
func (e *engine) mutateTabs(event schema.LayoutEvent, fn func(ws *WorkspaceState) error) (WorkspaceState, error) {
	state, err := e.layout.Mutate(func(ws *WorkspaceState) error {
		if err := fn(ws); err != nil {
			return err
		}
		ws.Dirty = true
		ws.Sync = schema.SyncEditing
		return nil
	})
	if err != nil {
		return WorkspaceState{}, err
	}
	event.DeviceType = e.cfg.DeviceType
	event.Tabs = state.Tabs
	e.emitLayout(event)
	e.maybePersist()
	return state, nil
}

func findTab(tabs []schema.Tab, id schema.TabID) int {
	for i := range tabs {
		if tabs[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *engine) AddTab(ctx context.Context, req schema.AddTabRequest) (schema.AddTabResponse, error) {
	if ctx == nil {
		return schema.AddTabResponse{}, errors.New("missing context")
	}
	name := schema.TabName(strings.TrimSpace(string(req.Name)))
	if err := schema.ValidateTabName(name); err != nil {
		return schema.AddTabResponse{}, err
	}
	kind := req.Kind
	if kind == "" {
		kind = schema.TabKindDynamic
	}
	ref := strings.TrimSpace(req.ComponentRef)
	if ref == "" {
		if kind == schema.TabKindDynamic {
			ref = schema.DynamicContainerRef
		} else {
			ref = schema.StaticContainerRef
		}
	}
	created := schema.Tab{
		ID:             schema.TabID(newID()),
		Name:           name,
		ComponentRef:   ref,
		Kind:           kind,
		Closable:       true,
		GridEnabled:    kind == schema.TabKindDynamic,
		Components:     []schema.ComponentInTab{},
		MemoryStrategy: schema.MemoryLocal,
	}
	log := logx.WithDeviceTab(ctx, e.cfg.DeviceType, created.ID)
	_, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventTabAdded, TabID: created.ID}, func(ws *WorkspaceState) error {
		for _, t := range ws.Tabs {
			if t.Name == name {
				return schema.ErrDuplicateTabName
			}
		}
		ws.Tabs = append(ws.Tabs, created.Clone())
		return nil
	})
	if err != nil {
		log.Warn("tab add rejected", "name", name, "err", err)
		return schema.AddTabResponse{}, err
	}
	log.Info("tab added", "name", name, "kind", kind)
	return schema.AddTabResponse{Tab: created}, nil
}

// CloseTab removes a tab. The sole remaining tab and tabs marked
// non-closable are protected: state is unchanged and no network call
// is made.
func (e *engine) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	if ctx == nil {
		return schema.CloseTabResponse{}, errors.New("missing context")
	}
	log := logx.WithDeviceTab(ctx, e.cfg.DeviceType, req.TabID)
	state, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventTabClosed, TabID: req.TabID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		if !ws.Tabs[idx].Closable {
			return schema.ErrTabNotClosable
		}
		if len(ws.Tabs) == 1 {
			return schema.ErrLastTab
		}
		ws.Tabs = append(ws.Tabs[:idx], ws.Tabs[idx+1:]...)
		return nil
	})
	if err != nil {
		if errors.Is(err, schema.ErrTabNotClosable) || errors.Is(err, schema.ErrLastTab) {
			log.Debug("tab close is a no-op", "err", err)
			return schema.CloseTabResponse{Closed: false, Tabs: e.layout.State().Tabs}, err
		}
		return schema.CloseTabResponse{}, err
	}
	log.Info("tab closed")
	return schema.CloseTabResponse{Closed: true, Tabs: state.Tabs}, nil
}

func (e *engine) RenameTab(ctx context.Context, req schema.RenameTabRequest) (schema.RenameTabResponse, error) {
	if ctx == nil {
		return schema.RenameTabResponse{}, errors.New("missing context")
	}
	name := schema.TabName(strings.TrimSpace(string(req.Name)))
	if err := schema.ValidateTabName(name); err != nil {
		return schema.RenameTabResponse{}, err
	}
	log := logx.WithDeviceTab(ctx, e.cfg.DeviceType, req.TabID)
	var renamed schema.Tab
	_, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventTabUpdated, TabID: req.TabID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		for i, t := range ws.Tabs {
			if i != idx && t.Name == name {
				return schema.ErrDuplicateTabName
			}
		}
		ws.Tabs[idx].Name = name
		renamed = ws.Tabs[idx].Clone()
		return nil
	})
	if err != nil {
		log.Warn("tab rename rejected", "name", name, "err", err)
		return schema.RenameTabResponse{}, err
	}
	log.Info("tab renamed", "name", name)
	return schema.RenameTabResponse{Tab: renamed}, nil
}

// MoveTab repositions a tab. The home tab is pinned at position 0 and
// cannot move; other tabs are clamped into positions after it.
func (e *engine) MoveTab(ctx context.Context, req schema.MoveTabRequest) (schema.MoveTabResponse, error) {
	if ctx == nil {
		return schema.MoveTabResponse{}, errors.New("missing context")
	}
	if req.TabID == schema.HomeTabID {
		return schema.MoveTabResponse{}, schema.ErrInvalidRequest
	}
	log := logx.WithDeviceTab(ctx, e.cfg.DeviceType, req.TabID)
	state, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventTabMoved, TabID: req.TabID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		target := req.Index
		if target < 1 {
			target = 1
		}
		if target > len(ws.Tabs)-1 {
			target = len(ws.Tabs) - 1
		}
		tab := ws.Tabs[idx]
		ws.Tabs = append(ws.Tabs[:idx], ws.Tabs[idx+1:]...)
		rest := append([]schema.Tab{}, ws.Tabs[target:]...)
		ws.Tabs = append(append(ws.Tabs[:target], tab), rest...)
		return nil
	})
	if err != nil {
		return schema.MoveTabResponse{}, err
	}
	log.Info("tab moved", "index", req.Index)
	return schema.MoveTabResponse{Tabs: state.Tabs}, nil
}

func (e *engine) SetEditMode(ctx context.Context, req schema.SetEditModeRequest) (schema.SetEditModeResponse, error) {
	if ctx == nil {
		return schema.SetEditModeResponse{}, errors.New("missing context")
	}
	var updated schema.Tab
	_, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventTabUpdated, TabID: req.TabID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		ws.Tabs[idx].EditMode = req.EditMode
		updated = ws.Tabs[idx].Clone()
		return nil
	})
	if err != nil {
		return schema.SetEditModeResponse{}, err
	}
	return schema.SetEditModeResponse{Tab: updated}, nil
}

// SaveLayout snapshots a tab's current components under a name. A
// layout saved under an existing name replaces it.
func (e *engine) SaveLayout(ctx context.Context, req schema.SaveLayoutRequest) (schema.SaveLayoutResponse, error) {
	if ctx == nil {
		return schema.SaveLayoutResponse{}, errors.New("missing context")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return schema.SaveLayoutResponse{}, schema.ErrInvalidRequest
	}
	log := logx.WithDeviceTab(ctx, e.cfg.DeviceType, req.TabID)
	var saved schema.SavedLayout
	_, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventTabUpdated, TabID: req.TabID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		entries := make([]schema.ComponentInTab, len(ws.Tabs[idx].Components))
		for i, c := range ws.Tabs[idx].Components {
			entries[i] = c.Clone()
		}
		saved = schema.SavedLayout{Name: name, TabID: req.TabID, Entries: entries, SavedAt: time.Now().UTC()}
		for i, l := range ws.Layouts {
			if l.Name == name {
				ws.Layouts[i] = saved
				return nil
			}
		}
		ws.Layouts = append(ws.Layouts, saved)
		return nil
	})
	if err != nil {
		return schema.SaveLayoutResponse{}, err
	}
	log.Info("layout saved", "name", name)
	return schema.SaveLayoutResponse{Layout: saved}, nil
}
