package core

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/layoutsync/schema"
)

func TestCloseTabProtections(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	ctx := context.Background()
	if err := te.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := te.ToggleEditLock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	// the home tab is non-closable: state unchanged, no network call
	resp, err := te.CloseTab(ctx, schema.CloseTabRequest{TabID: schema.HomeTabID})
	if !errors.Is(err, schema.ErrTabNotClosable) {
		t.Fatalf("expected ErrTabNotClosable, got %v", err)
	}
	if resp.Closed {
		t.Fatalf("expected close to be a no-op")
	}
	if got := te.store.putCount(); got != 0 {
		t.Fatalf("expected no network call for protected close, got %d puts", got)
	}
	if got := len(te.Snapshot().Tabs); got != 1 {
		t.Fatalf("expected state unchanged, got %d tabs", got)
	}
}

func TestCloseLastTabIsNoOp(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	ctx := context.Background()
	eng := te.Engine.(*engine)
	if _, err := eng.layout.Mutate(func(ws *WorkspaceState) error {
		ws.Tabs = []schema.Tab{namedTab("solo", "Solo")}
		return nil
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	_, err := te.CloseTab(ctx, schema.CloseTabRequest{TabID: "solo"})
	if !errors.Is(err, schema.ErrLastTab) {
		t.Fatalf("expected ErrLastTab, got %v", err)
	}
	if got := len(te.Snapshot().Tabs); got != 1 {
		t.Fatalf("expected the sole tab to survive, got %d tabs", got)
	}
	if got := te.store.putCount(); got != 0 {
		t.Fatalf("expected no network call, got %d puts", got)
	}
}

func TestCloseTabRemovesAndPersistsUnlocked(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	ctx := context.Background()
	if err := te.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	added, err := te.AddTab(ctx, schema.AddTabRequest{Name: "Scratch"})
	if err != nil {
		t.Fatalf("add tab: %v", err)
	}
	if _, err := te.ToggleEditLock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	resp, err := te.CloseTab(ctx, schema.CloseTabRequest{TabID: added.Tab.ID})
	if err != nil {
		t.Fatalf("close tab: %v", err)
	}
	if !resp.Closed || len(resp.Tabs) != 1 {
		t.Fatalf("expected single surviving tab, got closed=%v tabs=%d", resp.Closed, len(resp.Tabs))
	}
	waitSync(t, te.sink.syncCh, schema.SyncVerified)
}

func TestAddTabRejectsDuplicateAndReservedNames(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	ctx := context.Background()
	if err := te.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := te.AddTab(ctx, schema.AddTabRequest{Name: "Trading"}); err != nil {
		t.Fatalf("add tab: %v", err)
	}
	cases := []struct {
		name    string
		tabName schema.TabName
		wantErr error
	}{
		{name: "duplicate", tabName: "Trading", wantErr: schema.ErrDuplicateTabName},
		{name: "empty", tabName: "   ", wantErr: schema.ErrInvalidTabName},
		{name: "reserved placeholder", tabName: "Loading…", wantErr: schema.ErrReservedTabName},
		{name: "reserved synthetic", tabName: "Tab 0a1b2c3d", wantErr: schema.ErrReservedTabName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := te.AddTab(ctx, schema.AddTabRequest{Name: tc.tabName})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
	if got := len(te.Snapshot().Tabs); got != 2 {
		t.Fatalf("expected rejected mutations to leave state untouched, got %d tabs", got)
	}
}

func TestRenameTabValidation(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	ctx := context.Background()
	if err := te.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	a, err := te.AddTab(ctx, schema.AddTabRequest{Name: "Alpha"})
	if err != nil {
		t.Fatalf("add tab: %v", err)
	}
	if _, err := te.AddTab(ctx, schema.AddTabRequest{Name: "Beta"}); err != nil {
		t.Fatalf("add tab: %v", err)
	}
	if _, err := te.RenameTab(ctx, schema.RenameTabRequest{TabID: a.Tab.ID, Name: "Beta"}); !errors.Is(err, schema.ErrDuplicateTabName) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	renamed, err := te.RenameTab(ctx, schema.RenameTabRequest{TabID: a.Tab.ID, Name: "Alpha Desk"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Tab.Name != "Alpha Desk" {
		t.Fatalf("expected renamed tab, got %q", renamed.Tab.Name)
	}
	if _, err := te.RenameTab(ctx, schema.RenameTabRequest{TabID: "missing", Name: "X"}); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound, got %v", err)
	}
}

func TestMoveTabKeepsHomePinned(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	ctx := context.Background()
	if err := te.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	a, _ := te.AddTab(ctx, schema.AddTabRequest{Name: "One"})
	b, _ := te.AddTab(ctx, schema.AddTabRequest{Name: "Two"})

	if _, err := te.MoveTab(ctx, schema.MoveTabRequest{TabID: schema.HomeTabID, Index: 2}); !errors.Is(err, schema.ErrInvalidRequest) {
		t.Fatalf("expected home tab move rejected, got %v", err)
	}

	// index 0 is clamped past the home tab
	resp, err := te.MoveTab(ctx, schema.MoveTabRequest{TabID: b.Tab.ID, Index: 0})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if resp.Tabs[0].ID != schema.HomeTabID {
		t.Fatalf("expected home tab pinned at 0, got %q", resp.Tabs[0].ID)
	}
	if resp.Tabs[1].ID != b.Tab.ID || resp.Tabs[2].ID != a.Tab.ID {
		t.Fatalf("unexpected order: %q, %q", resp.Tabs[1].ID, resp.Tabs[2].ID)
	}
}

func TestSaveLayoutReplacesSameName(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	ctx := context.Background()
	if err := te.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	a, err := te.AddTab(ctx, schema.AddTabRequest{Name: "Grid"})
	if err != nil {
		t.Fatalf("add tab: %v", err)
	}
	if _, err := te.AddComponent(ctx, schema.AddComponentRequest{
		TabID:     a.Tab.ID,
		Component: schema.ComponentInTab{ID: "c1", Type: "chart", Position: schema.GridPosition{W: 2, H: 2}},
	}); err != nil {
		t.Fatalf("add component: %v", err)
	}
	if _, err := te.SaveLayout(ctx, schema.SaveLayoutRequest{Name: "morning", TabID: a.Tab.ID}); err != nil {
		t.Fatalf("save layout: %v", err)
	}
	if _, err := te.AddComponent(ctx, schema.AddComponentRequest{
		TabID:     a.Tab.ID,
		Component: schema.ComponentInTab{ID: "c2", Type: "news", Position: schema.GridPosition{W: 1, H: 1}},
	}); err != nil {
		t.Fatalf("add component: %v", err)
	}
	saved, err := te.SaveLayout(ctx, schema.SaveLayoutRequest{Name: "morning", TabID: a.Tab.ID})
	if err != nil {
		t.Fatalf("save layout again: %v", err)
	}
	if len(saved.Layout.Entries) != 2 {
		t.Fatalf("expected refreshed layout with 2 entries, got %d", len(saved.Layout.Entries))
	}
	snap := te.Snapshot()
	if len(snap.Layouts) != 1 {
		t.Fatalf("expected same-name layout replaced, got %d layouts", len(snap.Layouts))
	}
}

func TestComponentMutations(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	ctx := context.Background()
	if err := te.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	a, err := te.AddTab(ctx, schema.AddTabRequest{Name: "Desk"})
	if err != nil {
		t.Fatalf("add tab: %v", err)
	}
	added, err := te.AddComponent(ctx, schema.AddComponentRequest{
		TabID:     a.Tab.ID,
		Component: schema.ComponentInTab{Type: "chart", Position: schema.GridPosition{X: 1, Y: 1, W: 4, H: 3}},
	})
	if err != nil {
		t.Fatalf("add component: %v", err)
	}
	if added.Component.ID == "" {
		t.Fatalf("expected generated component id")
	}

	if _, err := te.AddComponent(ctx, schema.AddComponentRequest{
		TabID:     a.Tab.ID,
		Component: schema.ComponentInTab{ID: added.Component.ID, Type: "chart", Position: schema.GridPosition{W: 1, H: 1}},
	}); !errors.Is(err, schema.ErrDuplicateComponent) {
		t.Fatalf("expected duplicate component rejection, got %v", err)
	}

	if _, err := te.UpdateComponentPosition(ctx, schema.UpdateComponentPositionRequest{
		TabID:       a.Tab.ID,
		ComponentID: added.Component.ID,
		Position:    schema.GridPosition{W: 0, H: 2},
	}); !errors.Is(err, schema.ErrInvalidPosition) {
		t.Fatalf("expected malformed position rejected, got %v", err)
	}

	moved, err := te.UpdateComponentPosition(ctx, schema.UpdateComponentPositionRequest{
		TabID:       a.Tab.ID,
		ComponentID: added.Component.ID,
		Position:    schema.GridPosition{X: 2, Y: 0, W: 6, H: 2},
	})
	if err != nil {
		t.Fatalf("update position: %v", err)
	}
	if moved.Component.Position.W != 6 {
		t.Fatalf("expected updated width 6, got %d", moved.Component.Position.W)
	}

	propped, err := te.SetComponentProps(ctx, schema.SetComponentPropsRequest{
		TabID:       a.Tab.ID,
		ComponentID: added.Component.ID,
		Props:       map[string]any{"symbol": "ACME"},
	})
	if err != nil {
		t.Fatalf("set props: %v", err)
	}
	if propped.Component.Props["symbol"] != "ACME" {
		t.Fatalf("expected replaced props, got %+v", propped.Component.Props)
	}

	if _, err := te.RemoveComponent(ctx, schema.RemoveComponentRequest{TabID: a.Tab.ID, ComponentID: "missing"}); !errors.Is(err, schema.ErrComponentNotFound) {
		t.Fatalf("expected ErrComponentNotFound, got %v", err)
	}
	removed, err := te.RemoveComponent(ctx, schema.RemoveComponentRequest{TabID: a.Tab.ID, ComponentID: added.Component.ID})
	if err != nil {
		t.Fatalf("remove component: %v", err)
	}
	if !removed.Removed {
		t.Fatalf("expected component removed")
	}
}
