package core

import (
	"context"
	"testing"
	"time"

	"pkt.systems/layoutsync/schema"
)

func TestResolvePrefersCurrentDevice(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	te.store.seed(schema.DeviceLaptop, []schema.Tab{schema.HomeTab(), namedTab("lap", "Laptop Desk")}, time.Now().UTC())
	te.store.seed(schema.DeviceBigscreen, []schema.Tab{schema.HomeTab(), namedTab("big", "Wall Board")}, time.Now().UTC())
	if err := te.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := te.Snapshot()
	if findTab(snap.Tabs, "lap") < 0 {
		t.Fatalf("expected current device layout, got %+v", snap.Tabs)
	}
	if findTab(snap.Tabs, "big") >= 0 {
		t.Fatalf("did not expect fallback layout when current device has one")
	}
}

func TestResolveFallsBackAcrossDeviceTypes(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	// current device has a document but an empty tab list: counts as
	// a miss
	te.store.seed(schema.DeviceLaptop, nil, time.Now().UTC())
	remote := []schema.Tab{schema.HomeTab(), namedTab("b1", "Board One"), namedTab("b2", "Board Two")}
	te.store.seed(schema.DeviceBigscreen, remote, time.Now().UTC())

	if err := te.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := te.Snapshot()
	if len(snap.Tabs) != 3 {
		t.Fatalf("expected the 3 bigscreen tabs, got %d", len(snap.Tabs))
	}
	for _, id := range []schema.TabID{schema.HomeTabID, "b1", "b2"} {
		if findTab(snap.Tabs, id) < 0 {
			t.Fatalf("expected tab %q from bigscreen fallback", id)
		}
	}
	// a borrowed document must not carry the other device's timestamp
	if !snap.UpdatedAt.IsZero() {
		t.Fatalf("expected zero observed timestamp after fallback, got %v", snap.UpdatedAt)
	}
}

func TestResolveFallsBackToLocalCache(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	_ = cache.Store(schema.DeviceLaptop, schema.DeviceConfig{
		DeviceType: schema.DeviceLaptop,
		Tabs:       []schema.Tab{schema.HomeTab(), namedTab("cached", "Cached Desk")},
		UpdatedAt:  time.Now().UTC(),
	})
	eng, err := NewEngine(schema.EngineConfig{DeviceType: schema.DeviceLaptop}, EngineDeps{Store: store, Cache: cache})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := eng.Snapshot()
	if findTab(snap.Tabs, "cached") < 0 {
		t.Fatalf("expected cached layout, got %+v", snap.Tabs)
	}
}

func TestResolveDefaultsWhenEverythingMisses(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	if err := te.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := te.Snapshot()
	if len(snap.Tabs) != 1 {
		t.Fatalf("expected the built-in single-tab layout, got %d tabs", len(snap.Tabs))
	}
	if snap.Tabs[0].ID != schema.HomeTabID {
		t.Fatalf("expected the home tab, got %q", snap.Tabs[0].ID)
	}
	if snap.Tabs[0].Closable {
		t.Fatalf("home tab must not be closable")
	}
}

func TestResolveNormalizesRemoteBeforeAcceptance(t *testing.T) {
	te := newTestEngine(t, schema.EngineConfig{})
	corrupt := []schema.Tab{
		schema.HomeTab(),
		namedTab("dup", "Desk"),
		namedTab("dup", "Desk Again"),
		{ID: "ph", Name: "Broken", ComponentRef: schema.PlaceholderRef, Kind: schema.TabKindDynamic, Closable: true},
	}
	te.store.seed(schema.DeviceLaptop, corrupt, time.Now().UTC())
	if err := te.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := te.Snapshot()
	if len(snap.Tabs) != 2 {
		t.Fatalf("expected home plus one deduplicated tab, got %d", len(snap.Tabs))
	}
	if snap.Tabs[1].Name != "Desk" {
		t.Fatalf("expected first occurrence to win, got %q", snap.Tabs[1].Name)
	}
}
