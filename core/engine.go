package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/layoutsync/internal/logx"
	"pkt.systems/layoutsync/schema"
	"pkt.systems/pslog"
)

const (
	pullTimeout  = 15 * time.Second
	writeTimeout = 30 * time.Second
)

// engine implements the layout synchronization engine.
type engine struct {
	cfg    schema.EngineConfig
	store  ConfigStore
	cache  SnapshotCache
	sink   EventSink
	lock   *EditLock
	layout LayoutStore
	logger pslog.Logger

	// writeMu serializes remote writes for this (user, deviceType):
	// single-flight discipline preventing interleaved partial writes
	// from the same session. The scheduler and the lock-engaged flush
	// share it.
	writeMu sync.Mutex

	flushCh   chan struct{}
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	runWG     sync.WaitGroup
}

// NewEngine constructs the sync engine. deps.Store is required.
func NewEngine(cfg schema.EngineConfig, deps EngineDeps) (Engine, error) {
	normalized, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Store == nil {
		return nil, errors.New("config store is required")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = schema.SessionID(newID())
	}
	layout := deps.Layout
	if layout == nil {
		layout = NewMemoryStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logx.WithSession(logger.With("device", cfg.DeviceType), cfg.SessionID)
	return &engine{
		cfg:     cfg,
		store:   deps.Store,
		cache:   deps.Cache,
		sink:    deps.Sink,
		lock:    NewEditLock(cfg.SessionID),
		layout:  layout,
		logger:  logger,
		flushCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}, nil
}

// Load seeds the canonical state through the device fallback chain and
// caches the result locally.
func (e *engine) Load(ctx context.Context) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	resolved := e.resolve(ctx)
	state, err := e.layout.Mutate(func(ws *WorkspaceState) error {
		ws.Tabs = resolved.Tabs
		ws.Layouts = resolved.Layouts
		ws.RemoteUpdatedAt = resolved.UpdatedAt
		ws.Dirty = false
		ws.Sync = ""
		return nil
	})
	if err != nil {
		return err
	}
	e.cacheSnapshot(state)
	e.emitLayout(schema.LayoutEvent{Type: schema.LayoutEventSeeded, DeviceType: e.cfg.DeviceType, Tabs: state.Tabs})
	e.logger.Info("layout seeded", "source", resolved.Source, "tabs", len(state.Tabs))
	return nil
}

func (e *engine) Snapshot() schema.LayoutSnapshot {
	return e.toSnapshot(e.layout.State())
}

func (e *engine) Subscribe(listener func(schema.LayoutSnapshot)) func() {
	return e.layout.Subscribe(func(state WorkspaceState) {
		listener(e.toSnapshot(state))
	})
}

func (e *engine) toSnapshot(state WorkspaceState) schema.LayoutSnapshot {
	return schema.LayoutSnapshot{
		DeviceType: e.cfg.DeviceType,
		Tabs:       state.Tabs,
		Layouts:    state.Layouts,
		Unlocked:   e.lock.IsUnlocked(),
		Dirty:      state.Dirty,
		SyncStatus: state.Sync,
		UpdatedAt:  state.RemoteUpdatedAt,
	}
}

// ToggleEditLock flips the advisory lock. Engaging the lock requests a
// debounced full flush so a just-completed per-tab save settles first.
func (e *engine) ToggleEditLock(ctx context.Context) (schema.ToggleEditLockResponse, error) {
	if ctx == nil {
		return schema.ToggleEditLockResponse{}, errors.New("missing context")
	}
	unlocked := e.lock.Toggle()
	logx.WithDevice(ctx, e.cfg.DeviceType).Info("edit lock toggled", "unlocked", unlocked)
	if !unlocked {
		e.requestFlush()
	}
	// listeners observe the lock change even though tab content is
	// untouched
	if _, err := e.layout.Mutate(func(ws *WorkspaceState) error { return nil }); err != nil {
		return schema.ToggleEditLockResponse{}, err
	}
	return schema.ToggleEditLockResponse{Unlocked: unlocked}, nil
}

// Flush pushes the entire in-memory tab set through the config store
// and the write verification cycle. It runs regardless of the advisory
// lock: the lock gates mutation-triggered writes, not explicit flushes.
func (e *engine) Flush(ctx context.Context) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.flushLocked(ctx)
}

// flushLocked runs the put+verify cycle. Callers hold writeMu.
func (e *engine) flushLocked(ctx context.Context) error {
	state, err := e.layout.Mutate(func(ws *WorkspaceState) error {
		ws.Sync = schema.SyncFlushing
		return nil
	})
	if err != nil {
		return err
	}
	// thumbnail pinning and placeholder filtering are enforced at
	// persistence time
	tabs, report := schema.NormalizeTabs(state.Tabs)
	tabs = schema.EnsureHomeTab(tabs)
	e.logDrops(report)

	status, attempts, err := e.putVerified(ctx, tabs, state.Layouts)
	if err != nil {
		_, _ = e.layout.Mutate(func(ws *WorkspaceState) error {
			if ws.Sync == schema.SyncFlushing {
				ws.Sync = schema.SyncFailed
			}
			return nil
		})
		e.emitSync(schema.SyncEvent{DeviceType: e.cfg.DeviceType, Status: schema.SyncFailed, Attempts: attempts, Err: err.Error()})
		e.noteAuthFailure(err)
		e.logger.Warn("layout flush failed", "attempts", attempts, "err", err)
		return err
	}
	final, mutErr := e.layout.Mutate(func(ws *WorkspaceState) error {
		// a mutation mid-flight re-enters Editing; leave it dirty for
		// the next cycle
		if ws.Sync != schema.SyncFlushing {
			return nil
		}
		ws.Sync = status
		ws.Dirty = false
		return nil
	})
	if mutErr != nil {
		return mutErr
	}
	e.cacheSnapshot(final)
	e.emitSync(schema.SyncEvent{DeviceType: e.cfg.DeviceType, Status: status, Attempts: attempts, UpdatedAt: final.RemoteUpdatedAt})
	if status == schema.SyncUncertain {
		e.notify(schema.NoticeWarn, "layout sync uncertain: remote state may differ from this session")
	}
	e.logger.Debug("layout flush done", "status", status, "attempts", attempts, "tabs", len(tabs))
	return nil
}

// persistAsync enqueues a serialized remote write without blocking the
// mutating caller.
func (e *engine) persistAsync() {
	select {
	case <-e.stopCh:
		return
	default:
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
		if err := e.flushLocked(ctx); err != nil {
			e.logger.Warn("layout persist failed", "err", err)
		}
	}()
}

// maybePersist issues a remote write unless the advisory lock is
// engaged. While locked, in-memory state stays dirty and the write is
// suppressed entirely.
func (e *engine) maybePersist() {
	if !e.lock.IsUnlocked() {
		e.logger.Debug("persist suppressed while locked")
		return
	}
	e.persistAsync()
}

// CopyTo copies the current layout to another identified user. When
// req.Tabs is empty the engine's canonical tab set is sent.
func (e *engine) CopyTo(ctx context.Context, req schema.CopyRequest) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	if len(req.Tabs) == 0 {
		tabs, _ := schema.NormalizeTabs(e.layout.State().Tabs)
		req.Tabs = schema.EnsureHomeTab(tabs)
	}
	if err := e.store.CopyTo(ctx, req, e.lock.AuthHeaders()); err != nil {
		e.noteAuthFailure(err)
		logx.WithDevice(ctx, e.cfg.DeviceType).Warn("layout copy failed", "target", req.TargetEmail, "err", err)
		return err
	}
	e.notify(schema.NoticeInfo, "layout copied to "+req.TargetEmail)
	logx.WithDevice(ctx, e.cfg.DeviceType).Info("layout copy ok", "target", req.TargetEmail)
	return nil
}

// DeleteRemote removes the remote document for this device type. The
// in-memory state is left untouched; the next flush recreates it.
func (e *engine) DeleteRemote(ctx context.Context) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	if err := e.store.Delete(ctx, e.cfg.DeviceType, e.lock.AuthHeaders()); err != nil {
		e.noteAuthFailure(err)
		return err
	}
	_, err := e.layout.Mutate(func(ws *WorkspaceState) error {
		ws.RemoteUpdatedAt = time.Time{}
		ws.Dirty = true
		ws.Sync = schema.SyncEditing
		return nil
	})
	return err
}

// ResetCache evicts every locally cached snapshot.
func (e *engine) ResetCache() error {
	if e.cache == nil {
		return nil
	}
	if err := e.cache.Reset(); err != nil {
		return err
	}
	e.logger.Info("local cache reset")
	return nil
}

func (e *engine) cacheSnapshot(state WorkspaceState) {
	if e.cache == nil {
		return
	}
	doc := schema.DeviceConfig{
		DeviceType: e.cfg.DeviceType,
		Tabs:       state.Tabs,
		Layouts:    state.Layouts,
		UpdatedAt:  state.RemoteUpdatedAt,
	}
	if err := e.cache.Store(e.cfg.DeviceType, doc); err != nil {
		e.logger.Warn("snapshot cache store failed", "err", err)
	}
}

func (e *engine) logDrops(report schema.NormalizeReport) {
	for _, dropped := range report.Dropped {
		e.logger.Warn("normalize dropped record", "reason", dropped.Reason, "tab", dropped.TabID, "component", dropped.ComponentID)
	}
}

func (e *engine) emitLayout(event schema.LayoutEvent) {
	if e.sink != nil {
		e.sink.OnLayoutEvent(event)
	}
}

func (e *engine) emitSync(event schema.SyncEvent) {
	if e.sink != nil {
		e.sink.OnSyncEvent(event)
	}
}

func (e *engine) notify(level schema.NoticeLevel, message string) {
	if e.sink != nil {
		e.sink.OnNotice(schema.Notice{Level: level, Message: message})
	}
}

// noteAuthFailure surfaces auth failures as a user-visible notice. No
// automatic retry storm follows; token acquisition is already bounded
// inside the config store client.
func (e *engine) noteAuthFailure(err error) {
	var authErr interface{ AuthFailure() bool }
	if errors.As(err, &authErr) && authErr.AuthFailure() {
		e.notify(schema.NoticeError, "not authorized to sync layout; sign in again")
	}
}
