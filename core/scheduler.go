package core

import (
	"context"
	"errors"
	"time"

	"pkt.systems/layoutsync/schema"
)

// Start launches the background scheduler loop: the periodic pull
// ticker and the debounced lock-engaged flush. Starting an already
// started engine is a no-op; starting a stopped engine is an error.
func (e *engine) Start() error {
	select {
	case <-e.stopCh:
		return schema.ErrEngineStopped
	default:
	}
	e.startOnce.Do(func() {
		e.runWG.Add(1)
		go e.run()
	})
	return nil
}

// Stop halts the scheduler timer. In-flight HTTP calls are not
// actively cancelled; they complete or fail naturally and their
// results are discarded.
func (e *engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.runWG.Wait()
}

// requestFlush coalesces full-flush triggers into the scheduler loop.
func (e *engine) requestFlush() {
	select {
	case e.flushCh <- struct{}{}:
	default:
	}
}

func (e *engine) run() {
	defer e.runWG.Done()
	ticker := time.NewTicker(e.cfg.PullInterval)
	defer ticker.Stop()
	var debounce *time.Timer
	var debounceC <-chan time.Time
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.tick()
		case <-e.flushCh:
			if debounce == nil {
				debounce = time.NewTimer(e.cfg.FlushDebounce)
				debounceC = debounce.C
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(e.cfg.FlushDebounce)
		case <-debounceC:
			debounce = nil
			debounceC = nil
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			if err := e.Flush(ctx); err != nil {
				e.logger.Warn("lock-engaged flush failed", "err", err)
			}
			cancel()
		}
	}
}

// tick retries dirty state first so a failed write is picked up on the
// next cycle instead of being looped immediately, then pulls the
// remote document for newer changes.
func (e *engine) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), pullTimeout)
	defer cancel()
	state := e.layout.State()
	if state.Dirty && e.lock.IsUnlocked() {
		if err := e.Flush(ctx); err != nil {
			e.logger.Warn("scheduled flush failed", "err", err)
		}
		return
	}
	e.pull(ctx, state)
}

// pull merges the remote document into memory only when the remote
// updatedAt is newer than the last locally observed value. Dirty local
// state is never overwritten; a locked session's local-only edits stay
// intact until the user unlocks.
func (e *engine) pull(ctx context.Context, state WorkspaceState) {
	doc, err := e.store.Get(ctx, e.cfg.DeviceType)
	if err != nil {
		if errors.Is(err, schema.ErrNotFound) {
			return
		}
		e.logger.Warn("scheduled pull failed", "err", err)
		return
	}
	if !doc.UpdatedAt.After(state.RemoteUpdatedAt) {
		return
	}
	if state.Dirty {
		e.logger.Debug("scheduled pull skipped, local state dirty", "remote_updated_at", doc.UpdatedAt)
		return
	}
	tabs, report := schema.NormalizeTabs(doc.Tabs)
	e.logDrops(report)
	tabs = schema.EnsureHomeTab(tabs)
	merged, err := e.layout.Mutate(func(ws *WorkspaceState) error {
		if ws.Dirty {
			return nil
		}
		ws.Tabs = tabs
		ws.Layouts = doc.Layouts
		ws.RemoteUpdatedAt = doc.UpdatedAt
		return nil
	})
	if err != nil {
		return
	}
	e.cacheSnapshot(merged)
	e.emitLayout(schema.LayoutEvent{Type: schema.LayoutEventSeeded, DeviceType: e.cfg.DeviceType, Tabs: merged.Tabs})
	e.logger.Info("remote layout merged", "tabs", len(merged.Tabs), "updated_at", doc.UpdatedAt)
}
