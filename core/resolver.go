package core

import (
	"context"
	"errors"
	"time"

	"pkt.systems/layoutsync/schema"
)

// resolvedLayout is the outcome of the device fallback chain.
type resolvedLayout struct {
	Tabs      []schema.Tab
	Layouts   []schema.SavedLayout
	UpdatedAt time.Time
	Source    string
}

// resolve decides which document seeds the canonical state: the
// current device type first, then the configured fallback order, then
// the last known local snapshot, and finally the built-in default
// layout. Devices commonly share layouts; a bigscreen document is
// often a reasonable laptop fallback. Remote documents are normalized
// before acceptance and empty tab lists count as misses.
func (e *engine) resolve(ctx context.Context) resolvedLayout {
	if resolved, ok := e.resolveRemote(ctx, e.cfg.DeviceType); ok {
		resolved.Source = "remote"
		return resolved
	}
	for _, fallback := range e.cfg.FallbackOrder {
		if resolved, ok := e.resolveRemote(ctx, fallback); ok {
			resolved.Source = "fallback:" + string(fallback)
			// a borrowed document never carries the other device's
			// timestamp forward
			resolved.UpdatedAt = time.Time{}
			e.logger.Info("layout resolved from fallback device", "fallback", fallback, "tabs", len(resolved.Tabs))
			return resolved
		}
	}
	if resolved, ok := e.resolveCached(); ok {
		resolved.Source = "cache"
		e.logger.Info("layout resolved from local cache", "tabs", len(resolved.Tabs))
		return resolved
	}
	e.logger.Info("layout resolved from built-in default")
	return resolvedLayout{Tabs: schema.DefaultLayout(), Source: "default"}
}

func (e *engine) resolveRemote(ctx context.Context, deviceType schema.DeviceType) (resolvedLayout, bool) {
	doc, err := e.store.Get(ctx, deviceType)
	if err != nil {
		if !errors.Is(err, schema.ErrNotFound) {
			e.logger.Warn("layout resolve fetch failed", "target", deviceType, "err", err)
		}
		return resolvedLayout{}, false
	}
	tabs, report := schema.NormalizeTabs(doc.Tabs)
	e.logDrops(report)
	if len(tabs) == 0 {
		return resolvedLayout{}, false
	}
	return resolvedLayout{
		Tabs:      schema.EnsureHomeTab(tabs),
		Layouts:   doc.Layouts,
		UpdatedAt: doc.UpdatedAt,
	}, true
}

func (e *engine) resolveCached() (resolvedLayout, bool) {
	if e.cache == nil {
		return resolvedLayout{}, false
	}
	doc, ok, err := e.cache.Load(e.cfg.DeviceType)
	if err != nil {
		e.logger.Warn("snapshot cache load failed", "err", err)
		return resolvedLayout{}, false
	}
	if !ok {
		return resolvedLayout{}, false
	}
	tabs, report := schema.NormalizeTabs(doc.Tabs)
	e.logDrops(report)
	if len(tabs) == 0 {
		return resolvedLayout{}, false
	}
	return resolvedLayout{
		Tabs:      schema.EnsureHomeTab(tabs),
		Layouts:   doc.Layouts,
		UpdatedAt: doc.UpdatedAt,
	}, true
}
