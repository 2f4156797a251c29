package core

import (
	"context"
	"reflect"
	"sort"
	"time"

	"pkt.systems/layoutsync/schema"
)

// componentProjection is the per-component tuple compared during write
// verification.
type componentProjection struct {
	ID          schema.ComponentID
	Position    schema.GridPosition
	DisplayMode schema.DisplayMode
}

// tabProjection is the per-tab tuple compared during write
// verification: id plus its component tuples, both in sorted order so
// the comparison is independent of array order.
type tabProjection struct {
	ID         schema.TabID
	Components []componentProjection
}

func buildProjection(tabs []schema.Tab) []tabProjection {
	out := make([]tabProjection, 0, len(tabs))
	for _, tab := range tabs {
		proj := tabProjection{ID: tab.ID}
		for _, c := range tab.Components {
			proj.Components = append(proj.Components, componentProjection{
				ID:          c.ID,
				Position:    c.Position,
				DisplayMode: c.DisplayMode(),
			})
		}
		sort.Slice(proj.Components, func(i, j int) bool {
			return proj.Components[i].ID < proj.Components[j].ID
		})
		out = append(out, proj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func projectionsEqual(sent, stored []tabProjection) bool {
	return reflect.DeepEqual(sent, stored)
}

// putVerified writes the tab set and verifies it by immediate
// read-back: both sides are projected to sorted
// (tabID, [componentID, position, displayMode]) tuples and compared
// structurally. On mismatch the put is retried a bounded number of
// times (default once), then the write is accepted as best-effort with
// an uncertain status. The write is never rolled back.
func (e *engine) putVerified(ctx context.Context, tabs []schema.Tab, layouts []schema.SavedLayout) (schema.SyncStatus, int, error) {
	headers := e.lock.AuthHeaders()
	sent := buildProjection(tabs)
	attempts := 0
	for {
		attempts++
		if err := e.store.Put(ctx, e.cfg.DeviceType, tabs, layouts, headers); err != nil {
			return schema.SyncFailed, attempts, err
		}
		stored, err := e.store.Get(ctx, e.cfg.DeviceType)
		if err != nil {
			e.logger.Warn("write verification read-back failed", "attempt", attempts, "err", err)
			return schema.SyncUncertain, attempts, nil
		}
		if projectionsEqual(sent, buildProjection(stored.Tabs)) {
			e.observeRemote(stored.UpdatedAt)
			return schema.SyncVerified, attempts, nil
		}
		if attempts > e.cfg.VerifyRetries {
			e.logger.Warn("write verification mismatch persists", "attempts", attempts)
			e.observeRemote(stored.UpdatedAt)
			return schema.SyncUncertain, attempts, nil
		}
		e.logger.Warn("write verification mismatch, retrying put", "attempt", attempts)
	}
}

// observeRemote advances the last observed remote timestamp so the
// scheduler does not re-merge a document this session just wrote.
func (e *engine) observeRemote(updatedAt time.Time) {
	if updatedAt.IsZero() {
		return
	}
	_, _ = e.layout.Mutate(func(ws *WorkspaceState) error {
		if updatedAt.After(ws.RemoteUpdatedAt) {
			ws.RemoteUpdatedAt = updatedAt
		}
		return nil
	})
}
