package core

import (
	"context"
	"errors"
	"strings"

	"pkt.systems/layoutsync/internal/logx"
	"pkt.systems/layoutsync/schema"
)

func findComponent(components []schema.ComponentInTab, id schema.ComponentID) int {
	for i := range components {
		if components[i].ID == id {
			return i
		}
	}
	return -1
}

// AddComponent places a component on a tab's grid. Submitted positions
// are validated but not reshaped here; thumbnail footprint pinning
// happens at persistence time.
func (e *engine) AddComponent(ctx context.Context, req schema.AddComponentRequest) (schema.AddComponentResponse, error) {
	if ctx == nil {
		return schema.AddComponentResponse{}, errors.New("missing context")
	}
	component := req.Component.Clone()
	if strings.TrimSpace(string(component.ID)) == "" {
		component.ID = schema.ComponentID(newID())
	}
	if err := schema.ValidatePosition(component.Position); err != nil {
		return schema.AddComponentResponse{}, err
	}
	log := logx.WithDeviceTab(ctx, e.cfg.DeviceType, req.TabID)
	_, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventComponentChanged, TabID: req.TabID, ComponentID: component.ID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		if findComponent(ws.Tabs[idx].Components, component.ID) >= 0 {
			return schema.ErrDuplicateComponent
		}
		ws.Tabs[idx].Components = append(ws.Tabs[idx].Components, component.Clone())
		return nil
	})
	if err != nil {
		log.Warn("component add rejected", "component", component.ID, "err", err)
		return schema.AddComponentResponse{}, err
	}
	log.Info("component added", "component", component.ID, "type", component.Type)
	return schema.AddComponentResponse{Component: component}, nil
}

func (e *engine) RemoveComponent(ctx context.Context, req schema.RemoveComponentRequest) (schema.RemoveComponentResponse, error) {
	if ctx == nil {
		return schema.RemoveComponentResponse{}, errors.New("missing context")
	}
	log := logx.WithDeviceTab(ctx, e.cfg.DeviceType, req.TabID)
	_, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventComponentChanged, TabID: req.TabID, ComponentID: req.ComponentID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		cidx := findComponent(ws.Tabs[idx].Components, req.ComponentID)
		if cidx < 0 {
			return schema.ErrComponentNotFound
		}
		ws.Tabs[idx].Components = append(ws.Tabs[idx].Components[:cidx], ws.Tabs[idx].Components[cidx+1:]...)
		return nil
	})
	if err != nil {
		return schema.RemoveComponentResponse{}, err
	}
	log.Info("component removed", "component", req.ComponentID)
	return schema.RemoveComponentResponse{Removed: true}, nil
}

func (e *engine) UpdateComponentPosition(ctx context.Context, req schema.UpdateComponentPositionRequest) (schema.UpdateComponentPositionResponse, error) {
	if ctx == nil {
		return schema.UpdateComponentPositionResponse{}, errors.New("missing context")
	}
	if err := schema.ValidatePosition(req.Position); err != nil {
		return schema.UpdateComponentPositionResponse{}, err
	}
	var updated schema.ComponentInTab
	_, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventComponentChanged, TabID: req.TabID, ComponentID: req.ComponentID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		cidx := findComponent(ws.Tabs[idx].Components, req.ComponentID)
		if cidx < 0 {
			return schema.ErrComponentNotFound
		}
		ws.Tabs[idx].Components[cidx].Position = req.Position
		updated = ws.Tabs[idx].Components[cidx].Clone()
		return nil
	})
	if err != nil {
		return schema.UpdateComponentPositionResponse{}, err
	}
	return schema.UpdateComponentPositionResponse{Component: updated}, nil
}

func (e *engine) SetComponentProps(ctx context.Context, req schema.SetComponentPropsRequest) (schema.SetComponentPropsResponse, error) {
	if ctx == nil {
		return schema.SetComponentPropsResponse{}, errors.New("missing context")
	}
	var updated schema.ComponentInTab
	_, err := e.mutateTabs(schema.LayoutEvent{Type: schema.LayoutEventComponentChanged, TabID: req.TabID, ComponentID: req.ComponentID}, func(ws *WorkspaceState) error {
		idx := findTab(ws.Tabs, req.TabID)
		if idx < 0 {
			return schema.ErrTabNotFound
		}
		cidx := findComponent(ws.Tabs[idx].Components, req.ComponentID)
		if cidx < 0 {
			return schema.ErrComponentNotFound
		}
		props := make(map[string]any, len(req.Props))
		for k, v := range req.Props {
			props[k] = v
		}
		ws.Tabs[idx].Components[cidx].Props = props
		updated = ws.Tabs[idx].Components[cidx].Clone()
		return nil
	})
	if err != nil {
		return schema.SetComponentPropsResponse{}, err
	}
	return schema.SetComponentPropsResponse{Component: updated}, nil
}
