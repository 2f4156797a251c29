package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"pkt.systems/layoutsync/core"
	"pkt.systems/layoutsync/internal/eventbus"
	"pkt.systems/layoutsync/internal/logx"
	"pkt.systems/layoutsync/schema"
)

// StreamEvent is sent to SSE clients. Exactly one payload field is set,
// selected by Type; "snapshot" seeds client state on connect.
type StreamEvent struct {
	Type      string                 `json:"type"`
	Layout    *schema.LayoutEvent    `json:"layout,omitempty"`
	Sync      *schema.SyncEvent      `json:"sync,omitempty"`
	Notice    *schema.Notice         `json:"notice,omitempty"`
	Snapshot  *schema.LayoutSnapshot `json:"snapshot,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Server exposes the engine over a slim local HTTP surface: state
// reads, mutation posts, and an SSE event stream. Rendering stays in
// the workspace shell; this process only owns layout state.
type Server struct {
	cfg      Config
	engine   core.Engine
	bus      *eventbus.Bus
	basePath string
}

// NewServer constructs the local API server.
func NewServer(cfg Config, engine core.Engine, bus *eventbus.Bus) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		bus:      bus,
		basePath: normalizeBasePath(cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/lock/toggle", s.handleToggleLock)
	mux.HandleFunc("/api/flush", s.handleFlush)
	mux.HandleFunc("/api/tabs", s.handleAddTab)
	mux.HandleFunc("/api/tabs/close", s.handleCloseTab)
	mux.HandleFunc("/api/tabs/rename", s.handleRenameTab)
	mux.HandleFunc("/api/tabs/move", s.handleMoveTab)
	mux.HandleFunc("/api/tabs/editmode", s.handleSetEditMode)
	mux.HandleFunc("/api/components", s.handleAddComponent)
	mux.HandleFunc("/api/components/remove", s.handleRemoveComponent)
	mux.HandleFunc("/api/components/position", s.handleComponentPosition)
	mux.HandleFunc("/api/components/props", s.handleComponentProps)
	mux.HandleFunc("/api/layouts/save", s.handleSaveLayout)
	mux.HandleFunc("/api/copy-to", s.handleCopyTo)
	mux.HandleFunc("/api/remote/delete", s.handleDeleteRemote)
	mux.HandleFunc("/api/cache/reset", s.handleCacheReset)
	mux.HandleFunc("/api/stream", s.handleStream)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleToggleLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.engine.ToggleEditLock(r.Context())
	if err != nil {
		writeEngineError(w, r, "http lock toggle failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.engine.Flush(r.Context()); err != nil {
		writeEngineError(w, r, "http flush failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAddTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.AddTabRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.AddTab(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http add tab failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.CloseTabRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.CloseTab(r.Context(), req)
	if err != nil {
		// Protected tabs report the refusal alongside the unchanged
		// tab list so the shell can keep rendering.
		if errors.Is(err, schema.ErrTabNotClosable) || errors.Is(err, schema.ErrLastTab) {
			writeJSON(w, http.StatusConflict, resp)
			return
		}
		writeEngineError(w, r, "http close tab failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRenameTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.RenameTabRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.RenameTab(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http rename tab failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMoveTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.MoveTabRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.MoveTab(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http move tab failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetEditMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.SetEditModeRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.SetEditMode(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http edit mode failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddComponent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.AddComponentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.AddComponent(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http add component failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveComponent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.RemoveComponentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.RemoveComponent(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http remove component failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleComponentPosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.UpdateComponentPositionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.UpdateComponentPosition(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http component position failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleComponentProps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.SetComponentPropsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.SetComponentProps(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http component props failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.SaveLayoutRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.SaveLayout(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, "http save layout failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCopyTo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req schema.CopyRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.CopyTo(r.Context(), req); err != nil {
		writeEngineError(w, r, "http copy failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDeleteRemote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.engine.DeleteRemote(r.Context()); err != nil {
		writeEngineError(w, r, "http remote delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCacheReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.engine.ResetCache(); err != nil {
		writeEngineError(w, r, "http cache reset failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshot := s.engine.Snapshot()
	_ = writeSSEvent(w, StreamEvent{
		Type:      "snapshot",
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
	flusher.Flush()

	ch, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	notify := r.Context().Done()
	log.Info("http stream opened", "tabs", len(snapshot.Tabs))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			_ = writeSSEvent(w, toStreamEvent(event))
			flusher.Flush()
		}
	}
}

func toStreamEvent(event eventbus.Event) StreamEvent {
	return StreamEvent{
		Type:      string(event.Type),
		Layout:    event.Layout,
		Sync:      event.Sync,
		Notice:    event.Notice,
		Timestamp: time.Now(),
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeEngineError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	log.Warn(msg, "err", err)
	writeError(w, statusForError(err), err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrTabNotFound),
		errors.Is(err, schema.ErrComponentNotFound),
		errors.Is(err, schema.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrTabNotClosable),
		errors.Is(err, schema.ErrLastTab),
		errors.Is(err, schema.ErrDuplicateTabName),
		errors.Is(err, schema.ErrDuplicateComponent):
		return http.StatusConflict
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidTabName),
		errors.Is(err, schema.ErrReservedTabName),
		errors.Is(err, schema.ErrInvalidPosition),
		errors.Is(err, schema.ErrInvalidDeviceType),
		errors.Is(err, schema.ErrInvalidTargetEmail):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrEngineStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("data: " + string(data) + "\n\n"))
	return err
}
