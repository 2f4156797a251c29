package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/layoutsync/schema"
)

type putCall struct {
	deviceType schema.DeviceType
	tabs       []schema.Tab
	layouts    []schema.SavedLayout
	headers    map[string]string
}

// fakeStore is an in-memory stand-in for the remote device-config
// endpoint. corruptReads makes every Get drop tab components so write
// verification never matches.
type fakeStore struct {
	mu           sync.Mutex
	docs         map[schema.DeviceType]schema.DeviceConfig
	puts         []putCall
	putErr       error
	getErr       error
	corruptReads bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[schema.DeviceType]schema.DeviceConfig)}
}

func (s *fakeStore) Get(ctx context.Context, deviceType schema.DeviceType) (schema.DeviceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return schema.DeviceConfig{}, s.getErr
	}
	doc, ok := s.docs[deviceType]
	if !ok {
		return schema.DeviceConfig{}, schema.ErrNotFound
	}
	doc.Tabs = schema.CloneTabs(doc.Tabs)
	if s.corruptReads {
		for i := range doc.Tabs {
			doc.Tabs[i].Components = nil
		}
	}
	return doc, nil
}

func (s *fakeStore) Put(ctx context.Context, deviceType schema.DeviceType, tabs []schema.Tab, layouts []schema.SavedLayout, headers map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	s.puts = append(s.puts, putCall{deviceType: deviceType, tabs: schema.CloneTabs(tabs), layouts: layouts, headers: copied})
	if s.putErr != nil {
		return s.putErr
	}
	s.docs[deviceType] = schema.DeviceConfig{
		DeviceType: deviceType,
		Tabs:       schema.CloneTabs(tabs),
		Layouts:    layouts,
		UpdatedAt:  time.Now().UTC(),
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, deviceType schema.DeviceType, headers map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, deviceType)
	return nil
}

func (s *fakeStore) CopyTo(ctx context.Context, req schema.CopyRequest, headers map[string]string) error {
	return nil
}

func (s *fakeStore) setPutErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

func (s *fakeStore) setCorruptReads(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corruptReads = v
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

func (s *fakeStore) lastPut() putCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.puts) == 0 {
		return putCall{}
	}
	return s.puts[len(s.puts)-1]
}

func (s *fakeStore) seed(deviceType schema.DeviceType, tabs []schema.Tab, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[deviceType] = schema.DeviceConfig{DeviceType: deviceType, Tabs: schema.CloneTabs(tabs), UpdatedAt: updatedAt}
}

// fakeCache is an in-memory SnapshotCache.
type fakeCache struct {
	mu     sync.Mutex
	docs   map[schema.DeviceType]schema.DeviceConfig
	resets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{docs: make(map[schema.DeviceType]schema.DeviceConfig)}
}

func (c *fakeCache) Load(deviceType schema.DeviceType) (schema.DeviceConfig, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[deviceType]
	return doc, ok, nil
}

func (c *fakeCache) Store(deviceType schema.DeviceType, doc schema.DeviceConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[deviceType] = doc
	return nil
}

func (c *fakeCache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = make(map[schema.DeviceType]schema.DeviceConfig)
	c.resets++
	return nil
}

// fakeSink records engine events and mirrors them onto channels so
// tests can wait for asynchronous writes.
type fakeSink struct {
	mu       sync.Mutex
	layouts  []schema.LayoutEvent
	syncs    []schema.SyncEvent
	notices  []schema.Notice
	syncCh   chan schema.SyncEvent
	layoutCh chan schema.LayoutEvent
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		syncCh:   make(chan schema.SyncEvent, 32),
		layoutCh: make(chan schema.LayoutEvent, 32),
	}
}

func (s *fakeSink) OnLayoutEvent(event schema.LayoutEvent) {
	s.mu.Lock()
	s.layouts = append(s.layouts, event)
	s.mu.Unlock()
	select {
	case s.layoutCh <- event:
	default:
	}
}

func (s *fakeSink) OnSyncEvent(event schema.SyncEvent) {
	s.mu.Lock()
	s.syncs = append(s.syncs, event)
	s.mu.Unlock()
	select {
	case s.syncCh <- event:
	default:
	}
}

func (s *fakeSink) OnNotice(notice schema.Notice) {
	s.mu.Lock()
	s.notices = append(s.notices, notice)
	s.mu.Unlock()
}

func (s *fakeSink) noticeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notices)
}

func waitSync(t *testing.T, ch <-chan schema.SyncEvent, status schema.SyncStatus) schema.SyncEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case event := <-ch:
			if event.Status == status {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for sync status %q", status)
		}
	}
}

func waitLayout(t *testing.T, ch <-chan schema.LayoutEvent, eventType schema.LayoutEventType) schema.LayoutEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case event := <-ch:
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for layout event %q", eventType)
		}
	}
}

type testEngine struct {
	Engine
	store *fakeStore
	sink  *fakeSink
}

func newTestEngine(t *testing.T, cfg schema.EngineConfig) testEngine {
	t.Helper()
	store := newFakeStore()
	sink := newFakeSink()
	if cfg.DeviceType == "" {
		cfg.DeviceType = schema.DeviceLaptop
	}
	eng, err := NewEngine(cfg, EngineDeps{Store: store, Sink: sink})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return testEngine{Engine: eng, store: store, sink: sink}
}

func namedTab(id, name string) schema.Tab {
	return schema.Tab{
		ID:           schema.TabID(id),
		Name:         schema.TabName(name),
		ComponentRef: schema.DynamicContainerRef,
		Kind:         schema.TabKindDynamic,
		Closable:     true,
		GridEnabled:  true,
	}
}
