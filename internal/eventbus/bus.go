// Package eventbus fans engine events out to any number of subscribers,
// typically SSE streams served by the local HTTP API.
package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"

	"pkt.systems/layoutsync/schema"
)

// EventType discriminates the payload carried by an Event.
type EventType string

const (
	EventLayout EventType = "layout"
	EventSync   EventType = "sync"
	EventNotice EventType = "notice"
)

// Event is the tagged union delivered to subscribers. Exactly one of
// Layout, Sync, or Notice is populated, selected by Type.
type Event struct {
	Type   EventType           `json:"type"`
	Layout *schema.LayoutEvent `json:"layout,omitempty"`
	Sync   *schema.SyncEvent   `json:"sync,omitempty"`
	Notice *schema.Notice      `json:"notice,omitempty"`
}

// depth is the per-subscriber buffer. Slow consumers drop events rather
// than block the engine.
const depth = 256

// Bus is a bounded fanout for engine events. The zero value is not
// usable; construct with New. Bus implements core.EventSink.
type Bus struct {
	log pslog.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func New(log pslog.Logger) *Bus {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Bus{
		log:  log,
		subs: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its channel along
// with a cancel function. Cancel is idempotent and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, depth)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// OnLayoutEvent publishes a layout change to all subscribers.
func (b *Bus) OnLayoutEvent(ev schema.LayoutEvent) {
	b.publish(Event{Type: EventLayout, Layout: &ev})
}

// OnSyncEvent publishes a sync lifecycle transition to all subscribers.
func (b *Bus) OnSyncEvent(ev schema.SyncEvent) {
	b.publish(Event{Type: EventSync, Sync: &ev})
}

// OnNotice publishes a user-facing notice to all subscribers.
func (b *Bus) OnNotice(n schema.Notice) {
	b.publish(Event{Type: EventNotice, Notice: &n})
}

func (b *Bus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", ev.Type, "count", dropped)
	}
}

// Subscribers reports the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
