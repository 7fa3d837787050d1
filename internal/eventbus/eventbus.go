// Package eventbus is the process-local publish point for player actions.
//
// Delivery is synchronous: Publish runs every matching handler before it
// returns. Events published while a delivery is in progress (from inside a
// handler or from another goroutine) are queued and delivered afterwards, so
// subscribers always observe events one at a time in submission order.
package eventbus

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrEmptyKind is returned by Publish for events without a kind.
var ErrEmptyKind = errors.New("eventbus: event kind is empty")

// Event kinds produced by the UI modules. Kinds are compared for equality only,
// so content may use values outside this set.
const (
	KindSignalTraced        = "signal_traced"
	KindIPInfoRetrieved     = "ip_info_retrieved"
	KindMapEntitySelected   = "map_entity_selected"
	KindMapLocationSelected = "map_location_selected"
)

// Event is one player action. TargetID is matched exactly and case-sensitively.
type Event struct {
	Kind     string `json:"kind" yaml:"kind"`
	TargetID string `json:"target_id" yaml:"target"`
}

// Filter selects the events a subscriber receives.
type Filter struct {
	Kinds []string // empty means every kind
}

func (f Filter) match(ev Event) bool {
	return len(f.Kinds) == 0 || slices.Contains(f.Kinds, ev.Kind)
}

// Handler consumes events.
type Handler func(ctx context.Context, ev Event)

// Subscription is returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}

// Stats are running counters for the bus.
type Stats struct {
	Published   uint64 `json:"published"`
	Delivered   uint64 `json:"delivered"`
	Unmatched   uint64 `json:"unmatched"`
	Subscribers int    `json:"subscribers"`
}

type subscriber struct {
	id      int
	filter  Filter
	handler Handler
}

type queued struct {
	ctx context.Context
	ev  Event
}

// Bus is a synchronous in-order event bus. The zero value is ready to use.
type Bus struct {
	mu          sync.Mutex
	subs        []subscriber
	nextID      int
	queue       []queued
	dispatching bool
	stats       Stats
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h for events matching f. Handlers run in subscription
// order.
func (b *Bus) Subscribe(f Filter, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, filter: f, handler: h})
	return &subscription{bus: b, id: id}
}

// Publish delivers ev to every matching subscriber. If a delivery is already
// in progress the event is queued behind it and Publish returns immediately.
// A panicking handler propagates to the goroutine that is dispatching; events
// still queued at that point are delivered by the next Publish.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev.Kind == "" {
		return ErrEmptyKind
	}
	b.mu.Lock()
	b.stats.Published++
	b.queue = append(b.queue, queued{ctx: ctx, ev: ev})
	if b.dispatching {
		b.mu.Unlock()
		return nil
	}
	b.dispatching = true
	b.mu.Unlock()
	b.dispatch()
	return nil
}

func (b *Bus) dispatch() {
	drained := false
	defer func() {
		if !drained {
			b.mu.Lock()
			b.dispatching = false
			b.mu.Unlock()
		}
	}()
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			drained = true
			b.mu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		subs := make([]subscriber, 0, len(b.subs))
		for _, s := range b.subs {
			if s.filter.match(next.ev) {
				subs = append(subs, s)
			}
		}
		if len(subs) == 0 {
			b.stats.Unmatched++
		}
		b.stats.Delivered += uint64(len(subs))
		b.mu.Unlock()
		for _, s := range subs {
			s.handler(next.ctx, next.ev)
		}
	}
}

// Stats returns a copy of the counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Subscribers = len(b.subs)
	return s
}

type subscription struct {
	bus  *Bus
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		s.bus.subs = slices.DeleteFunc(s.bus.subs, func(sub subscriber) bool { return sub.id == s.id })
	})
}
