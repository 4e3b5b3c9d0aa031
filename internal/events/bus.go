// Package events implements the fan-out layer: a single hub that delivers
// system, bar-closed, signal-check and signal events to any number of
// subscribers, with the "drop subscriber, never block the producer" policy
// and replay-on-connect for the latest signal_check per symbol and the
// current system status.
package events

import (
	"sync"
	"time"

	"vn-signal-engine/internal/model"
)

// Kind identifies one of the four event kinds the spec defines.
type Kind string

const (
	KindSystem      Kind = "system"
	KindBarClosed   Kind = "bar_closed"
	KindSignalCheck Kind = "signal_check"
	KindSignal      Kind = "signal"
)

// Envelope is the subscriber-facing wrapper: `{ event: "<kind>", data: ... }`.
type Envelope struct {
	Event Kind        `json:"event"`
	Data  interface{} `json:"data"`
}

// SystemStatus is the payload of a KindSystem event.
type SystemStatus struct {
	Status        string    `json:"status"`
	DNSEConnected bool      `json:"dnse_connected"`
	Timestamp     time.Time `json:"timestamp"`
}

const subscriberBuffer = 256

type subscriber struct {
	id string
	ch chan Envelope
}

// Bus is the fan-out hub. It is safe for concurrent Publish/Subscribe from
// any number of goroutines; the per-symbol workers that publish into it and
// the API layer that subscribes from it never share any other state.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber

	cacheMu        sync.RWMutex
	lastSignalCheck map[string]Envelope // keyed by symbol
	lastSystem      *Envelope
}

// NewBus creates an empty fan-out hub.
func NewBus() *Bus {
	return &Bus{
		subscribers:     make(map[string]*subscriber),
		lastSignalCheck: make(map[string]Envelope),
	}
}

// Subscribe registers a new subscriber under id and returns its delivery
// channel and an unsubscribe func. On connect the cached latest
// signal_check for every symbol and the current system status are replayed
// immediately; bar history is never replayed.
func (b *Bus) Subscribe(id string) (<-chan Envelope, func()) {
	sub := &subscriber{id: id, ch: make(chan Envelope, subscriberBuffer)}

	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()

	b.cacheMu.RLock()
	if b.lastSystem != nil {
		sub.ch <- *b.lastSystem
	}
	for _, env := range b.lastSignalCheck {
		sub.ch <- env
	}
	b.cacheMu.RUnlock()

	return sub.ch, func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

// publish delivers env to every subscriber without blocking; a subscriber
// whose buffer is full is dropped, the event is not retried, and the
// producer never waits.
func (b *Bus) publish(env Envelope) {
	b.mu.RLock()
	full := make([]string, 0)
	for id, sub := range b.subscribers {
		select {
		case sub.ch <- env:
		default:
			full = append(full, id)
		}
	}
	b.mu.RUnlock()

	for _, id := range full {
		b.unsubscribe(id)
	}
}

// PublishSystem emits a system status event and caches it for replay.
func (b *Bus) PublishSystem(status string, dnseConnected bool) {
	env := Envelope{Event: KindSystem, Data: SystemStatus{
		Status:        status,
		DNSEConnected: dnseConnected,
		Timestamp:     time.Now(),
	}}
	b.cacheMu.Lock()
	b.lastSystem = &env
	b.cacheMu.Unlock()
	b.publish(env)
}

// PublishBarClosed emits the raw bar record. Bar history is never replayed
// to new subscribers, so this is not cached.
func (b *Bus) PublishBarClosed(bar model.Bar) {
	b.publish(Envelope{Event: KindBarClosed, Data: bar})
}

// PublishSignalCheck emits (and caches, per symbol) the latest signal_check
// analysis snapshot.
func (b *Bus) PublishSignalCheck(symbol string, payload interface{}) {
	env := Envelope{Event: KindSignalCheck, Data: payload}
	b.cacheMu.Lock()
	b.lastSignalCheck[symbol] = env
	b.cacheMu.Unlock()
	b.publish(env)
}

// PublishSignal emits a new signal event.
func (b *Bus) PublishSignal(signal model.Signal) {
	b.publish(Envelope{Event: KindSignal, Data: signal})
}

// SubscriberCount reports how many subscribers are currently registered.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
