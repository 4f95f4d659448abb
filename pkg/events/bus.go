package events

import (
	"sync"
	"time"
)

// Subscriber receives events from the bus.
type Subscriber interface {
	Receive(ev Event)
	Closed() bool
}

// Bus is a per-session pub/sub event bus with support for global
// subscribers. Sessions emit structured events; each subscriber
// (transcript writer, metrics, connection) encodes them its own way.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	global      []Subscriber
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific session's events.
func (b *Bus) Subscribe(session string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[session] = append(b.subscribers[session], sub)
}

// Unsubscribe removes a subscriber for a specific session.
func (b *Bus) Unsubscribe(session string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[session]
	for i, s := range subs {
		if s == sub {
			b.subscribers[session] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[session]) == 0 {
		delete(b.subscribers, session)
	}
}

// SubscribeGlobal registers a subscriber that receives all events.
func (b *Bus) SubscribeGlobal(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, sub)
}

// Emit sends an event to the session in ev.Session and all global
// subscribers. A zero Time is set to now.
func (b *Bus) Emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.mu.RLock()
	subs := b.subscribers[ev.Session]
	globals := b.global
	b.mu.RUnlock()

	deliver(subs, ev)
	deliver(globals, ev)
}

// Broadcast sends an event to every session's subscribers (with
// ev.Session set to that session) and once to the global subscribers.
func (b *Bus) Broadcast(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.mu.RLock()
	perSession := make(map[string][]Subscriber, len(b.subscribers))
	for id, subs := range b.subscribers {
		perSession[id] = subs
	}
	globals := b.global
	b.mu.RUnlock()

	for id, subs := range perSession {
		sessionEv := ev
		sessionEv.Session = id
		deliver(subs, sessionEv)
	}
	deliver(globals, ev)
}

func deliver(subs []Subscriber, ev Event) {
	for _, s := range subs {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// SessionSubscribers returns the number of subscribers for a session.
func (b *Bus) SessionSubscribers(session string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[session])
}

// Cleanup removes closed subscribers from all lists.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for session, subs := range b.subscribers {
		var active []Subscriber
		for _, s := range subs {
			if !s.Closed() {
				active = append(active, s)
			}
		}
		if len(active) == 0 {
			delete(b.subscribers, session)
		} else {
			b.subscribers[session] = active
		}
	}

	var activeGlobal []Subscriber
	for _, s := range b.global {
		if !s.Closed() {
			activeGlobal = append(activeGlobal, s)
		}
	}
	b.global = activeGlobal
}
