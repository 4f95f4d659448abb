package events

import (
	"sync"
	"testing"
)

// mockSubscriber implements Subscriber for testing.
type mockSubscriber struct {
	mu       sync.Mutex
	events   []Event
	isClosed bool
}

func (m *mockSubscriber) Receive(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Event, len(m.events))
	copy(cp, m.events)
	return cp
}

func TestBusEmitToSession(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}
	other := &mockSubscriber{}

	bus.Subscribe("s1", sub)
	bus.Subscribe("s2", other)

	bus.Emit(Event{Type: EvText, Session: "s1", Text: "A dusty cellar."})

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Text != "A dusty cellar." {
		t.Errorf("expected text %q, got %q", "A dusty cellar.", events[0].Text)
	}
	if events[0].Time.IsZero() {
		t.Error("expected Emit to stamp the event time")
	}
	if len(other.Events()) != 0 {
		t.Errorf("expected no events for another session, got %d", len(other.Events()))
	}
}

func TestBusGlobalSubscriber(t *testing.T) {
	bus := NewBus()
	global := &mockSubscriber{}
	bus.SubscribeGlobal(global)

	bus.Emit(Event{Type: EvInput, Session: "s5", Text: "GET LAMP"})

	events := global.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 global event, got %d", len(events))
	}
	if events[0].Session != "s5" {
		t.Errorf("expected session %q, got %q", "s5", events[0].Session)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}
	keep := &mockSubscriber{}

	bus.Subscribe("s1", sub)
	bus.Subscribe("s1", keep)
	bus.Unsubscribe("s1", sub)

	bus.Emit(Event{Type: EvText, Session: "s1", Text: "should not arrive"})

	if len(sub.Events()) != 0 {
		t.Error("expected no events after unsubscribe")
	}
	if len(keep.Events()) != 1 {
		t.Errorf("expected remaining subscriber to get 1 event, got %d", len(keep.Events()))
	}
	bus.Unsubscribe("s1", keep)
	if bus.SessionSubscribers("s1") != 0 {
		t.Errorf("expected no subscribers, got %d", bus.SessionSubscribers("s1"))
	}
}

func TestBusClosedSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{isClosed: true}

	bus.Subscribe("s1", sub)
	bus.Emit(Event{Type: EvText, Session: "s1", Text: "no delivery"})

	if len(sub.Events()) != 0 {
		t.Error("closed subscriber should not receive events")
	}
}

func TestBusBroadcast(t *testing.T) {
	bus := NewBus()
	sub1 := &mockSubscriber{}
	sub2 := &mockSubscriber{}
	global := &mockSubscriber{}
	bus.Subscribe("s1", sub1)
	bus.Subscribe("s2", sub2)
	bus.SubscribeGlobal(global)

	bus.Broadcast(Event{Type: EvReload, Game: "cellar", Text: "The game was updated."})

	for name, sub := range map[string]*mockSubscriber{"s1": sub1, "s2": sub2} {
		events := sub.Events()
		if len(events) != 1 {
			t.Errorf("%s: expected 1 event, got %d", name, len(events))
			continue
		}
		if events[0].Session != name {
			t.Errorf("%s: expected session set, got %q", name, events[0].Session)
		}
	}
	if len(global.Events()) != 1 {
		t.Errorf("global: expected 1 event, got %d", len(global.Events()))
	}
}

func TestBusCleanup(t *testing.T) {
	bus := NewBus()
	active := &mockSubscriber{}
	closed := &mockSubscriber{isClosed: true}

	bus.Subscribe("s1", active)
	bus.Subscribe("s1", closed)
	bus.SubscribeGlobal(&mockSubscriber{isClosed: true})

	bus.Cleanup()

	if bus.SessionSubscribers("s1") != 1 {
		t.Errorf("expected 1 active subscriber, got %d", bus.SessionSubscribers("s1"))
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EvText, "text"},
		{EvSentence, "sentence"},
		{EvUnknown, "unknown_words"},
		{EvSessionEnd, "session_end"},
		{EventType(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
