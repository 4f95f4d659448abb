package transcript

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/crystal-mush/godaad/pkg/events"
)

// Writer is a global event bus subscriber that writes session output,
// input and timeouts to the store.
type Writer struct {
	store  *Store
	mu     sync.Mutex
	closed bool
}

// NewWriter creates a writer and registers it as a global subscriber on
// bus.
func NewWriter(store *Store, bus *events.Bus) *Writer {
	w := &Writer{store: store}
	bus.SubscribeGlobal(w)
	log.Printf("transcript: writer registered on event bus")
	return w
}

// Receive implements events.Subscriber.
func (w *Writer) Receive(ev events.Event) {
	if ev.Session == "" {
		return
	}
	var err error
	switch ev.Type {
	case events.EvSessionStart:
		err = w.store.StartSession(ev.Session, ev.Game, ev.Time)
	case events.EvSessionEnd:
		turns, _ := ev.Data["turns"].(uint16)
		err = w.store.EndSession(ev.Session, int(turns), ev.Time)
	case events.EvText:
		err = w.store.Append(ev.Session, KindOutput, ev.Text, ev.Time)
	case events.EvInput:
		err = w.store.Append(ev.Session, KindInput, ev.Text, ev.Time)
	case events.EvTimeout:
		err = w.store.Append(ev.Session, KindTimeout, "", ev.Time)
	default:
		return
	}
	if err != nil {
		log.Printf("transcript: %s event: %v", ev.Type, err)
	}
}

// Closed implements events.Subscriber.
func (w *Writer) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close marks the writer as closed so the bus stops delivering events.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// RunRetention purges sessions older than retention every interval until
// ctx ends.
func RunRetention(ctx context.Context, store *Store, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := store.Purge(time.Now().Add(-retention))
			if err != nil {
				log.Printf("transcript: cleanup error: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("transcript: purged %d old sessions", purged)
			}
		}
	}
}
