package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spbe-academy/devops-academy/internal/store"
)

// Event kinds streamed to clients.
const (
	KindActivity = "activity"
	KindIdentity = "identity"
)

// Event is one message on a session's event stream.
type Event struct {
	Kind string    `json:"kind"`
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

const subscriberBuffer = 16

// Broker fans events out to subscribers. Slow subscribers miss events
// rather than block publishers.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a function that cancels the
// subscription. The channel is closed on cancel or when the broker closes.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish delivers ev to every subscriber without blocking.
func (b *Broker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("dropping event for slow subscriber", "subscriber", id, "type", ev.Type)
		}
	}
}

// LogActivity publishes an activity entry, so a Broker can sit in a MultiLogger.
func (b *Broker) LogActivity(_ context.Context, entry store.ActivityEntry) error {
	b.Publish(Event{Kind: KindActivity, Type: entry.Type, Data: entry, At: entry.CreatedAt})
	return nil
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
