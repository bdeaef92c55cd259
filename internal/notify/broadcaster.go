// Package notify fans appended access events out to SSE subscribers.
// Delivery is fire-and-forget: a slow or gone subscriber is skipped and
// never affects ledger correctness.
package notify

import (
	"log/slog"
	"sync"

	"github.com/gin-contrib/sse"
	"github.com/google/uuid"

	"facility-access-control/internal/storage"
)

// subscriber channels are buffered; events past the buffer are dropped
// for that subscriber rather than blocking the tap path.
const subscriberBuffer = 16

type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]chan sse.Event
	logger *slog.Logger
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string]chan sse.Event),
		logger: slog.With("component", "notify"),
	}
}

// Subscribe registers a new listener and returns its id and channel.
func (b *Broadcaster) Subscribe() (string, <-chan sse.Event) {
	id := uuid.NewString()
	ch := make(chan sse.Event, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[id] = ch
	return id, ch
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends the event to every subscriber without blocking.
func (b *Broadcaster) Publish(event *storage.AccessEvent) {
	message := sse.Event{
		Id:    uuid.NewString(),
		Event: "access_event",
		Data:  event,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- message:
		default:
			b.logger.Debug("Dropping event for slow subscriber", "subscriber", id, "event_id", event.ID)
		}
	}
}

// Subscribers returns the current listener count.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
