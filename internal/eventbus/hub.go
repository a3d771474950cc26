// Package eventbus fans engine events out to subscribers without blocking
// the publisher.
package eventbus

import (
	"context"
	"sync"
	"time"
)

// Type names an engine event.
type Type string

const (
	Optimistic  Type = "optimistic"
	Confirmed   Type = "confirmed"
	RolledBack  Type = "rolled_back"
	Points      Type = "points"
	Achievement Type = "achievement"
)

// Event is one notification from the engine. Fields that do not apply to the
// event type are left zero.
type Event struct {
	Type        Type      `json:"type"`
	Time        time.Time `json:"time"`
	OperationID string    `json:"operation_id,omitempty"`
	HabitID     string    `json:"habit_id,omitempty"`
	Date        string    `json:"date,omitempty"`
	Added       bool      `json:"added,omitempty"`
	Delta       int       `json:"delta,omitempty"`
	Total       int       `json:"total,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Err         string    `json:"error,omitempty"`
}

type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish delivers evt to every subscriber with room in its buffer. Slow
// subscribers miss the event.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe returns a channel that receives events until ctx ends, at which
// point the channel is closed.
func (h *Hub) Subscribe(ctx context.Context, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
