// Package notify fans out draft state changes to subscribers in the
// process. Cross-process delivery is layered on top by redisstore.
package notify

import (
	"context"
	"sync"
	"time"
)

// Change announces that an owner's persisted registry was overwritten.
type Change struct {
	OwnerID string    `json:"owner_id"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

// Handler receives changes. It runs on the publisher's goroutine and
// must not block.
type Handler func(Change)

// Notifier publishes changes and lets the session layer subscribe.
type Notifier interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(fn Handler) (cancel func())
}

// Hub is an in-process Notifier.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{handlers: make(map[int]Handler)}
}

// Publish delivers change to every current subscriber.
func (h *Hub) Publish(_ context.Context, change Change) error {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(change)
	}
	return nil
}

// Subscribe registers fn until cancel is called.
func (h *Hub) Subscribe(fn Handler) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}
