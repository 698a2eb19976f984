// Package pending queues actions a user attempted while signed out so
// they can be replayed after sign-in.
package pending

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAge is how long an action stays replayable.
const DefaultMaxAge = 30 * time.Minute

// ErrInvalidInput indicates an action without owner, kind or target.
var ErrInvalidInput = errors.New("invalid pending action")

// Kind says how an action is replayed.
type Kind string

const (
	KindRoute  Kind = "route"
	KindAction Kind = "action"
)

// Action is one deferred user intent.
type Action struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Target    string          `json:"target"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue holds pending actions per owner.
type Queue struct {
	mu      sync.Mutex
	byOwner map[string][]Action
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{byOwner: make(map[string][]Action)}
}

// Add queues an action. An existing action with the same kind and target
// is replaced.
func (q *Queue) Add(ownerID string, kind Kind, target string, payload json.RawMessage) (Action, error) {
	if ownerID == "" || target == "" || (kind != KindRoute && kind != KindAction) {
		return Action{}, ErrInvalidInput
	}
	action := Action{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    target,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	actions := slices.DeleteFunc(q.byOwner[ownerID], func(a Action) bool {
		return a.Kind == kind && a.Target == target
	})
	q.byOwner[ownerID] = append(actions, action)
	return action, nil
}

// List returns the owner's queued actions, oldest first.
func (q *Queue) List(ownerID string) []Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.byOwner[ownerID])
}

// PopAll drains the owner's queue.
func (q *Queue) PopAll(ownerID string) []Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	actions := q.byOwner[ownerID]
	delete(q.byOwner, ownerID)
	return actions
}

// Clear drops the owner's queue.
func (q *Queue) Clear(ownerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.byOwner, ownerID)
}

// Cleanup removes actions older than maxAge and returns how many went.
func (q *Queue) Cleanup(now time.Time, maxAge time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for owner, actions := range q.byOwner {
		kept := slices.DeleteFunc(actions, func(a Action) bool {
			return now.Sub(a.CreatedAt) > maxAge
		})
		removed += len(actions) - len(kept)
		if len(kept) == 0 {
			delete(q.byOwner, owner)
			continue
		}
		q.byOwner[owner] = kept
	}
	return removed
}
