package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/notify"
	"github.com/rpggio/listingdraft/internal/repository"
)

// Service keeps one Registry per owner, loaded lazily from the snapshot
// store. Operations for the same owner run one at a time.
type Service struct {
	store      SnapshotStore
	notifier   notify.Notifier
	activities ActivityRecorder
	logger     *slog.Logger
	origin     string

	mu          sync.Mutex
	owners      map[string]*ownerState
	unsubscribe func()
}

type ownerState struct {
	mu    sync.Mutex
	reg   *Registry
	stale atomic.Bool
}

// NewService creates a registry service. notifier and activities may be nil.
func NewService(store SnapshotStore, notifier notify.Notifier, activities ActivityRecorder, logger *slog.Logger) *Service {
	s := &Service{
		store:      store,
		notifier:   notifier,
		activities: activities,
		logger:     logger,
		origin:     uuid.NewString(),
		owners:     make(map[string]*ownerState),
	}
	if notifier != nil {
		s.unsubscribe = notifier.Subscribe(s.handleChange)
	}
	return s
}

// Origin identifies this service instance in published changes.
func (s *Service) Origin() string {
	return s.origin
}

// Close stops listening for changes from other instances.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// With runs fn against the owner's registry while holding the owner lock.
// When fn fails the cached registry is dropped and the next call reloads
// it from the store, so a half-applied edit is never served.
func (s *Service) With(ctx context.Context, ownerID string, fn func(*Registry) error) error {
	if ownerID == "" {
		return ErrInvalidInput
	}
	st := s.owner(ownerID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.reg == nil || st.stale.Swap(false) {
		reg, err := s.load(ctx, ownerID)
		if err != nil {
			return err
		}
		st.reg = reg
	}
	if err := fn(st.reg); err != nil {
		st.reg = nil
		return err
	}
	return nil
}

// StartNew creates and activates a fresh draft session.
func (s *Service) StartNew(ctx context.Context, ownerID string) (*draft.Session, error) {
	var out *draft.Session
	err := s.With(ctx, ownerID, func(r *Registry) error {
		sess, err := r.StartNew(ctx)
		out = sess.Clone()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start draft: %w", err)
	}
	return out, nil
}

// SwitchTo activates a registered session.
func (s *Service) SwitchTo(ctx context.Context, ownerID, sessionID string) (*draft.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	var out *draft.Session
	err := s.With(ctx, ownerID, func(r *Registry) error {
		if err := r.SwitchTo(ctx, sessionID); err != nil {
			return err
		}
		out = r.Active().Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a session, starting a new one if it was active, and
// returns the removed session.
func (s *Service) Delete(ctx context.Context, ownerID, sessionID string) (*draft.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	var removed *draft.Session
	err := s.With(ctx, ownerID, func(r *Registry) error {
		sess, err := r.Delete(ctx, sessionID)
		if err != nil {
			return err
		}
		removed = sess.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// List returns summaries of every registered session.
func (s *Service) List(ctx context.Context, ownerID string) ([]draft.Summary, error) {
	var out []draft.Summary
	err := s.With(ctx, ownerID, func(r *Registry) error {
		out = slices.Collect(r.List())
		return nil
	})
	return out, err
}

// Active returns a copy of the active session.
func (s *Service) Active(ctx context.Context, ownerID string) (*draft.Session, error) {
	var out *draft.Session
	err := s.With(ctx, ownerID, func(r *Registry) error {
		out = r.Active().Clone()
		return nil
	})
	return out, err
}

// SetSection replaces one section of the active session.
func (s *Service) SetSection(ctx context.Context, ownerID string, data draft.Payload) (*draft.Session, error) {
	return s.mutate(ctx, ownerID, func(r *Registry) error {
		return r.SetSection(ctx, data)
	})
}

// AddFiles appends staged files to the active session.
func (s *Service) AddFiles(ctx context.Context, ownerID string, handles ...draft.FileHandle) (*draft.Session, error) {
	return s.mutate(ctx, ownerID, func(r *Registry) error {
		return r.AddFiles(ctx, handles...)
	})
}

// RemoveFile drops a file from the active session and returns its handle.
func (s *Service) RemoveFile(ctx context.Context, ownerID, fileID string) (draft.FileHandle, error) {
	var removed draft.FileHandle
	err := s.With(ctx, ownerID, func(r *Registry) error {
		var err error
		removed, err = r.RemoveFile(ctx, fileID)
		return err
	})
	return removed, err
}

// Reset swaps the active session for a fresh one.
func (s *Service) Reset(ctx context.Context, ownerID string) (*draft.Session, error) {
	return s.mutate(ctx, ownerID, func(r *Registry) error {
		return r.Reset(ctx)
	})
}

func (s *Service) mutate(ctx context.Context, ownerID string, fn func(*Registry) error) (*draft.Session, error) {
	var out *draft.Session
	err := s.With(ctx, ownerID, func(r *Registry) error {
		if err := fn(r); err != nil {
			return err
		}
		out = r.Active().Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) owner(ownerID string) *ownerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.owners[ownerID]
	if !ok {
		st = &ownerState{}
		s.owners[ownerID] = st
	}
	return st
}

func (s *Service) load(ctx context.Context, ownerID string) (*Registry, error) {
	snap, err := s.store.Load(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to load registry: %w", err)
		}
		snap = nil
	}
	persist := func(ctx context.Context, snap *Snapshot) error {
		return s.persist(ctx, ownerID, snap)
	}
	return newRegistry(ownerID, snap, persist, s.activities), nil
}

func (s *Service) persist(ctx context.Context, ownerID string, snap *Snapshot) error {
	if err := s.store.Save(ctx, ownerID, snap); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	if s.notifier == nil {
		return nil
	}
	change := notify.Change{OwnerID: ownerID, Origin: s.origin, At: time.Now()}
	if err := s.notifier.Publish(ctx, change); err != nil && s.logger != nil {
		s.logger.Warn("state change not published", "owner_id", ownerID, "error", err)
	}
	return nil
}

// handleChange drops the cached registry when another instance wrote it.
func (s *Service) handleChange(change notify.Change) {
	if change.Origin == s.origin {
		return
	}
	s.mu.Lock()
	st, ok := s.owners[change.OwnerID]
	s.mu.Unlock()
	if !ok {
		return
	}
	st.stale.Store(true)
	if s.logger != nil {
		s.logger.Debug("registry invalidated by remote write",
			"owner_id", change.OwnerID,
			"origin", change.Origin,
		)
	}
}
