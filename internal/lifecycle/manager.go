// Package lifecycle owns the schedules tied to a signed-in user: token
// refresh while the session lasts and periodic pending-action expiry.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rpggio/listingdraft/internal/listingapi"
)

const refreshTimeout = 30 * time.Second

// ErrNotSignedIn indicates no token is held for the owner.
var ErrNotSignedIn = errors.New("owner not signed in")

// TokenRenewer exchanges a token for a fresh one.
type TokenRenewer interface {
	RenewToken(ctx context.Context, token string) (string, error)
}

// PendingActions is the queue swept by the cleanup job.
type PendingActions interface {
	Cleanup(now time.Time, maxAge time.Duration) int
	Clear(ownerID string)
}

// Config sets the schedule intervals.
type Config struct {
	RefreshInterval time.Duration
	CleanupInterval time.Duration
	PendingMaxAge   time.Duration
}

type authSession struct {
	token   string
	entryID cron.EntryID
}

// Manager starts and stops per-owner refresh schedules on sign-in and
// sign-out. Nothing runs until Start is called.
type Manager struct {
	cron     *cron.Cron
	renewer  TokenRenewer
	pending  PendingActions
	cfg      Config
	logger   *slog.Logger
	mu       sync.Mutex
	sessions map[string]*authSession
}

// NewManager creates a stopped manager.
func NewManager(renewer TokenRenewer, pending PendingActions, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cl := cronLogger{logger: logger}
	return &Manager{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		renewer:  renewer,
		pending:  pending,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*authSession),
	}
}

// Start schedules the pending-action sweep and starts the scheduler.
func (m *Manager) Start() error {
	if m.pending != nil && m.cfg.CleanupInterval > 0 {
		if _, err := m.cron.AddFunc(every(m.cfg.CleanupInterval), m.cleanup); err != nil {
			return fmt.Errorf("failed to schedule pending cleanup: %w", err)
		}
	}
	m.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs or ctx.
func (m *Manager) Stop(ctx context.Context) error {
	done := m.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SignedIn stores the owner's token and schedules its refresh.
func (m *Manager) SignedIn(ownerID, token string) error {
	if ownerID == "" || token == "" {
		return listingapi.ErrNoToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.sessions[ownerID]; ok {
		m.cron.Remove(prev.entryID)
	}
	sess := &authSession{token: token}
	if m.renewer != nil && m.cfg.RefreshInterval > 0 {
		id, err := m.cron.AddFunc(every(m.cfg.RefreshInterval), func() {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			if err := m.RefreshNow(ctx, ownerID); err != nil {
				m.logger.Warn("token refresh failed", "owner_id", ownerID, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule token refresh: %w", err)
		}
		sess.entryID = id
	}
	m.sessions[ownerID] = sess
	m.logger.Info("session schedule started", "owner_id", ownerID)
	return nil
}

// SignedOut stops the owner's refresh schedule and drops pending actions.
func (m *Manager) SignedOut(ownerID string) {
	m.mu.Lock()
	sess, ok := m.sessions[ownerID]
	delete(m.sessions, ownerID)
	m.mu.Unlock()

	if ok && sess.entryID != 0 {
		m.cron.Remove(sess.entryID)
	}
	if m.pending != nil {
		m.pending.Clear(ownerID)
	}
	if ok {
		m.logger.Info("session schedule stopped", "owner_id", ownerID)
	}
}

// Token returns the latest token held for the owner.
func (m *Manager) Token(ownerID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[ownerID]
	if !ok {
		return "", false
	}
	return sess.token, true
}

// Scheduled reports whether a refresh job is registered for the owner.
func (m *Manager) Scheduled(ownerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[ownerID]
	return ok && m.cron.Entry(sess.entryID).Valid()
}

// RefreshNow renews the owner's token immediately. A rejected token signs
// the owner out.
func (m *Manager) RefreshNow(ctx context.Context, ownerID string) error {
	token, ok := m.Token(ownerID)
	if !ok {
		return ErrNotSignedIn
	}
	fresh, err := m.renewer.RenewToken(ctx, token)
	if err != nil {
		if errors.Is(err, listingapi.ErrUnauthorized) {
			m.SignedOut(ownerID)
		}
		return fmt.Errorf("failed to renew token: %w", err)
	}

	m.mu.Lock()
	if sess, ok := m.sessions[ownerID]; ok {
		sess.token = fresh
	}
	m.mu.Unlock()
	m.logger.Debug("token refreshed", "owner_id", ownerID)
	return nil
}

func (m *Manager) cleanup() {
	if n := m.pending.Cleanup(time.Now(), m.maxAge()); n > 0 {
		m.logger.Info("expired pending actions", "count", n)
	}
}

func (m *Manager) maxAge() time.Duration {
	if m.cfg.PendingMaxAge > 0 {
		return m.cfg.PendingMaxAge
	}
	return 30 * time.Minute
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// cronLogger routes scheduler logs through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
