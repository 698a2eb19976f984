package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultListLimit = 50

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, ownerID string, entry *ActivityEntry) error {
	if entry == nil || ownerID == "" || entry.ActivityType == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, ownerID, entry); err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

// Record logs an entry and only warns on failure. The audit trail never
// blocks draft edits or uploads.
func (s *Service) Record(ctx context.Context, ownerID string, entry *ActivityEntry) {
	if err := s.LogActivity(ctx, ownerID, entry); err != nil && s.logger != nil {
		s.logger.Warn("activity not recorded",
			"owner_id", ownerID,
			"type", entry.ActivityType,
			"error", err,
		)
	}
}

// GetRecentActivity lists activity entries with filtering.
func (s *Service) GetRecentActivity(ctx context.Context, ownerID string, opts ListActivityOptions) ([]ActivityEntry, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	entries, err := s.repo.List(ctx, ownerID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}
