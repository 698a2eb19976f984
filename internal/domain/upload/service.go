package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/listingapi"
)

// Service pushes the active draft session to the remote API section by
// section. Head info goes first and anchors the session; the other
// sections need that anchor.
type Service struct {
	registries Registries
	api        ListingAPI
	logger     *slog.Logger
}

// NewService creates a new upload service.
func NewService(registries Registries, api ListingAPI, logger *slog.Logger) *Service {
	return &Service{
		registries: registries,
		api:        api,
		logger:     logger,
	}
}

// UploadSection uploads one section of the owner's active session. The
// error is non-nil only when the registry itself can't be reached.
func (s *Service) UploadSection(ctx context.Context, ownerID string, kind draft.Kind) (Result, error) {
	if _, ok := labels[kind]; !ok {
		return Result{}, draft.ErrUnknownKind
	}
	var res Result
	err := s.registries.With(ctx, ownerID, func(reg *registry.Registry) error {
		res = s.uploadSection(ctx, reg, kind)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to upload %s: %w", kind, err)
	}
	return res, nil
}

// UploadAll uploads head info if it isn't synced, then every pending
// dependent section in order. It never stops at the first failure.
func (s *Service) UploadAll(ctx context.Context, ownerID string) ([]Result, error) {
	var results []Result
	err := s.registries.With(ctx, ownerID, func(reg *registry.Registry) error {
		results = s.uploadAll(ctx, reg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload sections: %w", err)
	}
	return results, nil
}

// PersistOngoingCreate uploads everything pending and clears the unsaved
// flag only when every attempted section succeeded.
func (s *Service) PersistOngoingCreate(ctx context.Context, ownerID string) (Report, error) {
	var report Report
	err := s.registries.With(ctx, ownerID, func(reg *registry.Registry) error {
		results := s.uploadAll(ctx, reg)
		report.Results = results

		var failed int
		for _, r := range results {
			if r.Success {
				continue
			}
			failed++
			if len(r.Errors) > 0 {
				report.Errors = append(report.Errors, r.Errors...)
			} else {
				report.Errors = append(report.Errors, r.Message)
			}
		}
		if failed > 0 {
			report.Message = persistFailedMessage(failed)
			return nil
		}

		reg.MarkClean()
		s.save(ctx, reg)
		reg.Record(ctx, activity.TypeDraftPersisted, nil, persistedMessage)
		report.Success = true
		report.Message = persistedMessage
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to persist draft: %w", err)
	}
	return report, nil
}

func (s *Service) uploadAll(ctx context.Context, reg *registry.Registry) []Result {
	var results []Result
	if !reg.Active().HeadInfo.Synced() {
		results = append(results, s.uploadSection(ctx, reg, draft.KindHeadInfo))
	}
	if !reg.Active().Anchor.IsAnchored() {
		return results
	}
	for _, kind := range draft.DependentKinds {
		sec := reg.Active().Section(kind)
		if sec.Synced() || !sec.HasData() {
			continue
		}
		results = append(results, s.uploadSection(ctx, reg, kind))
	}
	return results
}

func (s *Service) uploadSection(ctx context.Context, reg *registry.Registry, kind draft.Kind) Result {
	sess := reg.Active()
	sec := sess.Section(kind)

	remoteID, anchored := sess.Anchor.RemoteID()
	if kind != draft.KindHeadInfo && !anchored {
		return Result{Section: kind, Message: notAnchoredMessage(kind)}
	}
	if !sec.HasData() {
		return Result{Section: kind, Message: noDataMessage(kind)}
	}
	target := remoteID
	if !anchored {
		target = sess.ID
	}

	if err := ctx.Err(); err != nil {
		return Result{Section: kind, Message: failureMessage(kind), Errors: []string{err.Error()}}
	}

	respData, err := s.send(ctx, kind, target, anchored, sec.Data)
	if err != nil && ctx.Err() != nil {
		// Cancelled by the caller; the section keeps its status.
		s.log(ctx, slog.LevelInfo, "section upload cancelled", sess.ID, kind, "error", err)
		return Result{Section: kind, Message: failureMessage(kind), Errors: []string{err.Error()}, Attempted: true}
	}
	if err == nil && kind == draft.KindHeadInfo && !anchored {
		if id := extractID(respData); id != "" {
			reg.Anchor(id)
		} else {
			err = ErrMissingRemoteID
		}
	}

	now := time.Now()
	section := string(kind)
	if err != nil {
		detail := err.Error()
		sec.MarkFailed(detail, now)
		if kind == draft.KindFiles {
			sec.Data = withFileStatus(sec.Data, draft.FileFailed, detail)
		}
		s.save(ctx, reg)
		reg.Record(ctx, activity.TypeSectionFailed, &section, detail)
		s.log(ctx, slog.LevelWarn, "section upload failed", sess.ID, kind, "error", detail)
		return Result{
			Section:   kind,
			Message:   failureMessage(kind),
			Errors:    []string{detail},
			Attempted: true,
		}
	}

	sec.MarkSynced(now)
	if kind == draft.KindFiles {
		sec.Data = withFileStatus(sec.Data, draft.FileCompleted, "")
	}
	s.save(ctx, reg)
	reg.Record(ctx, activity.TypeSectionSynced, &section, successMessage(kind))
	s.log(ctx, slog.LevelInfo, "section synced", sess.ID, kind, "target", target)

	return Result{
		Section:   kind,
		Success:   true,
		Message:   successMessage(kind),
		Data:      respData,
		Attempted: true,
	}
}

func (s *Service) send(ctx context.Context, kind draft.Kind, target string, anchored bool, data draft.Payload) (json.RawMessage, error) {
	var (
		env *listingapi.Envelope
		err error
	)
	switch {
	case kind == draft.KindFiles:
		files, _ := data.(draft.FileList)
		env, err = s.api.UploadFiles(ctx, target, files)
	case kind == draft.KindHeadInfo && !anchored:
		env, err = s.api.CreateRental(ctx, target, data)
	default:
		env, err = s.api.SubmitSection(ctx, kind, target, data)
	}
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// save persists the registry. A failed write is logged and the in-memory
// state still reflects the upload outcome.
func (s *Service) save(ctx context.Context, reg *registry.Registry) {
	if err := reg.Save(ctx); err != nil {
		s.log(ctx, slog.LevelError, "saving registry after upload", reg.Active().ID, "", "error", err)
	}
}

func (s *Service) log(ctx context.Context, level slog.Level, msg, sessionID string, kind draft.Kind, args ...any) {
	if s.logger == nil {
		return
	}
	args = append([]any{"session_id", sessionID, "section", kind}, args...)
	s.logger.Log(ctx, level, msg, args...)
}

func withFileStatus(p draft.Payload, status draft.FileStatus, errMsg string) draft.Payload {
	files, ok := p.(draft.FileList)
	if !ok {
		return p
	}
	files = slices.Clone(files)
	for i := range files {
		files[i].Status = status
		files[i].Error = errMsg
	}
	return files
}

// extractID reads data.id, which the API sends as a string or a number.
func extractID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var body struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.ID) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(body.ID, &id); err == nil {
		return id
	}
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(body.ID))
	dec.UseNumber()
	if err := dec.Decode(&num); err == nil {
		return num.String()
	}
	return ""
}
