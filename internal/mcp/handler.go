package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/completeness"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/upload"
)

// DraftService defines session registry operations needed by MCP.
type DraftService interface {
	StartNew(ctx context.Context, ownerID string) (*draft.Session, error)
	SwitchTo(ctx context.Context, ownerID, sessionID string) (*draft.Session, error)
	Delete(ctx context.Context, ownerID, sessionID string) (*draft.Session, error)
	List(ctx context.Context, ownerID string) ([]draft.Summary, error)
	Active(ctx context.Context, ownerID string) (*draft.Session, error)
	SetSection(ctx context.Context, ownerID string, data draft.Payload) (*draft.Session, error)
	AddFiles(ctx context.Context, ownerID string, handles ...draft.FileHandle) (*draft.Session, error)
	RemoveFile(ctx context.Context, ownerID, fileID string) (draft.FileHandle, error)
	Reset(ctx context.Context, ownerID string) (*draft.Session, error)
}

// UploadService defines sync operations needed by MCP.
type UploadService interface {
	UploadSection(ctx context.Context, ownerID string, kind draft.Kind) (upload.Result, error)
	UploadAll(ctx context.Context, ownerID string) ([]upload.Result, error)
	PersistOngoingCreate(ctx context.Context, ownerID string) (upload.Report, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, ownerID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// FileStager stores file content until the files section is uploaded.
type FileStager interface {
	Put(ctx context.Context, ownerID, name, contentType string, r io.Reader) (draft.FileHandle, error)
	Remove(h draft.FileHandle) error
}

// Handler dispatches MCP tool calls.
type Handler struct {
	drafts   DraftService
	uploads  UploadService
	activity ActivityService
	files    FileStager
}

// NewHandler creates a new MCP handler.
func NewHandler(drafts DraftService, uploads UploadService, activitySvc ActivityService, files FileStager) *Handler {
	return &Handler{
		drafts:   drafts,
		uploads:  uploads,
		activity: activitySvc,
		files:    files,
	}
}

// Handle dispatches a tool call to domain services.
func (h *Handler) Handle(ctx context.Context, ownerID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "start_draft":
		sess, err := h.drafts.StartNew(ctx, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		return viewOf(sess), nil
	case "list_drafts":
		summaries, err := h.drafts.List(ctx, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		if summaries == nil {
			summaries = []draft.Summary{}
		}
		return summaries, nil
	case "switch_draft":
		var req SwitchDraftParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.drafts.SwitchTo(ctx, ownerID, req.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return viewOf(sess), nil
	case "delete_draft":
		var req DeleteDraftParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		removed, err := h.drafts.Delete(ctx, ownerID, req.ID)
		if err != nil {
			return nil, mapError(err)
		}
		for _, handle := range removed.FileHandles() {
			_ = h.files.Remove(handle)
		}
		return DeleteDraftResponse{Deleted: req.ID}, nil
	case "get_active_draft":
		sess, err := h.drafts.Active(ctx, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		return viewOf(sess), nil
	case "reset_draft":
		sess, err := h.drafts.Reset(ctx, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		return viewOf(sess), nil
	case "set_head_info":
		return h.setSection(ctx, ownerID, draft.KindHeadInfo, params)
	case "set_location":
		return h.setSection(ctx, ownerID, draft.KindLocation, params)
	case "set_price":
		return h.setSection(ctx, ownerID, draft.KindPrice, params)
	case "set_amenities":
		var req SetAmenitiesParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.setSection(ctx, ownerID, draft.KindAmenities, req.Amenities)
	case "set_rules":
		var req SetRulesParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.setSection(ctx, ownerID, draft.KindRules, req.Rules)
	case "add_files":
		var req AddFilesParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.addFiles(ctx, ownerID, req.Files)
	case "remove_file":
		var req RemoveFileParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		handle, err := h.drafts.RemoveFile(ctx, ownerID, req.FileID)
		if err != nil {
			return nil, mapError(err)
		}
		// the staged copy is no longer referenced
		_ = h.files.Remove(handle)
		sess, err := h.drafts.Active(ctx, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		return RemoveFileResponse{Removed: handle, Session: sess}, nil
	case "upload_section":
		var req UploadSectionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		kind, err := draft.ParseKind(req.Section)
		if err != nil {
			return nil, mapError(err)
		}
		result, err := h.uploads.UploadSection(ctx, ownerID, kind)
		if err != nil {
			return nil, mapError(err)
		}
		return result, nil
	case "upload_all":
		results, err := h.uploads.UploadAll(ctx, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		if results == nil {
			results = []upload.Result{}
		}
		return results, nil
	case "persist_draft":
		report, err := h.uploads.PersistOngoingCreate(ctx, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		return report, nil
	case "check_completeness":
		sess, err := h.drafts.Active(ctx, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		return completeness.Evaluate(sess), nil
	case "get_recent_activity":
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListActivityOptions{
			SessionID: req.SessionID,
			Section:   req.Section,
			Limit:     req.Limit,
			Offset:    req.Offset,
		}
		if req.Type != nil {
			t := activity.ActivityType(*req.Type)
			opts.ActivityType = &t
		}
		entries, err := h.activity.GetRecentActivity(ctx, ownerID, opts)
		if err != nil {
			return nil, mapError(err)
		}
		if entries == nil {
			entries = []activity.ActivityEntry{}
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", method)
	}
}

func (h *Handler) setSection(ctx context.Context, ownerID string, kind draft.Kind, raw json.RawMessage) (any, error) {
	data, err := draft.DecodePayload(kind, raw)
	if err != nil {
		return nil, mapError(err)
	}
	sess, err := h.drafts.SetSection(ctx, ownerID, data)
	if err != nil {
		return nil, mapError(err)
	}
	return viewOf(sess), nil
}

func (h *Handler) addFiles(ctx context.Context, ownerID string, uploads []FileUpload) (any, error) {
	if len(uploads) == 0 {
		return nil, &APIError{Code: "NO_FILES", Message: "No files to upload", RecoveryHint: "Pass at least one file"}
	}

	handles := make([]draft.FileHandle, 0, len(uploads))
	discard := func() {
		for _, hd := range handles {
			_ = h.files.Remove(hd)
		}
	}
	for _, f := range uploads {
		content, err := base64.StdEncoding.DecodeString(f.ContentBase64)
		if err != nil {
			discard()
			return nil, &APIError{Code: "INVALID_INPUT", Message: fmt.Sprintf("file %s is not valid base64", f.Name)}
		}
		handle, err := h.files.Put(ctx, ownerID, f.Name, f.ContentType, bytes.NewReader(content))
		if err != nil {
			discard()
			return nil, mapError(err)
		}
		handles = append(handles, handle)
	}

	sess, err := h.drafts.AddFiles(ctx, ownerID, handles...)
	if err != nil {
		discard()
		return nil, mapError(err)
	}
	return viewOf(sess), nil
}

func viewOf(sess *draft.Session) DraftView {
	return DraftView{
		Session:      sess,
		Title:        sess.Title(),
		Progress:     sess.Progress(),
		Completeness: completeness.Evaluate(sess),
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check the tool's input schema"}
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
