package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/completeness"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/domain/upload"
	"github.com/stretchr/testify/require"
)

// fakeDrafts keeps one owner's drafts in memory.
type fakeDrafts struct {
	active   *draft.Session
	sessions map[string]*draft.Session
	owners   []string
}

func newFakeDrafts() *fakeDrafts {
	sess := draft.NewSession(time.Now())
	return &fakeDrafts{active: sess, sessions: map[string]*draft.Session{sess.ID: sess.Clone()}}
}

func (f *fakeDrafts) seen(ownerID string) { f.owners = append(f.owners, ownerID) }

func (f *fakeDrafts) save() *draft.Session {
	f.sessions[f.active.ID] = f.active.Clone()
	return f.active.Clone()
}

func (f *fakeDrafts) StartNew(_ context.Context, ownerID string) (*draft.Session, error) {
	f.seen(ownerID)
	f.active = draft.NewSession(time.Now())
	return f.save(), nil
}

func (f *fakeDrafts) SwitchTo(_ context.Context, ownerID, id string) (*draft.Session, error) {
	f.seen(ownerID)
	sess, ok := f.sessions[id]
	if !ok {
		return nil, registry.ErrSessionNotFound
	}
	f.active = sess.Clone()
	return f.active.Clone(), nil
}

func (f *fakeDrafts) Delete(_ context.Context, ownerID, id string) (*draft.Session, error) {
	f.seen(ownerID)
	sess, ok := f.sessions[id]
	if !ok {
		return nil, registry.ErrSessionNotFound
	}
	delete(f.sessions, id)
	if f.active.ID == id {
		f.active = draft.NewSession(time.Now())
		f.save()
	}
	return sess, nil
}

func (f *fakeDrafts) List(_ context.Context, ownerID string) ([]draft.Summary, error) {
	f.seen(ownerID)
	var out []draft.Summary
	for _, sess := range f.sessions {
		out = append(out, sess.Summarize())
	}
	return out, nil
}

func (f *fakeDrafts) Active(_ context.Context, ownerID string) (*draft.Session, error) {
	f.seen(ownerID)
	return f.active.Clone(), nil
}

func (f *fakeDrafts) SetSection(_ context.Context, ownerID string, data draft.Payload) (*draft.Session, error) {
	f.seen(ownerID)
	if err := f.active.Set(data, time.Now()); err != nil {
		return nil, err
	}
	return f.save(), nil
}

func (f *fakeDrafts) AddFiles(_ context.Context, ownerID string, handles ...draft.FileHandle) (*draft.Session, error) {
	f.seen(ownerID)
	if err := f.active.AddFiles(time.Now(), handles...); err != nil {
		return nil, err
	}
	return f.save(), nil
}

func (f *fakeDrafts) RemoveFile(_ context.Context, ownerID, fileID string) (draft.FileHandle, error) {
	f.seen(ownerID)
	h, err := f.active.RemoveFile(fileID, time.Now())
	if err != nil {
		return draft.FileHandle{}, err
	}
	f.save()
	return h, nil
}

func (f *fakeDrafts) Reset(_ context.Context, ownerID string) (*draft.Session, error) {
	f.seen(ownerID)
	f.active = draft.NewSession(time.Now())
	return f.save(), nil
}

type uploadStub struct {
	sectionFn func(context.Context, string, draft.Kind) (upload.Result, error)
}

func (u uploadStub) UploadSection(ctx context.Context, ownerID string, kind draft.Kind) (upload.Result, error) {
	return u.sectionFn(ctx, ownerID, kind)
}

func (u uploadStub) UploadAll(context.Context, string) ([]upload.Result, error) {
	return nil, nil
}

func (u uploadStub) PersistOngoingCreate(context.Context, string) (upload.Report, error) {
	return upload.Report{Success: true, Message: "All sections saved successfully"}, nil
}

type activityStub struct {
	listFn func(context.Context, string, activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

func (a activityStub) GetRecentActivity(ctx context.Context, ownerID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	return a.listFn(ctx, ownerID, opts)
}

type memFiles struct {
	stored  map[string][]byte
	removed []string
}

func (m *memFiles) Put(_ context.Context, _ string, name, contentType string, r io.Reader) (draft.FileHandle, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return draft.FileHandle{}, err
	}
	id := uuid.NewString()
	m.stored[id] = b
	return draft.FileHandle{ID: id, Name: name, ContentType: contentType, Size: int64(len(b)), Path: "/staging/" + id, Status: draft.FilePending}, nil
}

func (m *memFiles) Remove(h draft.FileHandle) error {
	m.removed = append(m.removed, h.ID)
	delete(m.stored, h.ID)
	return nil
}

func newTestHandler() (*Handler, *fakeDrafts, *memFiles) {
	drafts := newFakeDrafts()
	files := &memFiles{stored: map[string][]byte{}}
	handler := NewHandler(drafts,
		uploadStub{sectionFn: func(_ context.Context, _ string, kind draft.Kind) (upload.Result, error) {
			return upload.Result{Section: kind, Success: true, Message: "Location saved successfully"}, nil
		}},
		activityStub{listFn: func(_ context.Context, _ string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
			return []activity.ActivityEntry{{SessionID: opts.SessionID, Summary: "started new draft"}}, nil
		}},
		files,
	)
	return handler, drafts, files
}

func TestHandler_DraftCommands(t *testing.T) {
	ctx := context.Background()
	handler, drafts, _ := newTestHandler()
	first := drafts.active.ID

	res, err := handler.Handle(ctx, "owner1", "start_draft", nil)
	require.NoError(t, err)
	view := res.(DraftView)
	require.NotEqual(t, first, view.Session.ID)
	require.Equal(t, draft.UntitledTitle, view.Title)

	res, err = handler.Handle(ctx, "owner1", "list_drafts", nil)
	require.NoError(t, err)
	require.Len(t, res.([]draft.Summary), 2)

	res, err = handler.Handle(ctx, "owner1", "switch_draft", json.RawMessage(`{"id":"`+first+`"}`))
	require.NoError(t, err)
	require.Equal(t, first, res.(DraftView).Session.ID)

	res, err = handler.Handle(ctx, "owner1", "delete_draft", json.RawMessage(`{"id":"`+view.Session.ID+`"}`))
	require.NoError(t, err)
	require.Equal(t, view.Session.ID, res.(DeleteDraftResponse).Deleted)

	require.Equal(t, "owner1", drafts.owners[0])
}

func TestHandler_SetSections(t *testing.T) {
	ctx := context.Background()
	handler, _, _ := newTestHandler()

	res, err := handler.Handle(ctx, "owner1", "set_head_info",
		json.RawMessage(`{"title":"Garden Loft","category":"apartment","description":"Quiet"}`))
	require.NoError(t, err)
	view := res.(DraftView)
	require.Equal(t, "Garden Loft", view.Title)
	head := view.Session.HeadInfo.Data.(draft.HeadInfo)
	require.Equal(t, draft.DefaultThemeColor, head.ThemeColor)
	require.Equal(t, draft.StatusDraft, view.Session.HeadInfo.Status)

	res, err = handler.Handle(ctx, "owner1", "set_amenities",
		json.RawMessage(`{"amenities":[{"id":"a1","name":"Wifi","is_free":true}]}`))
	require.NoError(t, err)
	require.Len(t, res.(DraftView).Session.Amenities.Data.(draft.AmenityList), 1)

	res, err = handler.Handle(ctx, "owner1", "set_rules",
		json.RawMessage(`{"rules":[{"id":"r1","title":"No smoking","is_mandatory":true}]}`))
	require.NoError(t, err)
	require.Len(t, res.(DraftView).Session.Rules.Data.(draft.RuleList), 1)

	_, err = handler.Handle(ctx, "owner1", "set_price", json.RawMessage(`{"amount":100,"period":"hourly"}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_SECTION_DATA", apiErr.Code)

	_, err = handler.Handle(ctx, "owner1", "set_rules", json.RawMessage(`{"rules":[{"title":" "}]}`))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_SECTION_DATA", apiErr.Code)
}

func TestHandler_FileCommands(t *testing.T) {
	ctx := context.Background()
	handler, _, files := newTestHandler()

	res, err := handler.Handle(ctx, "owner1", "add_files",
		json.RawMessage(`{"files":[{"name":"front.jpg","content_type":"image/jpeg","content_base64":"aGVsbG8="}]}`))
	require.NoError(t, err)
	handles := res.(DraftView).Session.FileHandles()
	require.Len(t, handles, 1)
	require.True(t, bytes.Equal([]byte("hello"), files.stored[handles[0].ID]))

	_, err = handler.Handle(ctx, "owner1", "add_files",
		json.RawMessage(`{"files":[{"name":"bad.jpg","content_base64":"%%%"}]}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)

	_, err = handler.Handle(ctx, "owner1", "add_files", json.RawMessage(`{"files":[]}`))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "NO_FILES", apiErr.Code)

	res, err = handler.Handle(ctx, "owner1", "remove_file", json.RawMessage(`{"file_id":"`+handles[0].ID+`"}`))
	require.NoError(t, err)
	removed := res.(RemoveFileResponse)
	require.Equal(t, handles[0].ID, removed.Removed.ID)
	require.Empty(t, removed.Session.FileHandles())
	require.Equal(t, []string{handles[0].ID}, files.removed)

	_, err = handler.Handle(ctx, "owner1", "remove_file", json.RawMessage(`{"file_id":"missing"}`))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "FILE_NOT_FOUND", apiErr.Code)
}

func TestHandler_DeleteDraftDropsStagedFiles(t *testing.T) {
	ctx := context.Background()
	handler, drafts, files := newTestHandler()

	res, err := handler.Handle(ctx, "owner1", "add_files",
		json.RawMessage(`{"files":[{"name":"front.jpg","content_base64":"aGVsbG8="}]}`))
	require.NoError(t, err)
	staged := res.(DraftView).Session
	handleID := staged.FileHandles()[0].ID

	res, err = handler.Handle(ctx, "owner1", "reset_draft", nil)
	require.NoError(t, err)
	require.NotEqual(t, staged.ID, res.(DraftView).Session.ID)
	require.Empty(t, files.removed)
	require.Contains(t, drafts.sessions, staged.ID)

	_, err = handler.Handle(ctx, "owner1", "delete_draft", json.RawMessage(`{"id":"`+staged.ID+`"}`))
	require.NoError(t, err)
	require.Equal(t, []string{handleID}, files.removed)
	require.NotContains(t, files.stored, handleID)
}

func TestHandler_SyncCommands(t *testing.T) {
	ctx := context.Background()
	handler, _, _ := newTestHandler()

	res, err := handler.Handle(ctx, "owner1", "upload_section", json.RawMessage(`{"section":"location"}`))
	require.NoError(t, err)
	require.Equal(t, draft.KindLocation, res.(upload.Result).Section)

	_, err = handler.Handle(ctx, "owner1", "upload_section", json.RawMessage(`{"section":"garage"}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "UNKNOWN_SECTION", apiErr.Code)

	res, err = handler.Handle(ctx, "owner1", "upload_all", nil)
	require.NoError(t, err)
	require.NotNil(t, res)

	res, err = handler.Handle(ctx, "owner1", "persist_draft", nil)
	require.NoError(t, err)
	require.True(t, res.(upload.Report).Success)

	res, err = handler.Handle(ctx, "owner1", "check_completeness", nil)
	require.NoError(t, err)
	report := res.(completeness.Report)
	require.False(t, report.IsComplete)
	require.Equal(t, completeness.TotalRequiredFields, report.MissingRequiredCount)

	res, err = handler.Handle(ctx, "owner1", "get_recent_activity", json.RawMessage(`{"session_id":"s1","limit":5}`))
	require.NoError(t, err)
	require.Equal(t, "s1", res.([]activity.ActivityEntry)[0].SessionID)
}

func TestHandler_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	handler, _, _ := newTestHandler()

	_, err := handler.Handle(ctx, "owner1", "switch_draft", json.RawMessage(`{"id":"missing"}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "DRAFT_NOT_FOUND", apiErr.Code)

	_, err = handler.Handle(ctx, "owner1", "switch_draft", json.RawMessage(`{"id":`))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)

	_, err = handler.Handle(ctx, "owner1", "no_such_tool", nil)
	require.Error(t, err)

	require.Nil(t, MapError(errors.New("boom")))
	require.Nil(t, MapError(nil))
}

func TestToolCatalogMatchesHandler(t *testing.T) {
	ctx := context.Background()
	handler, _, _ := newTestHandler()

	for _, def := range buildToolCatalog() {
		require.Equal(t, "object", def.InputSchema["type"], def.Name)
		_, err := handler.Handle(ctx, "owner1", def.Name, json.RawMessage(`{}`))
		if err != nil {
			require.NotContains(t, err.Error(), "unknown tool", def.Name)
		}
	}
}
