package transport

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/completeness"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/pending"
	"github.com/rpggio/listingdraft/internal/domain/upload"
)

const maxUploadMemory = 32 << 20

func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "missing owner")
	}
	return ownerID, ok
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	summaries, err := s.svc.Drafts.List(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []draft.Summary{}
	}
	WriteOK(w, http.StatusOK, "", summaries)
}

func (s *Server) handleStartDraft(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	sess, err := s.svc.Drafts.StartNew(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteOK(w, http.StatusCreated, "Draft started", sess)
}

func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	sess, err := s.svc.Drafts.Active(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteOK(w, http.StatusOK, "", sess)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	sess, err := s.svc.Drafts.SwitchTo(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteOK(w, http.StatusOK, "Draft activated", sess)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	removed, err := s.svc.Drafts.Delete(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.discard(removed.FileHandles())
	WriteOK(w, http.StatusOK, "Draft deleted", nil)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	sess, err := s.svc.Drafts.Reset(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteOK(w, http.StatusOK, "Draft reset", sess)
}

func (s *Server) handleSetSection(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	kind, err := draft.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if kind == draft.KindFiles {
		WriteError(w, http.StatusBadRequest, "files are added through /v1/drafts/active/files")
		return
	}
	raw, err := readRaw(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := draft.DecodePayload(kind, raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.svc.Drafts.SetSection(r.Context(), ownerID, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteOK(w, http.StatusOK, "Section saved", sess)
}

func (s *Server) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		WriteError(w, http.StatusBadRequest, "No files to upload")
		return
	}

	handles := make([]draft.FileHandle, 0, len(headers))
	for _, fh := range headers {
		handle, err := s.stage(r, ownerID, fh.Filename, fh.Header.Get("Content-Type"), fh.Open)
		if err != nil {
			s.discard(handles)
			s.fail(w, r, err)
			return
		}
		handles = append(handles, handle)
	}

	sess, err := s.svc.Drafts.AddFiles(r.Context(), ownerID, handles...)
	if err != nil {
		s.discard(handles)
		s.fail(w, r, err)
		return
	}
	WriteOK(w, http.StatusOK, fmt.Sprintf("Added %d file(s)", len(handles)), sess)
}

func (s *Server) stage(r *http.Request, ownerID, name, contentType string, open func() (multipart.File, error)) (draft.FileHandle, error) {
	f, err := open()
	if err != nil {
		return draft.FileHandle{}, fmt.Errorf("%w: opening %s: %v", errBadRequest, name, err)
	}
	defer f.Close()
	return s.svc.Files.Put(r.Context(), ownerID, name, contentType, f)
}

func (s *Server) discard(handles []draft.FileHandle) {
	for _, h := range handles {
		if err := s.svc.Files.Remove(h); err != nil {
			s.logger.Warn("failed to remove staged file", "file_id", h.ID, "error", err)
		}
	}
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	handle, err := s.svc.Drafts.RemoveFile(r.Context(), ownerID, chi.URLParam(r, "fileID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.discard([]draft.FileHandle{handle})
	WriteOK(w, http.StatusOK, "File removed", handle)
}

func (s *Server) handleUploadSection(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	kind, err := draft.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.svc.Uploads.UploadSection(r.Context(), ownerID, kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, Envelope{
		Success: result.Success,
		Message: result.Message,
		Data:    result,
		Errors:  result.Errors,
	})
}

func (s *Server) handleUploadAll(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	results, err := s.svc.Uploads.UploadAll(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	env := Envelope{Success: true, Message: "Upload finished", Data: results}
	if results == nil {
		env.Data = []upload.Result{}
	}
	for _, res := range results {
		if !res.Success {
			env.Success = false
			env.Errors = append(env.Errors, res.Message)
		}
	}
	WriteEnvelope(w, http.StatusOK, env)
}

func (s *Server) handlePersist(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	report, err := s.svc.Uploads.PersistOngoingCreate(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, Envelope{
		Success: report.Success,
		Message: report.Message,
		Data:    report.Results,
		Errors:  report.Errors,
	})
}

func (s *Server) handleCompleteness(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	sess, err := s.svc.Drafts.Active(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteOK(w, http.StatusOK, "", completeness.Evaluate(sess))
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := activity.ListActivityOptions{SessionID: q.Get("session_id")}
	if section := q.Get("section"); section != "" {
		opts.Section = &section
	}
	if typ := q.Get("type"); typ != "" {
		t := activity.ActivityType(typ)
		opts.ActivityType = &t
	}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		s.fail(w, r, err)
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		s.fail(w, r, err)
		return
	}

	entries, err := s.svc.Activity.GetRecentActivity(r.Context(), ownerID, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	WriteOK(w, http.StatusOK, "", entries)
}

type signInRequest struct {
	Token string `json:"token"`
}

type signInResponse struct {
	PendingActions []pending.Action `json:"pendingActions"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	var req signInRequest
	if err := readJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Auth.SignedIn(ownerID, req.Token); err != nil {
		s.fail(w, r, err)
		return
	}
	actions := s.svc.Pending.PopAll(ownerID)
	if actions == nil {
		actions = []pending.Action{}
	}
	WriteOK(w, http.StatusOK, "Signed in", signInResponse{PendingActions: actions})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	s.svc.Auth.SignedOut(ownerID)
	WriteOK(w, http.StatusOK, "Signed out", nil)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	actions := s.svc.Pending.List(ownerID)
	if actions == nil {
		actions = []pending.Action{}
	}
	WriteOK(w, http.StatusOK, "", actions)
}

type addPendingRequest struct {
	Kind    pending.Kind    `json:"kind"`
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) handleAddPending(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	var req addPendingRequest
	if err := readJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	action, err := s.svc.Pending.Add(ownerID, req.Kind, req.Target, req.Payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteOK(w, http.StatusCreated, "Action queued", action)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid number %q", errBadRequest, v)
	}
	return n, nil
}
