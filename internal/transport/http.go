package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/pending"
	"github.com/rpggio/listingdraft/internal/domain/upload"
)

// DraftService is the session registry surface used by the API.
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

// UploadService syncs the active draft to the listing API.
type UploadService interface {
	UploadSection(ctx context.Context, ownerID string, kind draft.Kind) (upload.Result, error)
	UploadAll(ctx context.Context, ownerID string) ([]upload.Result, error)
	PersistOngoingCreate(ctx context.Context, ownerID string) (upload.Report, error)
}

// ActivityService reads the activity log.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, ownerID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// FileStager stores uploaded files until the files section syncs.
type FileStager interface {
	Put(ctx context.Context, ownerID, name, contentType string, r io.Reader) (draft.FileHandle, error)
	Remove(h draft.FileHandle) error
}

// AuthSessions starts and stops sign-in schedules.
type AuthSessions interface {
	SignedIn(ownerID, token string) error
	SignedOut(ownerID string)
}

// PendingActions queues intents deferred until sign-in.
type PendingActions interface {
	Add(ownerID string, kind pending.Kind, target string, payload json.RawMessage) (pending.Action, error)
	List(ownerID string) []pending.Action
	PopAll(ownerID string) []pending.Action
}

// Services contains everything the HTTP API calls into.
type Services struct {
	Drafts   DraftService
	Uploads  UploadService
	Activity ActivityService
	Files    FileStager
	Auth     AuthSessions
	Pending  PendingActions
}

// Options configures the router.
type Options struct {
	// Auth authenticates /v1 requests; nil assigns them to DefaultOwner.
	Auth         func(http.Handler) http.Handler
	DefaultOwner string
	Tokens       RemoteTokens
	// MCP is mounted at /mcp behind the same auth when set.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	svc    Services
	logger *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(svc Services, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &Server{svc: svc, logger: logger}

	auth := opts.Auth
	if auth == nil {
		owner := opts.DefaultOwner
		if owner == "" {
			owner = "default"
		}
		auth = StaticOwnerMiddleware(owner)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)

	if opts.MCP != nil {
		r.With(auth).Handle("/mcp", opts.MCP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth)
		r.Use(RemoteTokenMiddleware(opts.Tokens))

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", srv.handleListDrafts)
			r.Post("/", srv.handleStartDraft)
			r.Get("/active", srv.handleGetActive)
			r.Post("/active/reset", srv.handleReset)
			r.Put("/active/sections/{kind}", srv.handleSetSection)
			r.Post("/active/sections/{kind}/upload", srv.handleUploadSection)
			r.Post("/active/files", srv.handleAddFiles)
			r.Delete("/active/files/{fileID}", srv.handleRemoveFile)
			r.Post("/active/upload", srv.handleUploadAll)
			r.Post("/active/persist", srv.handlePersist)
			r.Get("/active/completeness", srv.handleCompleteness)
			r.Post("/{id}/activate", srv.handleActivate)
			r.Delete("/{id}", srv.handleDeleteDraft)
		})

		r.Get("/activity", srv.handleActivity)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", srv.handleSignIn)
			r.Post("/signout", srv.handleSignOut)
			r.Get("/pending-actions", srv.handleListPending)
			r.Post("/pending-actions", srv.handleAddPending)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
