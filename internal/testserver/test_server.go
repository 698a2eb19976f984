// Package testserver runs the full HTTP stack against an in-memory database
// and a fake listing API for end-to-end tests.
package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/pending"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/domain/upload"
	"github.com/rpggio/listingdraft/internal/lifecycle"
	"github.com/rpggio/listingdraft/internal/listingapi"
	"github.com/rpggio/listingdraft/internal/mcp"
	"github.com/rpggio/listingdraft/internal/notify"
	"github.com/rpggio/listingdraft/internal/sqlite"
	"github.com/rpggio/listingdraft/internal/staging"
	"github.com/rpggio/listingdraft/internal/transport"
	"github.com/stretchr/testify/require"
)

// RentalID is the id the fake listing API assigns on head info create.
const RentalID = "rental-42"

type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	Remote  *RemoteAPI
	Drafts  *registry.Service
	Token   string
	OwnerID string
}

func New(t *testing.T, token, ownerID string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	remote := NewRemoteAPI()
	remoteServer := httptest.NewServer(remote.Router())

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	drafts := registry.NewService(sqlite.NewSnapshotRepository(db), notify.NewHub(), activitySvc, nil)

	api := listingapi.NewClient(listingapi.Config{
		BaseURL:       remoteServer.URL,
		Timeout:       5 * time.Second,
		RetryAttempts: 1,
	}, nil)
	uploads := upload.NewService(drafts, api, nil)

	files, err := staging.New(t.TempDir(), 1<<20)
	require.NoError(t, err)

	queue := pending.NewQueue()
	sessions := lifecycle.NewManager(api, queue, lifecycle.Config{
		RefreshInterval: time.Hour,
		CleanupInterval: time.Hour,
		PendingMaxAge:   time.Hour,
	}, nil)

	apiKeys := sqlite.NewAPIKeyRepository(db)
	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Drafts:   drafts,
			Uploads:  uploads,
			Activity: activitySvc,
			Files:    files,
		},
		Resolver:      apiKeys,
		Tokens:        sessions,
		AuthEnabled:   true,
		TransportMode: "http",
	})

	router := transport.NewServer(transport.Services{
		Drafts:   drafts,
		Uploads:  uploads,
		Activity: activitySvc,
		Files:    files,
		Auth:     sessions,
		Pending:  queue,
	}, transport.Options{
		Auth:   transport.AuthMiddleware(apiKeys),
		Tokens: sessions,
		MCP:    mcp.NewHTTPHandler(mcpServer),
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:  server,
		DB:      db,
		Remote:  remote,
		Drafts:  drafts,
		Token:   token,
		OwnerID: ownerID,
	}

	require.NoError(t, ts.AddAPIKey(token, ownerID))

	t.Cleanup(func() {
		server.Close()
		remoteServer.Close()
		drafts.Close()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, ownerID string) error {
	return sqlite.NewAPIKeyRepository(ts.DB).Create(context.Background(), token, ownerID, "test")
}

// Call is one request received by the fake listing API.
type Call struct {
	Rental        string
	Section       string
	Authorization string
}

// RemoteAPI imitates the listing service. Head info posted to any rental
// is answered with RentalID.
type RemoteAPI struct {
	mu       sync.Mutex
	calls    []Call
	failures map[string]string
}

func NewRemoteAPI() *RemoteAPI {
	return &RemoteAPI{failures: make(map[string]string)}
}

// Fail makes every later request for section answer 422 with msg.
func (a *RemoteAPI) Fail(section, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[section] = msg
}

// Recover clears a failure set by Fail.
func (a *RemoteAPI) Recover(section string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.failures, section)
}

// Calls returns the requests received so far.
func (a *RemoteAPI) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

func (a *RemoteAPI) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/rental/{id}/{section}", a.handleSection)
	r.Post("/api/v1/auth/verification/new-token", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]string{"token": "renewed-token"},
		})
	})
	return r
}

func (a *RemoteAPI) handleSection(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")

	a.mu.Lock()
	a.calls = append(a.calls, Call{
		Rental:        chi.URLParam(r, "id"),
		Section:       section,
		Authorization: r.Header.Get("Authorization"),
	})
	msg, failing := a.failures[section]
	a.mu.Unlock()

	if failing {
		writeEnvelope(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"message": msg,
			"errors":  []string{msg},
		})
		return
	}

	data := map[string]any{}
	if section == "head-info" {
		data["id"] = RentalID
	}
	writeEnvelope(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "saved",
		"data":    data,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
