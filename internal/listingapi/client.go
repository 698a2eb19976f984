// Package listingapi talks to the remote listing service that stores
// rentals section by section.
package listingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rpggio/listingdraft/internal/domain/draft"
	"golang.org/x/time/rate"
)

const (
	apiPrefix        = "/api/v1"
	filesField       = "files"
	maxResponseBytes = 4 << 20
)

var sectionPaths = map[draft.Kind]string{
	draft.KindHeadInfo:  "head-info",
	draft.KindLocation:  "location",
	draft.KindPrice:     "pricing",
	draft.KindAmenities: "amenities",
	draft.KindRules:     "rules",
	draft.KindFiles:     "files",
}

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
}

// Config configures a Client.
type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client calls the remote listing API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	attempts   int
	delay      time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client. Zero retry settings mean a single attempt and
// a zero rate means no throttling.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + apiPrefix,
		token:      strings.TrimSpace(cfg.Token),
		attempts:   attempts,
		delay:      cfg.RetryDelay,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

type tokenKey struct{}

// WithToken scopes a caller's bearer token to ctx. It takes precedence
// over the configured service token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token set by WithToken, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func (c *Client) tokenFor(ctx context.Context) string {
	if token := TokenFromContext(ctx); token != "" {
		return token
	}
	return c.token
}

// SubmitSection posts one section's data to the rental identified by
// targetID.
func (c *Client) SubmitSection(ctx context.Context, kind draft.Kind, targetID string, data draft.Payload) (*Envelope, error) {
	segment, ok := sectionPaths[kind]
	if !ok || kind == draft.KindFiles {
		return nil, fmt.Errorf("failed to submit %s: %w", kind, draft.ErrUnknownKind)
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	return c.do(ctx, http.MethodPost, rentalPath(targetID, segment), "application/json", body, c.tokenFor(ctx), retryable)
}

// CreateRental posts head info for a session that has no remote listing
// yet; the response carries the new listing id. It is replayed only when
// the request never reached the server or the server answered 429.
func (c *Client) CreateRental(ctx context.Context, sessionID string, info draft.Payload) (*Envelope, error) {
	if info == nil || info.Kind() != draft.KindHeadInfo {
		return nil, fmt.Errorf("failed to create rental: %w", draft.ErrUnknownKind)
	}
	body, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode head info: %w", err)
	}
	return c.do(ctx, http.MethodPost, rentalPath(sessionID, sectionPaths[draft.KindHeadInfo]), "application/json", body, c.tokenFor(ctx), createRetryable)
}

// UploadFiles sends every file handle in one multipart form.
func (c *Client) UploadFiles(ctx context.Context, targetID string, files []draft.FileHandle) (*Envelope, error) {
	body, contentType, err := encodeFiles(files)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, rentalPath(targetID, sectionPaths[draft.KindFiles]), contentType, body, c.tokenFor(ctx), retryable)
}

// RenewToken exchanges token for a fresh one.
func (c *Client) RenewToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}
	env, err := c.do(ctx, http.MethodPost, "/auth/verification/new-token", "application/json", []byte("{}"), token, retryable)
	if err != nil {
		return "", err
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return "", fmt.Errorf("failed to renew token: %w", ErrMalformedResponse)
	}
	return data.Token, nil
}

func rentalPath(targetID, segment string) string {
	return "/rental/" + url.PathEscape(targetID) + "/" + segment
}

func encodeFiles(files []draft.FileHandle) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		if err := writeFilePart(w, f); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, f draft.FileHandle) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", multipart.FileContentDisposition(filesField, f.Name))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create part for %s: %w", f.Name, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to copy %s: %w", f.Name, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, token string, canRetry func(context.Context, error) bool) (*Envelope, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			wait := c.delay * time.Duration(attempt-1)
			c.logger.Warn("retrying listing api call",
				"method", method,
				"path", path,
				"attempt", attempt,
				"wait", wait,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}

		env, err := c.send(ctx, method, path, contentType, body, token)
		if err == nil {
			return env, nil
		}
		lastErr = err
		if !canRetry(ctx, err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte, token string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = "Bearer " + token
		}
		req.Header.Set("Authorization", token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("listing api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &RemoteError{Status: resp.StatusCode}
		if decodeErr == nil {
			remote.Message = env.Message
			remote.Errors = env.Errors
		}
		return nil, remote
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrMalformedResponse)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request rejected"
		}
		return nil, &RemoteError{Status: resp.StatusCode, Message: msg, Errors: env.Errors}
	}
	return &env, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Temporary()
	}
	return true
}

// createRetryable allows a replay only when the server cannot have
// committed the first request.
func createRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Status == http.StatusTooManyRequests
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
