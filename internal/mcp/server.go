package mcp

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultOwner = "default"

// Services contains all domain services needed by MCP.
type Services struct {
	Drafts   DraftService
	Uploads  UploadService
	Activity ActivityService
	Files    FileStager
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      OwnerResolver
	Tokens        RemoteTokens
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	DefaultOwner  string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "listingdraft",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	owner := cfg.DefaultOwner
	if owner == "" {
		owner = defaultOwner
	}

	// Stdio mode: always disable auth (local use only)
	ownerMiddleware := noAuthMiddleware(owner)
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		ownerMiddleware = authMiddleware(cfg.Resolver)
	}
	// Middlewares in one call run in order: owner, token, logging.
	server.AddReceivingMiddleware(
		ownerMiddleware,
		remoteTokenMiddleware(cfg.Tokens),
		trafficLoggingMiddleware(cfg.Logger, "inbound"),
	)
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	handler := NewHandler(cfg.Services.Drafts, cfg.Services.Uploads, cfg.Services.Activity, cfg.Services.Files)
	registerTools(server, handler)

	return server
}
