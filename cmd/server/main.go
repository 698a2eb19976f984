package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/listingdraft/internal/config"
	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/pending"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/domain/upload"
	"github.com/rpggio/listingdraft/internal/lifecycle"
	"github.com/rpggio/listingdraft/internal/listingapi"
	"github.com/rpggio/listingdraft/internal/mcp"
	"github.com/rpggio/listingdraft/internal/notify"
	"github.com/rpggio/listingdraft/internal/redisstore"
	"github.com/rpggio/listingdraft/internal/sqlite"
	"github.com/rpggio/listingdraft/internal/staging"
	"github.com/rpggio/listingdraft/internal/transport"
)

func main() {
	addKey := flag.String("add-api-key", "", "register an API key and exit")
	keyOwner := flag.String("owner", "", "owner id for -add-api-key")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.TransportStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		logFile, err := openLogFile(cfg.Log.Path, cfg.Log.MaxSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer logFile.Close()
			logWriter = logFile
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	apiKeys := sqlite.NewAPIKeyRepository(db)
	if *addKey != "" {
		if err := apiKeys.Create(context.Background(), *addKey, *keyOwner, "cli"); err != nil {
			logger.Error("failed to add api key", "error", err)
			os.Exit(1)
		}
		logger.Info("api key added", "owner_id", *keyOwner)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, notifier, err := openSnapshotStore(ctx, cfg, db, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	draftSvc := registry.NewService(store, notifier, activitySvc, logger)
	defer draftSvc.Close()

	api := listingapi.NewClient(listingapi.Config{
		BaseURL:       cfg.API.BaseURL,
		Token:         cfg.API.Token,
		Timeout:       cfg.API.Timeout,
		RetryAttempts: cfg.API.RetryAttempts,
		RetryDelay:    cfg.API.RetryDelay,
		RatePerSecond: cfg.API.RatePerSecond,
		Burst:         cfg.API.Burst,
	}, logger)
	uploadSvc := upload.NewService(draftSvc, api, logger)

	files, err := staging.New(cfg.Staging.Dir, cfg.Staging.MaxSize)
	if err != nil {
		logger.Error("failed to prepare staging directory", "error", err)
		os.Exit(1)
	}

	queue := pending.NewQueue()
	sessions := lifecycle.NewManager(api, queue, lifecycle.Config{
		RefreshInterval: cfg.Auth.RefreshInterval,
		CleanupInterval: cfg.Lifecycle.CleanupInterval,
		PendingMaxAge:   cfg.Lifecycle.PendingMaxAge,
	}, logger)
	if err := sessions.Start(); err != nil {
		logger.Error("failed to start schedules", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = sessions.Stop(stopCtx)
	}()

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Drafts:   draftSvc,
			Uploads:  uploadSvc,
			Activity: activitySvc,
			Files:    files,
		},
		Resolver:      apiKeys,
		Tokens:        sessions,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	// Branch based on transport mode
	if cfg.Transport.Mode == config.TransportStdio {
		runStdioMode(ctx, logger, mcpServer)
		return
	}

	opts := transport.Options{
		Tokens: sessions,
		MCP:    mcp.NewHTTPHandler(mcpServer),
		Logger: logger,
	}
	if cfg.Auth.Enabled {
		opts.Auth = transport.AuthMiddleware(apiKeys)
	}
	router := transport.NewServer(transport.Services{
		Drafts:   draftSvc,
		Uploads:  uploadSvc,
		Activity: activitySvc,
		Files:    files,
		Auth:     sessions,
		Pending:  queue,
	}, opts)
	runHTTPMode(logger, router, cfg.Server.Host, cfg.Server.Port)
}

// openSnapshotStore picks where registries live. Redis also carries change
// notifications between instances; SQLite is single-instance.
func openSnapshotStore(ctx context.Context, cfg config.Config, db *sqlite.DB, logger *slog.Logger) (registry.SnapshotStore, notify.Notifier, error) {
	if cfg.Store.Driver != config.StoreRedis {
		return sqlite.NewSnapshotRepository(db), notify.NewHub(), nil
	}

	client, err := redisstore.NewClient(ctx, redisstore.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	notifier := redisstore.NewNotifier(client, logger)
	go func() {
		if err := notifier.Run(ctx); err != nil {
			logger.Error("change relay stopped", "error", err)
		}
	}()
	return redisstore.NewSnapshotStore(client, cfg.Redis.TTL), notifier, nil
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	stdio := &sdkmcp.StdioTransport{}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, stdio); err != nil {
		logger.Error("stdio server error", "error", err)
	}
}

func runHTTPMode(logger *slog.Logger, handler http.Handler, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
