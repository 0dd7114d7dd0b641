package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/constructo/acc-issues-mcp/internal/api"
	"github.com/constructo/acc-issues-mcp/internal/auth"
	"github.com/constructo/acc-issues-mcp/internal/config"
	"github.com/constructo/acc-issues-mcp/internal/mcpserver"
	"github.com/constructo/acc-issues-mcp/internal/metadata"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("ACC Issues MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", auth.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", auth.DriverName)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "acc-issues-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Log to stderr (stdout is reserved for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	logger.Info("starting", "version", version, "build_mode", auth.BuildMode, "driver", auth.DriverName)

	store, err := auth.NewSQLiteStore(cfg.TokenDBPath)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer store.Close()

	flow := auth.NewFlow(auth.FlowConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		CallbackPort: cfg.CallbackPort,
	}, store, logger)

	manager := auth.NewManager(flow, store, cfg.TokenMargin, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bootstrapToken(ctx, flow, store, manager, logger); err != nil {
		return fmt.Errorf("authorize: %w", err)
	}

	client, err := api.NewClient(cfg.APIURL, manager,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}

	cache := metadata.NewCache(metadata.NewAPISource(client), cfg.CacheTTL, metadata.DefaultCacheSize, logger)

	server := mcpserver.NewServer(client, cache, cfg.ProjectID, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio", "project_id", cfg.ProjectID)
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// bootstrapToken makes sure a usable token is on hand before the server
// starts. A stored token that is valid or at least refreshable is enough;
// otherwise the interactive browser flow runs once at startup.
func bootstrapToken(ctx context.Context, flow *auth.Flow, store auth.Store, manager *auth.Manager, logger *slog.Logger) error {
	tok, err := store.Load(ctx)
	switch {
	case err == nil && tok.Refreshable():
		logger.Info("using stored credentials")
		manager.SetToken(tok)
		return nil
	case err != nil && !errors.Is(err, auth.ErrNoToken):
		return err
	}

	logger.Info("no stored credentials, starting interactive authorization")
	tok, err = flow.Authorize(ctx)
	if err != nil {
		return err
	}
	manager.SetToken(tok)
	logger.Info("authorization complete")
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
