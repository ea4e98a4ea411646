package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/reposcope/reposcope/internal/api"
	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/embedder"
	"github.com/reposcope/reposcope/internal/indexer"
	"github.com/reposcope/reposcope/internal/jobs"
	"github.com/reposcope/reposcope/internal/logging"
	"github.com/reposcope/reposcope/internal/mcp"
	"github.com/reposcope/reposcope/internal/searcher"
	"github.com/reposcope/reposcope/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	mcpMode := flag.Bool("mcp", false, "serve the MCP protocol on stdio instead of HTTP")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("reposcope\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	if err := run(*configPath, *mcpMode); err != nil {
		fmt.Fprintf(os.Stderr, "reposcope: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, mcpMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// In MCP mode stdout carries the protocol, so logs must go to stderr
	logger, err := logging.New(cfg.LogMode, mcpMode)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Infow("starting reposcope",
		"version", version, "buildMode", storage.BuildMode, "driver", storage.DriverName)

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	emb := buildEmbedder(cfg, logger)
	defer func() { _ = emb.Close() }()

	orch := indexer.New(store, emb, cfg.Indexing, logger)
	mgr := jobs.NewManager(time.Duration(cfg.Jobs.RetentionHours)*time.Hour, logger)
	search := searcher.New(emb, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.StartCleanupLoop(ctx, time.Duration(cfg.Jobs.CleanupIntervalMinutes)*time.Minute)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if mcpMode {
		mcpServer := mcp.NewServer(orch, mgr, search, store, logger)
		errChan := make(chan error, 1)
		go func() {
			logger.Info("MCP server ready, listening on stdio")
			errChan <- mcpServer.Serve(ctx)
		}()

		select {
		case sig := <-sigChan:
			logger.Infow("shutting down", "signal", sig.String())
			cancel()
			return nil
		case err := <-errChan:
			return err
		}
	}

	apiServer := api.NewServer(orch, mgr, search, store, logger)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: apiServer.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
			return
		}
		errChan <- nil
	}()

	select {
	case sig := <-sigChan:
		logger.Infow("shutting down", "signal", sig.String())
	case err := <-errChan:
		return err
	}

	// In-flight jobs are abandoned on shutdown; a restarted process has no
	// record of them.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// buildEmbedder creates the configured embedding provider. A failed HTTP
// provider setup is not fatal: the deterministic fallback keeps indexing
// available.
func buildEmbedder(cfg *config.Config, logger *zap.SugaredLogger) embedder.Embedder {
	emb, err := embedder.New(cfg.Embedding, logger)
	if err == nil {
		logger.Infow("embedding provider ready",
			"provider", emb.Provider(), "dimension", emb.Dimension())
		return emb
	}

	logger.Warnw("embedding provider unavailable, using deterministic fallback", "error", err)
	fallbackCfg := cfg.Embedding
	fallbackCfg.Provider = embedder.ProviderFallback
	fb, fbErr := embedder.New(fallbackCfg, logger)
	if fbErr != nil {
		// Only reachable with an invalid dimension, which config validation
		// rejects earlier
		panic(fbErr)
	}
	return fb
}
