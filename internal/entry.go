// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gebo/internal/api"
	"github.com/starford/gebo/internal/blob"
	"github.com/starford/gebo/internal/extract"
	"github.com/starford/gebo/internal/ingest"
	"github.com/starford/gebo/internal/ledger"
	"github.com/starford/gebo/internal/market"
	"github.com/starford/gebo/internal/mcpserver"
	"github.com/starford/gebo/internal/sse"
	"github.com/starford/gebo/internal/store"
	"github.com/starford/gebo/internal/summarize"
	"github.com/starford/gebo/internal/upload"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("blob_backend", cfg.Blob.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize SQLite store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Initialize blob storage.
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	mkt := market.New(db)

	// MCP mode: expose marketplace tools over stdio and exit on EOF.
	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(db, mkt).ServeStdio()
	}

	// Pipeline services.
	summarizer, err := summarize.New(cfg.Summarizer.BaseURL, cfg.Summarizer.Model, cfg.Summarizer.APIKey)
	if err != nil {
		return fmt.Errorf("init summarizer: %w", err)
	}
	var pdfClient *extract.PDFClient
	if cfg.OCR.Endpoint != "" {
		pdfClient = extract.NewPDFClient(cfg.OCR.Endpoint, cfg.OCR.Processor, cfg.OCR.APIKey)
	}
	var transcriber *extract.Transcriber
	if cfg.Transcriber.Endpoint != "" {
		transcriber = extract.NewTranscriber(cfg.Transcriber.Endpoint, cfg.Transcriber.APIKey, blobs, cfg.Transcriber.PollInterval)
	}
	extractor := extract.New(pdfClient, transcriber)

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	pipeline := upload.New(blobs, db, extractor, summarizer, broker, cfg.Upload.RewardPoints, cfg.Upload.Timeout, logger)
	led := ledger.New(db)

	// Build API handler and router.
	h := api.NewHandler(db, mkt, led, pipeline, broker)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the drop directory watcher when configured.
	if cfg.Ingest.Path != "" {
		if err := os.MkdirAll(cfg.Ingest.Path, 0o755); err != nil {
			return fmt.Errorf("create ingest dir: %w", err)
		}
		g.Go(func() error {
			return ingest.Watch(gCtx, ingest.Config{
				Dir:           cfg.Ingest.Path,
				UploaderEmail: cfg.Ingest.UploaderEmail,
				UploaderName:  cfg.Ingest.UploaderName,
			}, pipeline, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func newBlobStore(ctx context.Context, cfg *Config) (blob.Store, error) {
	if cfg.Blob.Backend == BlobBackendS3 {
		return blob.NewS3(ctx, blob.S3Options{
			Bucket:         cfg.Blob.S3.Bucket,
			Region:         cfg.Blob.S3.Region,
			Endpoint:       cfg.Blob.S3.Endpoint,
			ForcePathStyle: cfg.Blob.S3.ForcePathStyle,
		})
	}
	if err := os.MkdirAll(cfg.Blob.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return blob.NewFS(cfg.Blob.Path)
}
