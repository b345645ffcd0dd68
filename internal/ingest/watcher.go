// Package ingest watches a drop directory and feeds new files through
// the upload pipeline, so notes can be published by copying a file into
// a folder instead of going through the HTTP API.
package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/gebo/internal/extract"
	"github.com/starford/gebo/internal/upload"
)

// Processor runs the upload pipeline for one file.
type Processor interface {
	Process(ctx context.Context, req upload.Request) (*upload.Result, error)
}

// Config identifies the drop directory and the account credited for
// its uploads.
type Config struct {
	Dir           string
	UploaderEmail string
	UploaderName  string
	// SettleDelay is how long to wait after a create event before
	// reading the file, so slow copies finish first.
	SettleDelay time.Duration
}

// Watch starts an fsnotify watcher on the drop directory and processes
// created files until ctx is cancelled. Files with unsupported
// extensions are skipped.
func Watch(ctx context.Context, cfg Config, processor Processor, logger *slog.Logger) error {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 500 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(cfg.Dir); err != nil {
		return err
	}

	logger.Info("ingest: started", slog.String("dir", cfg.Dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("ingest: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			filename := filepath.Base(ev.Name)
			if strings.HasPrefix(filename, ".") || !extract.Supported(filename) {
				continue
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(cfg.SettleDelay):
			}

			if err := processFile(ctx, cfg, processor, ev.Name, filename); err != nil {
				logger.Warn("ingest: process failed",
					slog.String("file", filename),
					slog.String("error", err.Error()))
				continue
			}
			logger.Info("ingest: processed", slog.String("file", filename))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("ingest: watcher error", slog.String("error", err.Error()))
		}
	}
}

func processFile(ctx context.Context, cfg Config, processor Processor, path, filename string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	_, err = processor.Process(ctx, upload.Request{
		Filename:  filename,
		Title:     title,
		UserEmail: cfg.UploaderEmail,
		UserName:  cfg.UploaderName,
		Filepath:  path,
		File:      f,
	})
	return err
}
