package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/gebo/internal/upload"
)

type recordingProcessor struct {
	mu   sync.Mutex
	reqs []upload.Request
	ch   chan string
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{ch: make(chan string, 16)}
}

func (p *recordingProcessor) Process(_ context.Context, req upload.Request) (*upload.Result, error) {
	// Drain the reader so the request is fully consumed, as the real
	// pipeline would.
	_, _ = io.ReadAll(req.File)
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()
	p.ch <- req.Filename
	return &upload.Result{NoteID: "test"}, nil
}

func (p *recordingProcessor) requests() []upload.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]upload.Request(nil), p.reqs...)
}

func TestWatchProcessesSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	proc := newRecordingProcessor()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Config{
			Dir:           dir,
			UploaderEmail: "drop@x.com",
			UploaderName:  "Drop",
			SettleDelay:   10 * time.Millisecond,
		}, proc, logger)
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "lecture.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-proc.ch:
		if name != "lecture.pdf" {
			t.Errorf("processed %q", name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for processing")
	}

	reqs := proc.requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	if reqs[0].Title != "lecture" || reqs[0].UserEmail != "drop@x.com" {
		t.Errorf("request = %+v", reqs[0])
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}

func TestWatchSkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	proc := newRecordingProcessor()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, Config{ //nolint:errcheck
		Dir:         dir,
		SettleDelay: 10 * time.Millisecond,
	}, proc, logger)

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-proc.ch:
		t.Fatalf("unexpected processing of %q", name)
	case <-time.After(500 * time.Millisecond):
	}
}
