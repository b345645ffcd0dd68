package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/gebo/internal/apperr"
)

func TestPDFExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/processors/test:process" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ocrRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		raw, err := base64.StdEncoding.DecodeString(req.RawDocument.Content)
		if err != nil {
			t.Fatalf("content not base64: %v", err)
		}
		if string(raw) != "%PDF-fake" {
			t.Errorf("decoded body = %q", raw)
		}
		if req.RawDocument.MimeType != "application/pdf" {
			t.Errorf("mime = %s", req.RawDocument.MimeType)
		}

		var out ocrResponse
		out.Document.Text = "  Lecture   one\ncovers\tderivatives  "
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	client := NewPDFClient(srv.URL, "processors/test", "key")
	text, err := client.ExtractText(context.Background(), []byte("%PDF-fake"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	want := "Lecture one covers derivatives."
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestPDFExtractTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"processor unavailable"}}`))
	}))
	defer srv.Close()

	client := NewPDFClient(srv.URL, "processors/test", "key")
	if _, err := client.ExtractText(context.Background(), []byte("x")); err == nil {
		t.Fatal("server error should surface")
	}
}

func TestCleanExtractedText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"already ends.", "already ends."},
		{"no period", "no period."},
		{"  spaced\t\nout  ", "spaced out."},
		{"", ""},
	}
	for _, c := range cases {
		if got := cleanExtractedText(c.in); got != c.want {
			t.Errorf("cleanExtractedText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	e := New(nil, nil)
	_, _, err := e.Extract(context.Background(), "notes.txt", []byte("x"))
	if !errors.Is(err, apperr.ErrUnsupportedType) {
		t.Fatalf("got %v, want ErrUnsupportedType", err)
	}
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.mp4"} {
		if !Supported(name) {
			t.Errorf("%s should be supported", name)
		}
	}
	for _, name := range []string{"a.txt", "b.png", "noext"} {
		if Supported(name) {
			t.Errorf("%s should not be supported", name)
		}
	}
}
