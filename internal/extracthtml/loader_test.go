package extracthtml

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoader_Stdin verifies stdin input is read and returned as string.
func TestLoader_Stdin(t *testing.T) {
	t.Parallel()

	l := NewLoader(http.DefaultClient, 1*time.Second)
	html, err := l.Load(context.Background(), Input{
		Stdin: bytes.NewBufferString("<p>x</p>"),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if html != "<p>x</p>" {
		t.Fatalf("unexpected html: %q", html)
	}
}

func TestLoader_Path(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(p, []byte("<table></table>"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := NewLoader(nil, time.Second)
	html, err := l.Load(context.Background(), Input{Path: p})
	if err != nil || html != "<table></table>" {
		t.Fatalf("Load: %q, %v", html, err)
	}

	// Path wins over URL; the URL is never dialed.
	html, err = l.Load(context.Background(), Input{Path: p, URL: "http://127.0.0.1:1/unreachable"})
	if err != nil || html != "<table></table>" {
		t.Fatalf("Load with path and url: %q, %v", html, err)
	}

	_, err = l.Load(context.Background(), Input{Path: filepath.Join(t.TempDir(), "missing.html")})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError for missing file, got %v", err)
	}
}

// TestLoader_URL_Non2xx verifies we include status code and a body snippet.
func TestLoader_URL_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(&http.Client{Timeout: 2 * time.Second}, 2*time.Second)
	_, err := l.Load(context.Background(), Input{URL: srv.URL})

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Status != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", fe.Status)
	}
	msg := err.Error()
	if !strings.Contains(msg, "http status 403") || !strings.Contains(msg, "nope") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoader_URL_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewLoader(nil, time.Second).Load(context.Background(), Input{URL: url})
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Status != 0 {
		t.Fatalf("expected transport FetchError, got %v", err)
	}
}

func TestLoader_URL_DecodesDeclaredCharset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "banketl/") {
			http.Error(w, "bad agent "+ua, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Société" in Latin-1.
		_, _ = w.Write([]byte{'S', 'o', 'c', 'i', 0xE9, 't', 0xE9})
	}))
	t.Cleanup(srv.Close)

	html, err := NewLoader(nil, time.Second).Load(context.Background(), Input{URL: srv.URL})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if html != "Société" {
		t.Fatalf("expected decoded UTF-8, got %q", html)
	}
}

func TestDecodeCharset_PassThrough(t *testing.T) {
	t.Parallel()

	for _, ct := range []string{"", "text/html", "text/html; charset=utf-8", "text/html; charset=bogus"} {
		got, err := decodeCharset([]byte("é"), ct)
		if err != nil || got != "é" {
			t.Fatalf("decodeCharset(%q)=%q,%v", ct, got, err)
		}
	}
}
