package download

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func newTestFetcher() *Fetcher {
	f := NewFetcher(zerolog.Nop())
	f.chunkBytes = 16
	return f
}

func TestFetchWritesDestination(t *testing.T) {
	payload := bytes.Repeat([]byte("abcd"), 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "model.gguf")
	var lastCompleted, lastTotal int64
	fetched, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false, func(completed, total int64) {
		lastCompleted, lastTotal = completed, total
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !fetched {
		t.Fatal("expected fetched=true")
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload mismatch")
	}
	if lastCompleted != int64(len(payload)) || lastTotal != int64(len(payload)) {
		t.Fatalf("progress saw %d/%d, want %d/%d", lastCompleted, lastTotal, len(payload), len(payload))
	}
	if _, err := os.Stat(dest + ".partial"); !os.IsNotExist(err) {
		t.Fatal("partial file left behind on success")
	}
}

func TestFetchExistingIsNoOp(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("new content"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "model.gguf")
	if err := os.WriteFile(dest, []byte("old content"), 0o644); err != nil {
		t.Fatalf("seed dest: %v", err)
	}

	fetched, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fetched {
		t.Fatal("expected no-op for existing destination")
	}
	if n := atomic.LoadInt32(&requests); n != 0 {
		t.Fatalf("expected 0 requests, got %d", n)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "old content" {
		t.Fatal("existing file was modified")
	}
}

func TestFetchForceRedownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new content"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "model.gguf")
	if err := os.WriteFile(dest, []byte("old content"), 0o644); err != nil {
		t.Fatalf("seed dest: %v", err)
	}

	fetched, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, true, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !fetched {
		t.Fatal("expected fetched=true with force")
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "new content" {
		t.Fatal("destination not replaced")
	}
}

func TestFetchBadStatusLeavesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "model.gguf")
	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false, nil)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !IsTransfer(err) {
		t.Fatalf("expected IsTransfer, got %v", err)
	}
	assertNoFiles(t, dest)
}

func TestFetchTruncatedBodyLeavesNothing(t *testing.T) {
	// Advertise more bytes than are sent; the client sees an early EOF.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(1024))
		w.Write(bytes.Repeat([]byte("x"), 64))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "model.gguf")
	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false, nil)
	if err == nil {
		t.Fatal("expected error for truncated body")
	}
	if !IsTransfer(err) {
		t.Fatalf("expected IsTransfer, got %v", err)
	}
	assertNoFiles(t, dest)
}

func TestFetchCanceledContextLeavesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "model.gguf")
	_, err := newTestFetcher().Fetch(ctx, srv.URL, dest, false, nil)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	assertNoFiles(t, dest)
}

func TestFetchUnknownLengthReportsMinusOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body completes suppresses Content-Length.
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		w.Write(bytes.Repeat([]byte("y"), 48))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "model.gguf")
	sawUnknown := false
	fetched, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false, func(completed, total int64) {
		if total == -1 {
			sawUnknown = true
		}
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !fetched {
		t.Fatal("expected fetched=true")
	}
	if !sawUnknown {
		t.Fatal("expected progress total=-1 for chunked response")
	}
	fi, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat dest: %v", err)
	}
	if fi.Size() != 48 {
		t.Fatalf("expected 48 bytes, got %d", fi.Size())
	}
}

func assertNoFiles(t *testing.T, dest string) {
	t.Helper()
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("destination exists after failed fetch")
	}
	if _, err := os.Stat(dest + ".partial"); !os.IsNotExist(err) {
		t.Fatal("partial file exists after failed fetch")
	}
}
