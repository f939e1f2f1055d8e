package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"llamad/internal/catalog"
	"llamad/internal/download"
	"llamad/internal/registry"
	"llamad/internal/runtime"
	"llamad/pkg/types"
)

// newTestApp wires a facade against an artifact server. Every request to
// the server is counted.
func newTestApp(t *testing.T, payload []byte, requests *int32) (*App, *catalog.Catalog) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	log := zerolog.Nop()
	reg := registry.New(map[string]string{"alpha": srv.URL + "/alpha.gguf"})
	cat, err := catalog.New(t.TempDir(), reg, log)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	rt := runtime.New(cat, failingBackend{}, runtime.Config{}, log)
	return New(reg, cat, download.NewFetcher(log), rt, log), cat
}

// failingBackend guards against tests accidentally reaching inference.
type failingBackend struct{}

func (failingBackend) Load(path string, cfg runtime.LoadConfig) (runtime.ModelHandle, error) {
	return nil, runtime.ErrBackendUnavailable("no backend in this test")
}

func TestPullMaterializesModel(t *testing.T) {
	payload := bytes.Repeat([]byte("w"), 256)
	var requests int32
	a, cat := newTestApp(t, payload, &requests)

	var lastCompleted int64
	err := a.Pull(context.Background(), "alpha", false, func(completed, total int64) {
		lastCompleted = completed
	})
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if lastCompleted != int64(len(payload)) {
		t.Fatalf("progress saw %d bytes, want %d", lastCompleted, len(payload))
	}

	models, err := a.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected 1 local model, got %d", len(models))
	}
	m := models[0]
	if m.Name != "alpha" || m.Format != types.FormatGGUF || m.SizeBytes != int64(len(payload)) {
		t.Fatalf("unexpected record: %+v", m)
	}
	if m.Path != cat.DestPath("alpha") {
		t.Fatalf("artifact at %q, want %q", m.Path, cat.DestPath("alpha"))
	}
	if got, _ := os.ReadFile(m.Path); !bytes.Equal(got, payload) {
		t.Fatal("artifact content mismatch")
	}
}

func TestPullExistingIsIdempotent(t *testing.T) {
	var requests int32
	a, _ := newTestApp(t, []byte("weights"), &requests)

	if err := a.Pull(context.Background(), "alpha", false, nil); err != nil {
		t.Fatalf("first pull: %v", err)
	}
	if err := a.Pull(context.Background(), "alpha", false, nil); err != nil {
		t.Fatalf("second pull: %v", err)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Fatalf("expected 1 transfer, got %d", n)
	}
}

func TestPullForceTransfersAgain(t *testing.T) {
	var requests int32
	a, _ := newTestApp(t, []byte("weights"), &requests)

	if err := a.Pull(context.Background(), "alpha", false, nil); err != nil {
		t.Fatalf("first pull: %v", err)
	}
	if err := a.Pull(context.Background(), "alpha", true, nil); err != nil {
		t.Fatalf("forced pull: %v", err)
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Fatalf("expected 2 transfers, got %d", n)
	}
}

func TestPullUnknownNameIsNotFound(t *testing.T) {
	var requests int32
	a, _ := newTestApp(t, []byte("weights"), &requests)

	err := a.Pull(context.Background(), "ghost", false, nil)
	if !registry.IsNotFound(err) {
		t.Fatalf("expected registry.IsNotFound, got %v", err)
	}
	if atomic.LoadInt32(&requests) != 0 {
		t.Fatal("unknown name must not hit the network")
	}
}

func TestConcurrentPullsTransferOnce(t *testing.T) {
	var requests int32
	a, _ := newTestApp(t, bytes.Repeat([]byte("w"), 1024), &requests)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = a.Pull(context.Background(), "alpha", false, nil)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("pull %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Fatalf("expected exactly 1 transfer, got %d", got)
	}
}

func TestDeleteThenShowIsNotFound(t *testing.T) {
	var requests int32
	a, _ := newTestApp(t, []byte("weights"), &requests)

	if err := a.Pull(context.Background(), "alpha", false, nil); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if _, err := a.Show("alpha"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := a.Delete("alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := a.Show("alpha"); !catalog.IsNotFound(err) {
		t.Fatalf("expected catalog.IsNotFound, got %v", err)
	}
}

func TestCopyProducesIndependentModel(t *testing.T) {
	var requests int32
	a, _ := newTestApp(t, []byte("weights"), &requests)

	if err := a.Pull(context.Background(), "alpha", false, nil); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if err := a.Copy("alpha", "alpha-copy"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if err := a.Delete("alpha"); err != nil {
		t.Fatalf("delete original: %v", err)
	}
	rec, err := a.Show("alpha-copy")
	if err != nil {
		t.Fatalf("copy gone after deleting original: %v", err)
	}
	if rec.SizeBytes != int64(len("weights")) {
		t.Fatalf("copy size mismatch: %d", rec.SizeBytes)
	}
}

func TestReadyAndRunning(t *testing.T) {
	var requests int32
	a, _ := newTestApp(t, nil, &requests)
	if !a.Ready() {
		t.Fatal("expected ready")
	}
	if got := a.ListRunning(); len(got) != 0 {
		t.Fatalf("expected no running models, got %d", len(got))
	}
	a.Unload("never-loaded")
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
