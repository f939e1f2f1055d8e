package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llamad/internal/catalog"
	"llamad/internal/registry"
	"llamad/pkg/types"
)

// fakeBackend is an in-process Backend for tests. Completions echo the
// prompt; embeddings are derived from the input length so averaging is
// easy to assert.
type fakeBackend struct {
	mu       sync.Mutex
	loads    int
	loadWait time.Duration
	failLoad error

	// completionDelay slows Completion so overlap is observable.
	completionDelay time.Duration

	// failCompletion makes every Completion call fail.
	failCompletion error

	// lastParams records the merged sampling params of the most recent
	// Completion call.
	lastParams types.SamplingParams

	// inflight tracks concurrent Completion calls across all handles.
	inflight    int32
	maxInflight int32

	// started receives one signal when a Completion call begins.
	started chan struct{}

	// closedMidCall records a handle Close while a Completion was still
	// running on it.
	closedMidCall atomic.Bool
}

func (b *fakeBackend) Load(path string, cfg LoadConfig) (ModelHandle, error) {
	b.mu.Lock()
	b.loads++
	b.mu.Unlock()
	if b.loadWait > 0 {
		time.Sleep(b.loadWait)
	}
	if b.failLoad != nil {
		return nil, b.failLoad
	}
	return &fakeHandle{backend: b, path: path}, nil
}

func (b *fakeBackend) loadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

type fakeHandle struct {
	backend *fakeBackend
	path    string
	closed  atomic.Bool
}

func (h *fakeHandle) Completion(ctx context.Context, prompt string, params types.SamplingParams) (CompletionResult, error) {
	if h.closed.Load() {
		return CompletionResult{}, errors.New("handle closed")
	}
	n := atomic.AddInt32(&h.backend.inflight, 1)
	if h.backend.started != nil {
		select {
		case h.backend.started <- struct{}{}:
		default:
		}
	}
	for {
		seen := atomic.LoadInt32(&h.backend.maxInflight)
		if n <= seen || atomic.CompareAndSwapInt32(&h.backend.maxInflight, seen, n) {
			break
		}
	}
	defer atomic.AddInt32(&h.backend.inflight, -1)

	h.backend.mu.Lock()
	h.backend.lastParams = params
	fail := h.backend.failCompletion
	h.backend.mu.Unlock()
	if fail != nil {
		return CompletionResult{}, fail
	}
	if h.backend.completionDelay > 0 {
		time.Sleep(h.backend.completionDelay)
	}
	if err := ctx.Err(); err != nil {
		return CompletionResult{}, err
	}
	return CompletionResult{
		Text:             "echo: " + prompt,
		PromptTokens:     len(prompt),
		CompletionTokens: 2,
	}, nil
}

func (h *fakeHandle) Embedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (h *fakeHandle) Close() error {
	if atomic.LoadInt32(&h.backend.inflight) > 0 {
		h.backend.closedMidCall.Store(true)
	}
	h.closed.Store(true)
	return nil
}

func (b *fakeBackend) params() types.SamplingParams {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastParams
}

// newTestRuntime builds a Runtime over a temp catalog seeded with the
// given gguf model names.
func newTestRuntime(t *testing.T, backend Backend, names ...string) *Runtime {
	t.Helper()
	cat, err := catalog.New(t.TempDir(), registry.New(nil), zerolog.Nop())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	for _, name := range names {
		p := filepath.Join(cat.Root(), name+".gguf")
		if err := os.WriteFile(p, []byte("weights"), 0o644); err != nil {
			t.Fatalf("seed model %s: %v", name, err)
		}
	}
	return New(cat, backend, Config{}, zerolog.Nop())
}
