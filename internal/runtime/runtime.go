package runtime

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"llamad/internal/catalog"
	"llamad/internal/registry"
	"llamad/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultContextLength = 2048
	defaultTemperature   = 0.8
	defaultTopP          = 0.9
	defaultTopK          = 40
	defaultRepeatPenalty = 1.1
	defaultMaxTokens     = 128
)

// Config encapsulates all tunables for Runtime construction.
type Config struct {
	ContextLength int
	Threads       int
	GPULayers     int
	// Sampling defaults merged into requests that leave fields zero.
	Defaults types.SamplingParams
}

// residentKey canonicalizes a logical name for the resident table and
// the per-model locks. The catalog accepts normalized aliases
// ("llama3:8b" and "llama3-8b" name the same artifact), so residency
// and serialization must collapse aliases onto one key or one artifact
// could load twice behind two independent mutexes.
func residentKey(name string) string { return registry.Normalize(name) }

// loadedModel pairs a backend handle with its bookkeeping. It lives only
// inside the resident table.
type loadedModel struct {
	handle    ModelHandle
	name      string
	path      string
	sizeBytes int64
	family    string
	quant     string
	digest    string
	loadedAt  time.Time
}

// Runtime is the load-on-demand cache of backend handles. All mutable
// state is owned here and reachable only through the operations below.
// handles and locks are keyed by residentKey(name).
type Runtime struct {
	mu      sync.RWMutex
	handles map[string]*loadedModel
	locks   map[string]*sync.Mutex

	backend Backend
	catalog *catalog.Catalog
	cfg     Config
	pub     EventPublisher
	log     zerolog.Logger
}

// New constructs a Runtime. The catalog resolves names to artifact
// paths; the backend produces handles.
func New(cat *catalog.Catalog, backend Backend, cfg Config, log zerolog.Logger) *Runtime {
	if cfg.ContextLength <= 0 {
		cfg.ContextLength = defaultContextLength
	}
	if cfg.Defaults.Temperature == 0 {
		cfg.Defaults.Temperature = defaultTemperature
	}
	if cfg.Defaults.TopP == 0 {
		cfg.Defaults.TopP = defaultTopP
	}
	if cfg.Defaults.TopK == 0 {
		cfg.Defaults.TopK = defaultTopK
	}
	if cfg.Defaults.RepeatPenalty == 0 {
		cfg.Defaults.RepeatPenalty = defaultRepeatPenalty
	}
	if cfg.Defaults.MaxTokens == 0 {
		cfg.Defaults.MaxTokens = defaultMaxTokens
	}
	return &Runtime{
		handles: make(map[string]*loadedModel),
		locks:   make(map[string]*sync.Mutex),
		backend: backend,
		catalog: cat,
		cfg:     cfg,
		pub:     noopPublisher{},
		log:     log,
	}
}

// SetPublisher installs a lifecycle event publisher.
func (rt *Runtime) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	rt.pub = p
}

// lockFor returns the per-model mutex for a resident key, creating it
// lazily. Mutexes are never removed; the map is bounded by the number
// of distinct model names seen.
func (rt *Runtime) lockFor(key string) *sync.Mutex {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	mu, ok := rt.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		rt.locks[key] = mu
	}
	return mu
}

// ListRunning returns a snapshot copy of the resident models, never a
// live reference.
func (rt *Runtime) ListRunning() []types.RunningModel {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]types.RunningModel, 0, len(rt.handles))
	for _, lm := range rt.handles {
		out = append(out, types.RunningModel{
			Name:         lm.name,
			SizeBytes:    lm.sizeBytes,
			SizeInMemory: lm.sizeBytes,
			Digest:       lm.digest,
			Family:       lm.family,
			Quantization: lm.quant,
			LoadedAt:     lm.loadedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Loaded reports whether name is currently resident.
func (rt *Runtime) Loaded(name string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	_, ok := rt.handles[residentKey(name)]
	return ok
}

// Close unloads every resident handle. Used at process teardown. Each
// model's mutex is taken first so a handle is never freed while an
// inference call still runs on it.
func (rt *Runtime) Close() error {
	rt.mu.RLock()
	keys := make([]string, 0, len(rt.handles))
	for key := range rt.handles {
		keys = append(keys, key)
	}
	rt.mu.RUnlock()

	for _, key := range keys {
		mu := rt.lockFor(key)
		mu.Lock()
		rt.mu.Lock()
		lm, ok := rt.handles[key]
		if ok {
			delete(rt.handles, key)
		}
		rt.mu.Unlock()
		if ok {
			if err := lm.handle.Close(); err != nil {
				rt.log.Warn().Str("model", lm.name).Err(err).Msg("close handle")
			}
			runningModels.Dec()
		}
		mu.Unlock()
	}
	return nil
}
