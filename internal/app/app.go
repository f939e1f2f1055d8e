// Package app composes the registry, catalog, downloader and inference
// runtime behind the operation surface exposed to the CLI and HTTP
// layers. It also owns the per-logical-name mutex that serializes
// mutations of a model's backing bytes (pull, delete) so that at most
// one download per name is ever in flight.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"llamad/internal/catalog"
	"llamad/internal/download"
	"llamad/internal/registry"
	"llamad/internal/runtime"
	"llamad/pkg/types"
)

// App is the facade over the model lifecycle subsystem.
type App struct {
	reg     *registry.Registry
	cat     *catalog.Catalog
	fetcher *download.Fetcher
	rt      *runtime.Runtime
	log     zerolog.Logger

	mu        sync.Mutex
	nameLocks map[string]*sync.Mutex
}

// New wires the facade. All collaborators are required.
func New(reg *registry.Registry, cat *catalog.Catalog, fetcher *download.Fetcher, rt *runtime.Runtime, log zerolog.Logger) *App {
	return &App{
		reg:       reg,
		cat:       cat,
		fetcher:   fetcher,
		rt:        rt,
		log:       log,
		nameLocks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the artifact mutex for a logical name, created
// lazily. Keys are normalized so aliases of one artifact ("llama3:8b",
// "llama3-8b") share a mutex, matching the shared destination path.
func (a *App) lockFor(name string) *sync.Mutex {
	key := registry.Normalize(name)
	a.mu.Lock()
	defer a.mu.Unlock()
	mu, ok := a.nameLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		a.nameLocks[key] = mu
	}
	return mu
}

// Pull resolves name through the registry and materializes the artifact
// locally. A second pull of an existing artifact without force is a
// no-op success; concurrent pulls for the same name serialize so the
// transfer happens at most once.
func (a *App) Pull(ctx context.Context, name string, force bool, progress download.Progress) error {
	uri, err := a.reg.Resolve(name)
	if err != nil {
		return err
	}

	mu := a.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	dest := a.cat.DestPath(name)
	fetched, err := a.fetcher.Fetch(ctx, uri, dest, force, progress)
	if err != nil {
		return err
	}
	if fetched {
		a.log.Info().Str("model", name).Str("dest", dest).Msg("model pulled")
	}
	return nil
}

// List returns the catalog's view of local models.
func (a *App) List() ([]types.LocalModel, error) { return a.cat.List() }

// Show returns the record for one local model.
func (a *App) Show(name string) (types.LocalModel, error) { return a.cat.Find(name) }

// Delete removes a local artifact. It holds the model's artifact mutex
// so a delete never races a pull for the same name. A resident handle is
// not unloaded: the loaded copy keeps serving until an explicit Unload.
func (a *App) Delete(name string) error {
	mu := a.lockFor(name)
	mu.Lock()
	defer mu.Unlock()
	return a.cat.Delete(name)
}

// Copy duplicates a local model under a new name.
func (a *App) Copy(source, destination string) error {
	mu := a.lockFor(destination)
	mu.Lock()
	defer mu.Unlock()
	return a.cat.Copy(source, destination)
}

// Generate dispatches a completion request.
func (a *App) Generate(ctx context.Context, name, prompt string, params types.SamplingParams) (types.GenerateResponse, error) {
	return a.rt.Generate(ctx, name, prompt, params)
}

// Chat dispatches a conversation request.
func (a *App) Chat(ctx context.Context, name string, messages []types.Message, params types.SamplingParams) (types.ChatResponse, error) {
	return a.rt.Chat(ctx, name, messages, params)
}

// Embed dispatches an embedding request.
func (a *App) Embed(ctx context.Context, name string, inputs []string) ([]float32, error) {
	return a.rt.Embed(ctx, name, inputs)
}

// ListRunning snapshots the resident models.
func (a *App) ListRunning() []types.RunningModel { return a.rt.ListRunning() }

// Unload removes a resident handle; no-op when absent.
func (a *App) Unload(name string) { a.rt.Unload(name) }

// Ready reports whether the facade can serve requests.
func (a *App) Ready() bool { return a.rt != nil }

// Close unloads all resident handles.
func (a *App) Close() error { return a.rt.Close() }
