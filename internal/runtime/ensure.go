package runtime

import (
	"context"
	"time"
)

// EnsureLoaded returns the resident entry for name, loading it on first
// use. The fast path is a concurrent read; absent models go through the
// per-model mutex with a re-check so racing callers trigger exactly one
// backend load. On loader failure nothing is inserted and the model
// stays "not loaded", so a retry is safe.
func (rt *Runtime) EnsureLoaded(ctx context.Context, name string) (*loadedModel, error) {
	key := residentKey(name)
	rt.mu.RLock()
	lm, ok := rt.handles[key]
	rt.mu.RUnlock()
	if ok {
		return lm, nil
	}

	mu := rt.lockFor(key)
	mu.Lock()
	defer mu.Unlock()
	return rt.ensureLocked(ctx, key, name)
}

// ensureLocked is the slow path of EnsureLoaded. The caller must hold
// the per-model mutex for key.
func (rt *Runtime) ensureLocked(ctx context.Context, key, name string) (*loadedModel, error) {
	// Re-check: another caller may have finished the load while we
	// waited on the model lock.
	rt.mu.RLock()
	lm, ok := rt.handles[key]
	rt.mu.RUnlock()
	if ok {
		return lm, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := rt.catalog.Find(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rt.log.Info().Str("model", rec.Name).Str("path", rec.Path).Msg("loading model")
	rt.pub.Publish(Event{Name: "load_start", Model: rec.Name})

	handle, err := rt.backend.Load(rec.Path, LoadConfig{
		ContextLength: rt.cfg.ContextLength,
		Threads:       rt.cfg.Threads,
		GPULayers:     rt.cfg.GPULayers,
	})
	if err != nil {
		loadsTotal.WithLabelValues("error").Inc()
		rt.pub.Publish(Event{Name: "load_error", Model: rec.Name, Fields: map[string]any{"error": err.Error()}})
		if IsBackendUnavailable(err) {
			return nil, err
		}
		return nil, loadError{name: rec.Name, err: err}
	}

	lm = &loadedModel{
		handle:    handle,
		name:      rec.Name,
		path:      rec.Path,
		sizeBytes: rec.SizeBytes,
		family:    familyFromName(rec.Name),
		quant:     rec.Extra["quantization"],
		digest:    artifactDigest(rec.Path, rec.SizeBytes),
		loadedAt:  time.Now(),
	}
	rt.mu.Lock()
	rt.handles[key] = lm
	rt.mu.Unlock()

	loadsTotal.WithLabelValues("ok").Inc()
	runningModels.Inc()
	loadDuration.Observe(time.Since(start).Seconds())
	rt.log.Info().Str("model", rec.Name).Dur("dur", time.Since(start)).Msg("model loaded")
	rt.pub.Publish(Event{Name: "load_ready", Model: rec.Name, Fields: map[string]any{"dur_ms": int(time.Since(start) / time.Millisecond)}})
	return lm, nil
}
