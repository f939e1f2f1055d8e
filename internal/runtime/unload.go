package runtime

// Unload removes the resident handle for name and releases its backend
// resources. It takes the per-model mutex first, so an unload waits for
// any in-flight inference on the handle to finish before closing it.
// A no-op when the model is not resident; never errors.
func (rt *Runtime) Unload(name string) {
	key := residentKey(name)
	mu := rt.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	rt.mu.Lock()
	lm, ok := rt.handles[key]
	if ok {
		delete(rt.handles, key)
	}
	rt.mu.Unlock()
	if !ok {
		return
	}
	if err := lm.handle.Close(); err != nil {
		rt.log.Warn().Str("model", lm.name).Err(err).Msg("close handle")
	}
	runningModels.Dec()
	unloadsTotal.Inc()
	rt.log.Info().Str("model", lm.name).Msg("model unloaded")
	rt.pub.Publish(Event{Name: "unload", Model: lm.name})
}
