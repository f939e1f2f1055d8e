//go:build !llama

package runtime

// This file provides a no-CGO stub for the llama backend. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real backend lives in adapter_llama.go (tagged 'llama').

// llamaBuilt indicates whether real llama support was compiled in.
var llamaBuilt = false

type llamaBackend struct{}

// NewLlamaBackend returns a backend that refuses to load models without
// the 'llama' build tag. Fail fast rather than mock.
func NewLlamaBackend() Backend { return llamaBackend{} }

func (llamaBackend) Load(path string, cfg LoadConfig) (ModelHandle, error) {
	return nil, ErrBackendUnavailable("llama support not built (missing 'llama' build tag)")
}
