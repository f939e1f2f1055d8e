package runtime

import (
	"context"

	"llamad/pkg/types"
)

// LoadConfig carries backend loader settings.
type LoadConfig struct {
	// Context window length in tokens.
	ContextLength int
	// Worker thread count; 0 lets the backend pick.
	Threads int
	// Layers to offload to the GPU; 0 = CPU only, -1 = all.
	GPULayers int
}

// CompletionResult is the raw output of one backend completion call.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Backend materializes model handles from artifact paths. Implementations
// must be safe for concurrent Load calls against different paths; the
// runtime serializes loads per model name.
type Backend interface {
	Load(path string, cfg LoadConfig) (ModelHandle, error)
}

// ModelHandle is an opaque ready-to-use loaded model. Handles are owned
// exclusively by the runtime's resident table and are never shared
// outside it; the runtime guarantees calls against one handle do not
// interleave.
type ModelHandle interface {
	Completion(ctx context.Context, prompt string, params types.SamplingParams) (CompletionResult, error)
	Embedding(ctx context.Context, text string) ([]float32, error)
	Close() error
}
