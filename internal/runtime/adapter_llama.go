//go:build llama

package runtime

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"llamad/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaBackend loads GGUF models in-process through go-llama.cpp.
type llamaBackend struct{}

// NewLlamaBackend returns the in-process llama.cpp backend.
func NewLlamaBackend() Backend { return llamaBackend{} }

// llamaHandle owns one loaded model.
type llamaHandle struct {
	model   *llama.LLama
	threads int
}

func (llamaBackend) Load(path string, cfg LoadConfig) (ModelHandle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(cfg.ContextLength),
		llama.EnableEmbeddings,
	}
	if cfg.GPULayers != 0 {
		mo = append(mo, llama.SetGPULayers(cfg.GPULayers))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaHandle{model: m, threads: cfg.Threads}, nil
}

func (h *llamaHandle) Completion(ctx context.Context, prompt string, params types.SamplingParams) (CompletionResult, error) {
	if h.model == nil {
		return CompletionResult{}, errors.New("llama model not initialized")
	}
	// Respect cancellation between tokens via the streaming callback.
	h.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	text, err := h.model.Predict(prompt, mapSamplingParams(params, h.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return CompletionResult{}, ctx.Err()
		}
		return CompletionResult{}, err
	}
	// Token counts are not exposed by go-llama.cpp without deeper hooks.
	return CompletionResult{Text: text}, nil
}

func (h *llamaHandle) Embedding(ctx context.Context, text string) ([]float32, error) {
	if h.model == nil {
		return nil, errors.New("llama model not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.model.Embeddings(text, llama.SetThreads(max(1, h.threads)))
}

func (h *llamaHandle) Close() error {
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// mapSamplingParams converts canonical sampling params into go-llama.cpp
// predict options.
func mapSamplingParams(p types.SamplingParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(zn(p.MaxTokens, 128)),
		llama.SetThreads(max(1, threads)),
		llama.SetTemperature(zf(float32(p.Temperature), llama.DefaultOptions.Temperature)),
		llama.SetTopP(zf(float32(p.TopP), llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetPenalty(zf(float32(p.RepeatPenalty), llama.DefaultOptions.Penalty)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(int(p.Seed)))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
