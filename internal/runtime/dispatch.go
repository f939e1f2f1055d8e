package runtime

import (
	"context"
	"strings"
	"time"

	"llamad/pkg/types"
)

// Generate runs a single-prompt completion against name. The model's
// mutex is held for the duration of the backend call, so concurrent
// requests to one model serialize while requests to different models
// proceed in parallel.
func (rt *Runtime) Generate(ctx context.Context, name, prompt string, params types.SamplingParams) (types.GenerateResponse, error) {
	start := time.Now()
	res, evalDur, err := rt.complete(ctx, name, prompt, params)
	if err != nil {
		return types.GenerateResponse{}, err
	}
	return types.GenerateResponse{
		Model:           name,
		Response:        res.Text,
		Done:            true,
		PromptEvalCount: res.PromptTokens,
		EvalCount:       res.CompletionTokens,
		TotalDuration:   time.Since(start).Nanoseconds(),
		EvalDuration:    evalDur.Nanoseconds(),
	}, nil
}

// Chat serializes the conversation into a single backend prompt and
// returns the completion as a fresh assistant turn. The runtime is
// stateless across calls; conversation history lives with the caller.
func (rt *Runtime) Chat(ctx context.Context, name string, messages []types.Message, params types.SamplingParams) (types.ChatResponse, error) {
	start := time.Now()
	prompt := BuildChatPrompt(messages)
	res, evalDur, err := rt.complete(ctx, name, prompt, params)
	if err != nil {
		return types.ChatResponse{}, err
	}
	return types.ChatResponse{
		Model:           name,
		Message:         types.Message{Role: "assistant", Content: strings.TrimSpace(res.Text)},
		Done:            true,
		PromptEvalCount: res.PromptTokens,
		EvalCount:       res.CompletionTokens,
		TotalDuration:   time.Since(start).Nanoseconds(),
		EvalDuration:    evalDur.Nanoseconds(),
	}, nil
}

// Embed produces one fixed-dimension vector for the inputs. Multiple
// inputs are embedded individually and averaged element-wise.
func (rt *Runtime) Embed(ctx context.Context, name string, inputs []string) ([]float32, error) {
	if len(inputs) == 0 {
		return nil, inferenceError{name: name, op: "embed", err: errEmptyInput}
	}
	key := residentKey(name)
	mu := rt.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	lm, err := rt.ensureLocked(ctx, key, name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	vectors := make([][]float32, 0, len(inputs))
	for _, text := range inputs {
		vec, err := lm.handle.Embedding(ctx, text)
		if err != nil {
			inferenceDuration.WithLabelValues("embed", "error").Observe(time.Since(start).Seconds())
			return nil, inferenceError{name: name, op: "embed", err: err}
		}
		vectors = append(vectors, vec)
	}
	inferenceDuration.WithLabelValues("embed", "ok").Observe(time.Since(start).Seconds())
	return meanVector(vectors), nil
}

// complete is the shared generate/chat path. The per-model mutex is
// taken before residency is resolved and held through the backend call,
// so the handle cannot be unloaded out from under the call and
// concurrent requests to one model serialize.
func (rt *Runtime) complete(ctx context.Context, name, prompt string, params types.SamplingParams) (CompletionResult, time.Duration, error) {
	key := residentKey(name)
	mu := rt.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	lm, err := rt.ensureLocked(ctx, key, name)
	if err != nil {
		return CompletionResult{}, 0, err
	}

	merged := rt.mergeParams(params)
	evalStart := time.Now()
	res, err := lm.handle.Completion(ctx, prompt, merged)
	evalDur := time.Since(evalStart)
	if err != nil {
		inferenceDuration.WithLabelValues("completion", "error").Observe(evalDur.Seconds())
		if ctx.Err() != nil {
			return CompletionResult{}, 0, ctx.Err()
		}
		return CompletionResult{}, 0, inferenceError{name: name, op: "completion", err: err}
	}
	inferenceDuration.WithLabelValues("completion", "ok").Observe(evalDur.Seconds())
	return res, evalDur, nil
}

// mergeParams fills zero-valued request fields from the runtime defaults.
func (rt *Runtime) mergeParams(p types.SamplingParams) types.SamplingParams {
	d := rt.cfg.Defaults
	if p.MaxTokens == 0 {
		p.MaxTokens = d.MaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = d.Temperature
	}
	if p.TopP == 0 {
		p.TopP = d.TopP
	}
	if p.TopK == 0 {
		p.TopK = d.TopK
	}
	if p.RepeatPenalty == 0 {
		p.RepeatPenalty = d.RepeatPenalty
	}
	return p
}

// BuildChatPrompt flattens role-tagged turns into a backend-native
// prompt: labelled turns in order, blank-line separated, terminated with
// an open assistant turn.
func BuildChatPrompt(messages []types.Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case "system":
			b.WriteString("System: ")
		case "user":
			b.WriteString("User: ")
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}

// meanVector averages vectors element-wise. Inputs are assumed to share
// the backend's fixed embedding dimension; shorter vectors contribute
// zeros for missing positions.
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 1 {
		return vectors[0]
	}
	dim := 0
	for _, v := range vectors {
		if len(v) > dim {
			dim = len(v)
		}
	}
	out := make([]float32, dim)
	for _, v := range vectors {
		for i, x := range v {
			out[i] += x
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}
