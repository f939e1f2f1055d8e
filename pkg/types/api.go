package types

// PullRequest asks the server to materialize a model locally.
type PullRequest struct {
	// Logical model name to pull.
	// example: tinyllama
	Name string `json:"name" example:"tinyllama"`
	// Re-download even when the artifact already exists.
	// example: false
	Force bool `json:"force,omitempty" example:"false"`
}

// PullStatus is reported while a pull is in flight and on completion.
type PullStatus struct {
	// Human-readable phase: pulling, verifying, success.
	// example: pulling
	Status string `json:"status" example:"pulling"`
	// Bytes downloaded so far.
	Completed int64 `json:"completed,omitempty"`
	// Total bytes when the source advertises a length, -1 otherwise.
	Total int64 `json:"total,omitempty"`
}

// DeleteRequest names a local model to remove.
type DeleteRequest struct {
	// example: tinyllama
	Name string `json:"name" example:"tinyllama"`
}

// CopyRequest duplicates a local model under a new name.
type CopyRequest struct {
	// example: tinyllama
	Source string `json:"source" example:"tinyllama"`
	// example: tinyllama-backup
	Destination string `json:"destination" example:"tinyllama-backup"`
}

// GenerateRequest is a single-prompt completion request.
type GenerateRequest struct {
	// example: tinyllama
	Model string `json:"model" example:"tinyllama"`
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Sampling overrides; zero values fall back to server defaults.
	Options SamplingParams `json:"options,omitempty"`
}

// GenerateResponse is the canonical completion result.
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	// Prompt tokens evaluated by the backend.
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	// Completion tokens produced.
	EvalCount int `json:"eval_count,omitempty"`
	// Wall-clock duration of the whole call, nanoseconds.
	TotalDuration int64 `json:"total_duration,omitempty"`
	// Wall-clock duration of the backend call, nanoseconds.
	EvalDuration int64 `json:"eval_duration,omitempty"`
}

// ChatRequest is a multi-turn conversation request.
type ChatRequest struct {
	// example: tinyllama
	Model    string         `json:"model" example:"tinyllama"`
	Messages []Message      `json:"messages"`
	Options  SamplingParams `json:"options,omitempty"`
}

// ChatResponse carries the new assistant turn. The caller appends it to
// its own conversation; the server is stateless across calls.
type ChatResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
	TotalDuration   int64   `json:"total_duration,omitempty"`
	EvalDuration    int64   `json:"eval_duration,omitempty"`
}

// EmbedRequest computes one embedding vector for the given input.
// Input accepts a single string or a list of strings; multiple inputs
// are averaged element-wise into one vector.
type EmbedRequest struct {
	// example: tinyllama
	Model string `json:"model" example:"tinyllama"`
	// One or more input texts.
	Input StringList `json:"input"`
}

// EmbedResponse returns the embedding for the request input.
type EmbedResponse struct {
	Model     string    `json:"model"`
	Embedding []float32 `json:"embedding"`
}

// UnloadRequest removes a resident model handle.
type UnloadRequest struct {
	// example: tinyllama
	Name string `json:"name" example:"tinyllama"`
}

// ListResponse wraps GET /api/tags.
type ListResponse struct {
	Models []LocalModel `json:"models"`
}

// PsResponse wraps GET /api/ps.
type PsResponse struct {
	Models []RunningModel `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: tinyllama
	Error string `json:"error" example:"model not found: tinyllama"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
