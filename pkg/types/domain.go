package types

import "time"

// Model format markers as stored on disk.
const (
	FormatGGUF       = "gguf"
	FormatHFSnapshot = "hf-snapshot"
)

// LocalModel describes a model artifact present in the local store.
// Records are derived from filesystem state on every listing; they are
// never persisted independently.
type LocalModel struct {
	// Logical model name (registry name when resolvable, file stem otherwise).
	// example: tinyllama
	Name string `json:"name" example:"tinyllama"`
	// Total artifact size in bytes.
	// example: 669000000
	SizeBytes int64 `json:"size_bytes" example:"669000000"`
	// Absolute path of the backing file or snapshot directory.
	// example: /home/user/.llamad/models/tinyllama.gguf
	Path string `json:"path" example:"/home/user/.llamad/models/tinyllama.gguf"`
	// Last modification time of the backing artifact.
	ModifiedAt time.Time `json:"modified_at"`
	// Artifact format: gguf or hf-snapshot.
	// example: gguf
	Format string `json:"format" example:"gguf"`
	// Optional format-specific details (e.g. file count for snapshots).
	Extra map[string]string `json:"extra,omitempty"`
}

// RunningModel is a read-only projection of a resident model handle.
type RunningModel struct {
	// Logical model name.
	// example: tinyllama
	Name string `json:"name" example:"tinyllama"`
	// On-disk artifact size in bytes.
	SizeBytes int64 `json:"size_bytes"`
	// Estimated bytes held in memory by the backend handle.
	SizeInMemory int64 `json:"size_in_memory"`
	// Short content identifier derived from the artifact path and size.
	Digest string `json:"digest,omitempty"`
	// Model family when known (llama, mistral, phi, ...).
	Family string `json:"family,omitempty"`
	// Quantization variant when derivable from the file name.
	Quantization string `json:"quantization,omitempty"`
	// Time the handle was created.
	LoadedAt time.Time `json:"loaded_at"`
	// Reserved for idle-expiry policies; zero means no expiry.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Message is one role-tagged turn of a chat conversation. Conversation
// state lives entirely with the caller.
type Message struct {
	// Role of the speaker: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Turn content.
	// example: Why is the sky blue?
	Content string `json:"content" example:"Why is the sky blue?"`
}

// SamplingParams carries generation tunables. Zero values mean
// "use the server defaults".
type SamplingParams struct {
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random).
	// example: 0.8
	Temperature float64 `json:"temperature,omitempty" example:"0.8"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Repeat penalty.
	// example: 1.1
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" example:"1.1"`
	// Optional stop sequences.
	Stop []string `json:"stop,omitempty"`
	// Random seed; 0 lets the backend choose.
	Seed int64 `json:"seed,omitempty"`
}
