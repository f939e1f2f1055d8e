// Package runtime owns the resident-model table and dispatches inference
// requests to loaded backend handles. It is structured into small files
// by concern:
//
//   - runtime.go: core Runtime type, constructor, running snapshot, Close.
//   - backend.go: Backend/ModelHandle interfaces and load configuration.
//   - ensure.go: EnsureLoaded double-checked load path.
//   - dispatch.go: Generate/Chat/Embed request routing.
//   - unload.go: explicit handle removal.
//   - errors.go: error types and helpers (IsLoadFailed, IsInferenceFailed, ...).
//   - events.go: lifecycle event publishing.
//   - meta.go: name/file derived metadata (family, digest).
//
// Build tags and backends:
//
//   - In-process llama (go-llama.cpp) is enabled with `-tags=llama`
//     (adapter_llama.go). Without the tag a no-CGO stub fails fast with a
//     backend-unavailable error (adapter_llama_stub.go); nothing is mocked
//     in production builds.
//
// Concurrency: names are canonicalized to one resident key per
// artifact, loads for one key are totally ordered through a lazily
// created per-model mutex with a double-checked fast path, and
// inference calls against one resident handle never interleave. Unload
// takes the same mutex, so a handle is never closed while a backend
// call runs on it. Requests against different models run fully in
// parallel; there is no global inference lock.
package runtime
