package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llamad/internal/download"
	"llamad/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Pull(ctx context.Context, name string, force bool, progress download.Progress) error
	List() ([]types.LocalModel, error)
	Show(name string) (types.LocalModel, error)
	Delete(name string) error
	Copy(source, destination string) error
	Generate(ctx context.Context, name, prompt string, params types.SamplingParams) (types.GenerateResponse, error)
	Chat(ctx context.Context, name string, messages []types.Message, params types.SamplingParams) (types.ChatResponse, error)
	Embed(ctx context.Context, name string, inputs []string) ([]float32, error)
	ListRunning() []types.RunningModel
	Unload(name string)
	Ready() bool
}

// NewMux builds the API router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/pull", handlePull(svc))
		r.Get("/tags", handleList(svc))
		r.Get("/show/{name}", handleShow(svc))
		r.Delete("/delete", handleDelete(svc))
		r.Post("/copy", handleCopy(svc))
		r.Post("/generate", handleGenerate(svc))
		r.Post("/chat", handleChat(svc))
		r.Post("/embeddings", handleEmbed(svc))
		r.Get("/ps", handlePs(svc))
		r.Post("/unload", handleUnload(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// decodeJSON enforces the JSON content type and body limit before
// decoding into dst. It writes the error response itself and reports
// success through the return value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

func handleList(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := svc.List()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, types.ListResponse{Models: models})
	}
}

func handleShow(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.Show(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, rec)
	}
}

func handlePull(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PullRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeJSONError(w, http.StatusBadRequest, "name is required")
			return
		}

		// Stream NDJSON progress lines while the transfer runs.
		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		enc := json.NewEncoder(w)
		progress := func(completed, total int64) {
			_ = enc.Encode(types.PullStatus{Status: "pulling", Completed: completed, Total: total})
			if flush != nil {
				flush()
			}
		}

		start := time.Now()
		logStart(r, "pull", req.Name)
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.Pull(ctx, req.Name, req.Force, progress); err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			// Headers are already out; report the failure as a line.
			_ = enc.Encode(types.ErrorResponse{Error: err.Error(), Code: statusFor(err)})
			logEnd(r, "pull", statusFor(err), start, err)
			return
		}
		_ = enc.Encode(types.PullStatus{Status: "success"})
		if flush != nil {
			flush()
		}
		logEnd(r, "pull", http.StatusOK, start, nil)
	}
}

func handleDelete(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.DeleteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeJSONError(w, http.StatusBadRequest, "name is required")
			return
		}
		if err := svc.Delete(req.Name); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func handleCopy(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CopyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Destination) == "" {
			writeJSONError(w, http.StatusBadRequest, "source and destination are required")
			return
		}
		if err := svc.Copy(req.Source, req.Destination); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Model) == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		start := time.Now()
		logStart(r, "generate", req.Model)
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Generate(ctx, req.Model, req.Prompt, req.Options)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeError(w, err)
			logEnd(r, "generate", statusFor(err), start, err)
			return
		}
		writeJSON(w, resp)
		logEnd(r, "generate", http.StatusOK, start, nil)
	}
}

func handleChat(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Model) == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}
		if len(req.Messages) == 0 {
			writeJSONError(w, http.StatusBadRequest, "messages are required")
			return
		}
		start := time.Now()
		logStart(r, "chat", req.Model)
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Chat(ctx, req.Model, req.Messages, req.Options)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeError(w, err)
			logEnd(r, "chat", statusFor(err), start, err)
			return
		}
		writeJSON(w, resp)
		logEnd(r, "chat", http.StatusOK, start, nil)
	}
}

func handleEmbed(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.EmbedRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Model) == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}
		if len(req.Input) == 0 {
			writeJSONError(w, http.StatusBadRequest, "input is required")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		vec, err := svc.Embed(ctx, req.Model, req.Input)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, types.EmbedResponse{Model: req.Model, Embedding: vec})
	}
}

func handlePs(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.PsResponse{Models: svc.ListRunning()})
	}
}

func handleUnload(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.UnloadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeJSONError(w, http.StatusBadRequest, "name is required")
			return
		}
		svc.Unload(req.Name)
		w.WriteHeader(http.StatusOK)
	}
}
