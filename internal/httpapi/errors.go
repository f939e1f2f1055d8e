package httpapi

import (
	"encoding/json"
	"net/http"

	"llamad/internal/catalog"
	"llamad/internal/download"
	"llamad/internal/registry"
	"llamad/internal/runtime"
	"llamad/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps well-known service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case registry.IsNotFound(err), catalog.IsNotFound(err):
		return http.StatusNotFound
	case download.IsTransfer(err):
		return http.StatusBadGateway
	case runtime.IsBackendUnavailable(err):
		return http.StatusServiceUnavailable
	case runtime.IsLoadFailed(err), runtime.IsInferenceFailed(err), catalog.IsIO(err):
		return http.StatusInternalServerError
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status code and writes the JSON payload.
func writeError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusFor(err), err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
