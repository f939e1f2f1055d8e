package runtime

import (
	"errors"
	"fmt"
)

var errEmptyInput = errors.New("no input texts")

// loadError signals that the backend could not materialize a handle from
// an artifact; the file is likely corrupt or format-mismatched.
type loadError struct {
	name string
	err  error
}

func (e loadError) Error() string { return fmt.Sprintf("load %s: %v", e.name, e.err) }
func (e loadError) Unwrap() error { return e.err }

// IsLoadFailed reports whether err indicates a backend load failure.
func IsLoadFailed(err error) bool {
	_, ok := err.(loadError)
	return ok
}

// inferenceError signals a backend computation failure during
// generate/chat/embed. Fatal for the call, not for the resident entry.
type inferenceError struct {
	name string
	op   string
	err  error
}

func (e inferenceError) Error() string { return fmt.Sprintf("%s %s: %v", e.op, e.name, e.err) }
func (e inferenceError) Unwrap() error { return e.err }

// IsInferenceFailed reports whether err indicates a backend computation error.
func IsInferenceFailed(err error) bool {
	_, ok := err.(inferenceError)
	return ok
}

// backendUnavailableError signals a missing backend build (e.g. compiled
// without the llama tag) so callers can report 503 instead of 500.
type backendUnavailableError struct{ msg string }

func (e backendUnavailableError) Error() string { return e.msg }

// ErrBackendUnavailable constructs a backendUnavailableError.
func ErrBackendUnavailable(msg string) error { return backendUnavailableError{msg: msg} }

// IsBackendUnavailable reports whether err indicates a missing backend runtime.
func IsBackendUnavailable(err error) bool {
	_, ok := err.(backendUnavailableError)
	return ok
}
