package download

import "fmt"

// transferError signals a network/stream failure during a fetch. The
// partial file has already been cleaned up when this surfaces.
type transferError struct {
	uri string
	err error
}

func (e transferError) Error() string { return fmt.Sprintf("transfer failed for %s: %v", e.uri, e.err) }
func (e transferError) Unwrap() error { return e.err }

// IsTransfer reports whether err indicates a failed artifact transfer.
func IsTransfer(err error) bool {
	_, ok := err.(transferError)
	return ok
}
