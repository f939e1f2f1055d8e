package catalog

import "fmt"

type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "model not found: " + e.name }

// IsNotFound reports whether err indicates a name with no local artifact.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// ioError wraps a filesystem failure with the operation and path.
type ioError struct {
	op   string
	path string
	err  error
}

func (e ioError) Error() string { return fmt.Sprintf("%s %s: %v", e.op, e.path, e.err) }
func (e ioError) Unwrap() error { return e.err }

// IsIO reports whether err is a catalog filesystem failure.
func IsIO(err error) bool {
	_, ok := err.(ioError)
	return ok
}
