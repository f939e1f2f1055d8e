// Package registry maps logical model names to remote artifact locators.
// The mapping is fixed at construction time; lookups are pure and the
// registry holds no mutable state afterwards.
package registry

import (
	"strings"
)

// Locator binds a logical model name to the remote URI of its artifact.
type Locator struct {
	Name string
	URI  string
}

// Registry resolves logical names to remote URIs.
type Registry struct {
	entries map[string]string
}

// New builds a registry from the built-in table plus extra entries.
// Extra entries override built-ins with the same name.
func New(extra map[string]string) *Registry {
	entries := make(map[string]string, len(builtins)+len(extra))
	for _, l := range builtins {
		entries[l.Name] = l.URI
	}
	for name, uri := range extra {
		if name == "" || uri == "" {
			continue
		}
		entries[name] = uri
	}
	return &Registry{entries: entries}
}

// Resolve returns the remote URI for a logical name.
func (r *Registry) Resolve(name string) (string, error) {
	uri, ok := r.entries[name]
	if !ok {
		return "", notFoundError{name: name}
	}
	return uri, nil
}

// Locators returns a copy of all entries, sorted order not guaranteed.
func (r *Registry) Locators() []Locator {
	out := make([]Locator, 0, len(r.entries))
	for name, uri := range r.entries {
		out = append(out, Locator{Name: name, URI: uri})
	}
	return out
}

// Normalize converts a logical name to its on-disk form. Tag and repo
// separators are not valid in file names on all platforms.
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

// ReverseResolve maps a stored file stem back to a logical name.
// Resolution order is deterministic: exact name match, normalized name
// match, then a stem that equals a registry entry's remote artifact
// identifier (a file kept under its upstream name). The identifier
// comparison is exact, not substring: derived stems like "alpha-copy"
// must stay distinct from "alpha". Returns false when no registry entry
// matches; callers fall back to the raw stem.
func (r *Registry) ReverseResolve(stem string) (string, bool) {
	if _, ok := r.entries[stem]; ok {
		return stem, true
	}
	lower := strings.ToLower(stem)
	for name := range r.entries {
		if Normalize(name) == lower {
			return name, true
		}
	}
	for name, uri := range r.entries {
		id := remoteIdent(uri)
		if id != "" && strings.EqualFold(stem, id) {
			return name, true
		}
	}
	return "", false
}

// remoteIdent extracts the artifact identifier from a URI: the final
// path segment without its extension.
func remoteIdent(uri string) string {
	s := uri
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, '.'); i > 0 {
		s = s[:i]
	}
	return s
}

type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "model not found in registry: " + e.name }

// IsNotFound reports whether err indicates an unknown logical name.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}
