package cache

import "fmt"

// Keyer builds cache keys. Implementations must be deterministic: the same
// inputs always produce the same key.
type Keyer interface {
	// HTTPKey generates a key for a registry response.
	HTTPKey(namespace, key string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return fmt.Sprintf("http:%s:%s", namespace, key)
}

// RequestKey derives a stable key from a request's identifying parts.
// Parts are JSON-encoded before hashing, so ("a", "bc") and ("ab", "c")
// never collide.
func RequestKey(name string, parts ...any) string {
	return hashKey(name, parts...)
}

var _ Keyer = DefaultKeyer{}
