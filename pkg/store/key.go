package store

import "strings"

// DefaultNamespace is used when a Key has no namespace.
const DefaultNamespace = "default"

// Key identifies the snapshot of one collection.
type Key struct {
	// Namespace separates installations sharing one Redis
	Namespace string

	// Collection is the collection (database) id
	Collection string
}

// String generates the Redis key.
// Format: stagesync:snapshot:<namespace>:<collection>
//
// Example:
//
//	stagesync:snapshot:default:1f2e3d4c
func (k Key) String() string {
	namespace := strings.TrimSpace(k.Namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return strings.Join([]string{"stagesync", "snapshot", namespace, k.Collection}, ":")
}
