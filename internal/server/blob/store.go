// Package blob stores and retrieves raw pass artifacts by key.
package blob

import "context"

// Store is the artifact byte store. Upload returns the stable key the
// bytes were stored under; Fetch returns the bytes for a previously
// returned key.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// ArtifactKey derives the storage key for a pass artifact from its vanity
// name. The key is stable across updates, so a re-upload overwrites the
// previous artifact.
func ArtifactKey(vanityName string) string {
	return "passes/" + vanityName + ".pkpass"
}
