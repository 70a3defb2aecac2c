// Package storage persists dossier artifacts and fetches provider payloads.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "go-roof-inspector/internal/errors"
)

// BlobStorage saves artifacts and returns their public URL.
type BlobStorage interface {
	Save(ctx context.Context, data []byte, path, contentType string) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// dossierNamespace scopes the name-based dossier IDs.
var dossierNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("roof-inspector/dossier"))

// DossierID derives a stable identifier from the request coordinates.
// Coordinates are formatted to 7 decimals (about 1 cm) before hashing.
func DossierID(propertyID string, lat, lon float64) string {
	name := fmt.Sprintf("%s|%.7f|%.7f", propertyID, lat, lon)
	return uuid.NewSHA1(dossierNamespace, []byte(name)).String()
}

// ArtifactPath joins a dossier ID and artifact name into a storage key.
func ArtifactPath(dossierID, name string) string {
	return fmt.Sprintf("dossiers/%s/%s", dossierID, name)
}

func validatePath(path string) error {
	if path == "" {
		return apperrors.NewStorageError("empty storage path", nil)
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return apperrors.NewStorageError(fmt.Sprintf("storage path %q escapes root", path), nil)
		}
	}
	return nil
}
