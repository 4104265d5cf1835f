package ports

import "github.com/trixi-framework/libtrixi-go/domain/entities"

// ManifestParser parses raw bytes into a ProjectManifest.
type ManifestParser interface {
	// Parse unmarshals manifest bytes into a ProjectManifest struct.
	Parse(data []byte) (*entities.ProjectManifest, error)
}
