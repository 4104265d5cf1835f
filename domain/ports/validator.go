package ports

import "github.com/trixi-framework/libtrixi-go/domain/entities"

// ManifestValidator checks a project manifest before it is activated.
type ManifestValidator interface {
	Validate(manifest *entities.ProjectManifest) (*entities.ValidationResult, error)
}
