// Package validation checks project manifests before a module is activated.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report manifest keys rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// module paths must stay inside the project directory
	_ = v.RegisterValidation("localpath", func(fl validator.FieldLevel) bool {
		return filepath.IsLocal(fl.Field().String())
	})

	return v
}

// ManifestValidator validates manifests using struct tags on entities.ProjectManifest.
type ManifestValidator struct{}

// NewManifestValidator creates a new validator.
func NewManifestValidator() ports.ManifestValidator {
	return ManifestValidator{}
}

// Validate checks the manifest. Rule violations are reported in the result;
// the error is reserved for manifests that cannot be validated at all.
func (ManifestValidator) Validate(manifest *entities.ProjectManifest) (*entities.ValidationResult, error) {
	if manifest == nil {
		return nil, errors.New("manifest is nil")
	}

	result := &entities.ValidationResult{Valid: true}

	err := validate.Struct(manifest)
	if err == nil {
		return result, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}

	result.Valid = false
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return result, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "semver":
		return fmt.Sprintf("%q is not a semantic version", fe.Value())
	case "endswith":
		return fmt.Sprintf("must end with %q", fe.Param())
	case "eq":
		return fmt.Sprintf("must be %s", fe.Param())
	case "localpath":
		return fmt.Sprintf("%q must be a relative path inside the project directory", fe.Value())
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}
