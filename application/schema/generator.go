// Package schema publishes JSON schemas for the files a project directory provides.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
)

// ManifestID is the $id of the project manifest schema.
const ManifestID = "https://trixi-framework.github.io/libtrixi/schema/libtrixi.json"

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	return marshal(reflector.Reflect(v))
}

// ManifestSchema returns the schema of libtrixi.yaml.
func ManifestSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	s := reflector.Reflect(&entities.ProjectManifest{})
	s.ID = ManifestID
	s.Title = "libtrixi project manifest"
	return marshal(s)
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
