package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

func TestGenerateSchema_SimpleStruct(t *testing.T) {
	type SimpleConfig struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}

	schema, err := GenerateSchema(SimpleConfig{})
	require.NoError(t, err)

	decoded := decode(t, schema)
	properties, ok := decoded["properties"].(map[string]any)
	require.True(t, ok, "properties should be a map")
	assert.Contains(t, properties, "host")
	assert.Contains(t, properties, "port")
}

func TestGenerateSchema_EmptyStruct(t *testing.T) {
	type EmptyConfig struct{}

	schema, err := GenerateSchema(EmptyConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, decode(t, schema))
}

func TestManifestSchema(t *testing.T) {
	schema, err := ManifestSchema()
	require.NoError(t, err)

	decoded := decode(t, schema)
	assert.Equal(t, ManifestID, decoded["$id"])
	assert.Equal(t, "object", decoded["type"])

	properties, ok := decoded["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"name", "version", "module", "abi_version", "env", "description"} {
		assert.Contains(t, properties, key)
	}

	required, ok := decoded["required"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"name", "version", "module", "abi_version"}, required)

	abi, ok := properties["abi_version"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{float64(1)}, abi["enum"])

	assert.Equal(t, false, decoded["additionalProperties"])
}
