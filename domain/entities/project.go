package entities

// ProjectManifestFile is the manifest file name looked up in a project directory.
const ProjectManifestFile = "libtrixi.yaml"

// ProjectManifest describes the hosted package that a project directory provides.
type ProjectManifest struct {
	// Env is passed to the guest as WASI environment variables.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty" jsonschema:"description=Environment variables visible to the hosted module"`

	Name    string `json:"name" yaml:"name" validate:"required" jsonschema:"required,description=Name of the hosted package"`
	Version string `json:"version" yaml:"version" validate:"required,semver" jsonschema:"required,description=Semantic version of the hosted package"`

	// Module is the wasm file, relative to the project directory.
	Module string `json:"module" yaml:"module" validate:"required,endswith=.wasm,localpath" jsonschema:"required,description=Path of the wasm module relative to the project directory"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// ABIVersion must match the bridge's ABI generation.
	ABIVersion int `json:"abi_version" yaml:"abi_version" validate:"required,eq=1" jsonschema:"required,enum=1"`
}

// Project is an activated project: the manifest plus the locations it was resolved from.
type Project struct {
	Manifest *ProjectManifest

	// Dir is the canonical project directory.
	Dir string

	// ModulePath is the absolute path of the wasm module.
	ModulePath string
}
