package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
)

// FakeRuntime implements ports.EmbeddedRuntime around a FakeSolver.
type FakeRuntime struct {
	Solver      *FakeSolver
	BootErr     error
	ActivateErr error
	BootConfig  ports.BootConfig
	Project     *entities.Project
	Booted      bool
	Closed      bool
	CloseCalls  int
}

var _ ports.EmbeddedRuntime = (*FakeRuntime)(nil)

// NewFakeRuntime returns a runtime whose Activate hands out solver.
func NewFakeRuntime(solver *FakeSolver) *FakeRuntime {
	return &FakeRuntime{Solver: solver}
}

func (r *FakeRuntime) Boot(_ context.Context, cfg ports.BootConfig) error {
	if r.BootErr != nil {
		return r.BootErr
	}
	if r.Booted {
		return errors.New("runtime already booted")
	}
	r.Booted = true
	r.BootConfig = cfg
	return nil
}

func (r *FakeRuntime) Activate(_ context.Context, project *entities.Project) (ports.HostedModule, error) {
	if !r.Booted {
		return nil, errors.New("runtime not booted")
	}
	if r.ActivateErr != nil {
		return nil, r.ActivateErr
	}
	r.Project = project
	return r.Solver, nil
}

func (r *FakeRuntime) Close(context.Context) error {
	r.CloseCalls++
	r.Closed = true
	return nil
}

// DefaultManifest is a valid manifest naming solver.wasm.
const DefaultManifest = `name: fake-solver
version: 0.7.1
module: solver.wasm
abi_version: 1
`

// WriteProject creates a project directory containing manifest and, when
// module is non-nil, the wasm file solver.wasm. It returns the directory.
func WriteProject(t testing.TB, manifest string, module []byte) string {
	t.Helper()

	dir := t.TempDir()
	if manifest != "" {
		if err := os.WriteFile(filepath.Join(dir, entities.ProjectManifestFile), []byte(manifest), 0o600); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
	}
	if module != nil {
		if err := os.WriteFile(filepath.Join(dir, "solver.wasm"), module, 0o600); err != nil {
			t.Fatalf("failed to write module: %v", err)
		}
	}
	return dir
}
