package fatal

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	domainerrors "github.com/trixi-framework/libtrixi-go/domain/errors"
)

func newTestTranslator() (*Translator, *bytes.Buffer, *[]int) {
	var buf bytes.Buffer
	var codes []int
	tr := NewTranslator(WithWriter(&buf), WithExit(func(code int) { codes = append(codes, code) }))
	return tr, &buf, &codes
}

func TestDie_WritesLocationAndExits(t *testing.T) {
	tr, buf, codes := newTestTranslator()

	tr.Die(fmt.Errorf("trixi_initialize invoked multiple times"))

	require.Equal(t, []int{ExitCode}, *codes)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "ERROR in fatal_test.go:"), out)
	assert.Contains(t, out, "(fatal.TestDie_WritesLocationAndExits)")
	assert.True(t, strings.HasSuffix(out, ": trixi_initialize invoked multiple times\n"))
}

func TestDie_NilIsIgnored(t *testing.T) {
	tr, buf, codes := newTestTranslator()

	tr.Die(nil)

	assert.Empty(t, *codes)
	assert.Empty(t, buf.String())
}

func dieFromHelper(tr *Translator, err error) {
	tr.DieAt(err, 1)
}

func TestDieAt_SkipsHelperFrames(t *testing.T) {
	tr, buf, _ := newTestTranslator()

	dieFromHelper(tr, fmt.Errorf("boom"))

	assert.Contains(t, buf.String(), "(fatal.TestDieAt_SkipsHelperFrames)")
	assert.NotContains(t, buf.String(), "dieFromHelper")
}

func TestFormat_EchoesEvaluatedCode(t *testing.T) {
	err := &domainerrors.RuntimeError{
		Operation: "eval",
		Code:      "error(\"nope\")",
		Message:   "ErrorException(\"nope\")",
	}

	out := Format(err, Location{File: "main.go", Line: 12, Function: "main.main"})

	assert.Equal(t,
		"ERROR in main.go:12 (main.main): eval failed: ErrorException(\"nope\")\n"+
			"The following code could not be evaluated: error(\"nope\")\n",
		out)
}

func TestFormat_PlainError(t *testing.T) {
	out := Format(fmt.Errorf("x"), Location{File: "a.go", Line: 1, Function: "pkg.F"})
	assert.Equal(t, "ERROR in a.go:1 (pkg.F): x\n", out)
}

func TestFormat_WrappedGuestError(t *testing.T) {
	err := fmt.Errorf("controller: %w", &domainerrors.RuntimeError{
		Operation: "initialize_simulation",
		Code:      "libelixir_missing.jl",
		Message:   "opening file",
		Guest:     &entities.ErrorDetail{Type: "SystemError", Code: "ENOENT", Message: "opening file"},
	})

	out := Format(err, Location{File: "main.go", Line: 3, Function: "main.run"})

	assert.Equal(t,
		"ERROR in main.go:3 (main.run): controller: initialize_simulation failed: SystemError: opening file [ENOENT]\n"+
			"The following code could not be evaluated: libelixir_missing.jl\n",
		out)
}
