// Package fatal turns bridge errors into the process-terminating diagnostics
// expected by callers that cannot handle errors themselves.
package fatal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	domainerrors "github.com/trixi-framework/libtrixi-go/domain/errors"
)

// ExitCode is the status the process terminates with.
const ExitCode = 1

// Translator writes a diagnostic for an error and terminates the process.
type Translator struct {
	mu   sync.Mutex
	w    io.Writer
	exit func(int)
}

// Option configures a Translator.
type Option func(*Translator)

// WithWriter redirects diagnostics, stderr by default.
func WithWriter(w io.Writer) Option {
	return func(t *Translator) {
		t.w = w
	}
}

// WithExit replaces os.Exit, mainly for tests.
func WithExit(exit func(int)) Option {
	return func(t *Translator) {
		t.exit = exit
	}
}

// NewTranslator creates a Translator.
func NewTranslator(opts ...Option) *Translator {
	t := &Translator{w: os.Stderr, exit: os.Exit}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Die reports err at the caller's location and exits.
func (t *Translator) Die(err error) {
	t.DieAt(err, 1)
}

// DieAt reports err at the location skip frames above its caller and exits.
// A nil error is ignored.
func (t *Translator) DieAt(err error, skip int) {
	if err == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = io.WriteString(t.w, Format(err, Caller(skip+1)))
	t.exit(ExitCode)
}

// Location identifies a source position.
type Location struct {
	File     string
	Line     int
	Function string
}

// Caller returns the location skip frames above its caller.
func Caller(skip int) Location {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Location{File: "???", Function: "???"}
	}
	loc := Location{File: filepath.Base(file), Line: line, Function: "???"}
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.Function = filepath.Base(fn.Name())
	}
	return loc
}

// Format renders the diagnostic for err. Errors carrying guest source code get
// the offending code echoed on a second line.
func Format(err error, loc Location) string {
	out := fmt.Sprintf("ERROR in %s:%d (%s): %v\n", loc.File, loc.Line, loc.Function, err)
	detail := domainerrors.ToErrorDetail(err)
	if detail == nil {
		return out
	}
	if code, ok := detail.Details["code"].(string); ok && code != "" {
		out += fmt.Sprintf("The following code could not be evaluated: %s\n", code)
	}
	return out
}
