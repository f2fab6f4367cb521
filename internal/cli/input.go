package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"vectex/internal/core"
)

const (
	ExitSuccess           = 0
	ExitInternalError     = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInputError        = 4
	ExitToolError         = 5
	ExitArtifactError     = 6
)

// Usage is printed to standard output on a usage error.
const Usage = "Usage: vectex <filename> [color]"

// CLIInvocation is the parsed description of a run.
type CLIInvocation struct {
	// BaseName names the output file and, through its final element, every
	// intermediate artifact. No extension is appended.
	BaseName string

	// Color is the fill/stroke color. Empty means the configured default.
	Color string

	// ConfigPath is an optional TOML configuration file.
	ConfigPath string

	// LogLevel overrides the configured log level when set.
	LogLevel string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

func configErrorf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation turns the positional arguments into a CLIInvocation.
//
// Exactly one or two arguments are accepted: the output name and an
// optional color. Anything else is a usage error and nothing is created.
func ParseInvocation(args []string) (CLIInvocation, error) {
	if len(args) != 1 && len(args) != 2 {
		return CLIInvocation{}, invalidInvocationf("expected 1 or 2 arguments, got %d", len(args))
	}
	inv := CLIInvocation{BaseName: args[0]}
	if strings.TrimSpace(inv.BaseName) == "" {
		return CLIInvocation{}, invalidInvocationf("filename must not be empty")
	}
	if len(args) == 2 {
		inv.Color = args[1]
		if strings.TrimSpace(inv.Color) == "" {
			return CLIInvocation{}, invalidInvocationf("color must not be empty")
		}
	}
	return inv, nil
}

// ReadExpression reads the whole of r as the LaTeX expression.
//
// Trailing line terminators are dropped so that "x^2\n" wraps as
// "$$ x^2 $$". Interior newlines are kept: a multi-line expression is
// typeset whole rather than truncated to its first line.
func ReadExpression(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", &core.StageError{Stage: core.StageReadInput, Kind: core.ErrInputRead, Path: "<stdin>", Err: err}
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// ExitCode maps an error to its semantic exit code.
// Errors of no known kind map to ExitInternalError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	switch {
	case errors.Is(err, core.ErrInputRead):
		return ExitInputError
	case errors.Is(err, core.ErrExternalTool):
		return ExitToolError
	case errors.Is(err, core.ErrArtifactIO):
		return ExitArtifactError
	default:
		return ExitInternalError
	}
}
