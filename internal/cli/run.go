package cli

import (
	"context"
	"fmt"
	"io"
)

// Run is a high-level CLI entrypoint suitable for black-box tests.
// It accepts the argument slice (excluding argv[0]), reports usage and
// failures on env's writers, and returns the semantic exit code plus any
// error.
func Run(ctx context.Context, env Env, args []string) (CLIResult, error) {
	if args == nil {
		args = []string{}
	}
	res := CLIResult{ExitCode: ExitInternalError}
	cmd := NewCommand(env, &res)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		// --help never reaches Execute.
		res.ExitCode = ExitSuccess
		return res, nil
	}

	res.ExitCode = ExitCode(err)
	if res.ExitCode == ExitInvalidInvocation {
		fmt.Fprintln(writerOr(env.Stdout), Usage)
		return res, err
	}
	fmt.Fprintf(writerOr(env.Stderr), "vectex: %v\n", err)
	return res, err
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
