package main

import (
	"context"
	"os"
	"os/signal"

	"vectex/internal/cli"
)

// main wires the process's standard streams into the CLI and exits with
// the semantic exit code. Interrupting the process kills the running
// external tool.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	res, _ := cli.Run(ctx, cli.Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, os.Args[1:])

	cancel()
	os.Exit(res.ExitCode)
}
