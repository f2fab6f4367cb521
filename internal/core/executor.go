package core

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Command is an external program and the arguments that precede the ones
// the pipeline appends.
type Command struct {
	Name string
	Args []string
}

// With returns the full argument list of c followed by extra.
func (c Command) With(extra ...string) []string {
	args := make([]string, 0, len(c.Args)+len(extra))
	args = append(args, c.Args...)
	return append(args, extra...)
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ExecutionResult contains the outcome of one external process.
type ExecutionResult struct {
	// Stdout is the captured standard output.
	Stdout []byte

	// Stderr is the captured standard error.
	Stderr []byte

	// ExitCode is the process exit code.
	// 0 indicates success, non-zero indicates failure.
	ExitCode int
}

// ToolRunner runs one external program to completion.
//
// A non-zero exit is not an error: it is reported through
// ExecutionResult.ExitCode. An error means the program could not be run at
// all, or the context was cancelled.
type ToolRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (*ExecutionResult, error)
}

// Executor runs external tools with the host environment.
//
// Standard input is empty, so a TeX engine that stops at an error prompt
// reads EOF and exits instead of waiting for the terminal.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Run starts name with args in dir and waits for it to exit.
//
// When ctx is cancelled the whole process group is killed, so helper
// processes spawned by the TeX distribution do not outlive the run.
func (e *Executor) Run(ctx context.Context, dir string, name string, args ...string) (*ExecutionResult, error) {
	if name == "" {
		return nil, errors.New("command name is empty")
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start command")
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return nil, errors.Wrap(ctx.Err(), "execution cancelled")
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrap(err, "failed to execute command")
		}
		exitCode = exitErr.ExitCode()
	}

	return &ExecutionResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// tail returns at most the last n bytes of b as trimmed text.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
