package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Failure kinds. Every error returned by a Pipeline matches exactly one of
// these through errors.Is.
var (
	ErrInputRead    = errors.New("input read failed")
	ErrExternalTool = errors.New("external tool failed")
	ErrArtifactIO   = errors.New("artifact i/o failed")
)

// Stage names one step of a conversion run.
type Stage string

const (
	StageReadInput     Stage = "read-input"
	StageWriteDocument Stage = "write-document"
	StageTypeset       Stage = "typeset"
	StageConvert       Stage = "convert"
	StageCleanup       Stage = "cleanup"
	StageReadSVG       Stage = "read-svg"
	StageColorize      Stage = "colorize"
	StageWriteOutput   Stage = "write-output"
)

// Stages lists every pipeline stage in execution order.
var Stages = []Stage{
	StageWriteDocument,
	StageTypeset,
	StageConvert,
	StageCleanup,
	StageReadSVG,
	StageColorize,
	StageWriteOutput,
}

// StageError reports which stage failed, on which artifact, and why.
type StageError struct {
	Stage Stage
	Kind  error
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.Stage))
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StageError) Unwrap() error { return e.Err }

// Is reports whether target is the failure kind of e.
func (e *StageError) Is(target error) bool { return e.Kind == target }

func stageErr(stage Stage, kind error, path string, err error) error {
	return &StageError{Stage: stage, Kind: kind, Path: path, Err: err}
}

// ToolError describes an external program that could not be started,
// exited unsuccessfully, or did not produce what it was supposed to.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int

	// Stderr holds the tail of the captured standard error.
	Stderr string

	// Diagnostics are error lines harvested from the tool's own log.
	Diagnostics []string

	Err error
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Tool
	switch {
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	case e.ExitCode != 0:
		msg += fmt.Sprintf(": exit status %d", e.ExitCode)
	}
	if len(e.Diagnostics) > 0 {
		msg += ": " + strings.Join(e.Diagnostics, " | ")
	} else if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// ErrMissingArtifact is wrapped by a ToolError when a tool exited
// successfully without producing an expected file.
var ErrMissingArtifact = errors.New("expected artifact was not produced")

// ErrNotSVG is wrapped by a ToolError when the converter output does not
// open with an svg element.
var ErrNotSVG = errors.New("output is not an svg document")

// CleanupError lists the intermediate artifacts that could not be removed.
type CleanupError struct {
	Paths []string
	Errs  []error
}

func (e *CleanupError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("not removed: %s", strings.Join(e.Paths, ", "))
}

// Unwrap exposes the first removal failure.
func (e *CleanupError) Unwrap() error {
	if e == nil || len(e.Errs) == 0 {
		return nil
	}
	return e.Errs[0]
}
