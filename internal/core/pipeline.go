package core

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"vectex/internal/trace"
)

// DefaultColor is applied when the caller supplies no color.
const DefaultColor = "#000000"

// DefaultScale is the dvisvgm scale factor.
const DefaultScale = 20

// stderrTail bounds the amount of tool stderr kept in a ToolError.
const stderrTail = 2048

// Result describes the file a successful run wrote.
type Result struct {
	OutputPath string
	Bytes      int
}

// Pipeline converts one LaTeX expression into a colorized SVG file.
//
// A Pipeline holds no per-run state, but two runs that resolve to the same
// output path race on that file and must not overlap.
type Pipeline struct {
	// Runner executes latex and dvisvgm. Defaults to an Executor.
	Runner ToolRunner

	// Latex is the typesetting command; the .tex file name is appended.
	Latex Command

	// Dvisvgm is the converter command; the conversion flags are appended.
	Dvisvgm Command

	// Scale is the dvisvgm scale factor. Zero means DefaultScale.
	Scale float64

	// WorkDir resolves relative output paths. Empty means the process
	// working directory.
	WorkDir string

	// ScratchRoot is where per-run scratch directories are created. Empty
	// means os.TempDir.
	ScratchRoot string

	// KeepScratch leaves the scratch directory in place after the run.
	KeepScratch bool

	// Harvester verifies and removes intermediate artifacts.
	Harvester *Harvester

	Logger logrus.FieldLogger
	Trace  trace.Sink
}

// NewPipeline returns a Pipeline running the stock latex and dvisvgm
// binaries from PATH.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Runner:    NewExecutor(),
		Latex:     Command{Name: "latex"},
		Dvisvgm:   Command{Name: "dvisvgm"},
		Scale:     DefaultScale,
		Harvester: NewHarvester(),
	}
}

// ConverterFlags returns the dvisvgm arguments for the given artifacts:
// no embedded fonts, fixed scale, exact bounding box, output named after
// the stem with no extension.
func ConverterFlags(scale float64, a ArtifactSet) []string {
	return []string{
		"--no-fonts",
		"--scale=" + strconv.FormatFloat(scale, 'f', -1, 64),
		"--exact",
		filepath.Base(a.DVI()),
		"-o",
		filepath.Base(a.SVG()),
	}
}

// OutputPath resolves baseName against the pipeline's working directory.
func (p *Pipeline) OutputPath(baseName string) (string, error) {
	stem := filepath.Base(filepath.Clean(baseName))
	if baseName == "" || stem == "." || stem == ".." || stem == string(filepath.Separator) {
		return "", errors.Errorf("invalid output name %q", baseName)
	}
	if filepath.IsAbs(baseName) {
		return filepath.Clean(baseName), nil
	}
	if p.WorkDir == "" {
		return filepath.Clean(baseName), nil
	}
	return filepath.Join(p.WorkDir, baseName), nil
}

// Run converts expression and writes the SVG to the file named baseName.
//
// Stages run strictly in order and the first failure aborts the rest. The
// output file is only written once colorization has finished, so a failed
// run never leaves a partial or stale-looking output behind. Every error is
// a *StageError.
func (p *Pipeline) Run(ctx context.Context, baseName, color, expression string) (*Result, error) {
	if color == "" {
		color = DefaultColor
	}
	outPath, err := p.OutputPath(baseName)
	if err != nil {
		return nil, stageErr(StageWriteDocument, ErrArtifactIO, baseName, err)
	}

	log := p.logger().WithField("output", outPath)

	scratch, err := os.MkdirTemp(p.ScratchRoot, "vectex-")
	if err != nil {
		return nil, stageErr(StageWriteDocument, ErrArtifactIO, p.ScratchRoot, errors.Wrap(err, "create scratch directory"))
	}
	if p.KeepScratch {
		log.WithField("scratch", scratch).Info("keeping scratch directory")
	} else {
		defer os.RemoveAll(scratch)
	}

	r := &run{
		Pipeline:  p,
		ctx:       ctx,
		log:       log,
		artifacts: NewArtifactSet(scratch, filepath.Base(outPath)),
	}

	var raw, colored []byte
	steps := []struct {
		stage Stage
		path  string
		fn    func() error
	}{
		{StageWriteDocument, r.artifacts.Tex(), func() error { return r.writeDocument(expression) }},
		{StageTypeset, r.artifacts.Tex(), r.typeset},
		{StageConvert, r.artifacts.DVI(), r.convert},
		{StageCleanup, r.artifacts.Dir, r.cleanup},
		{StageReadSVG, r.artifacts.SVG(), func() (err error) { raw, err = r.readSVG(); return err }},
		{StageColorize, r.artifacts.SVG(), func() error { colored = []byte(Colorize(string(raw), color)); return nil }},
		{StageWriteOutput, outPath, func() error { return r.writeOutput(outPath, colored) }},
	}
	for _, s := range steps {
		if err := r.step(s.stage, s.path, s.fn); err != nil {
			return nil, err
		}
	}

	log.WithField("bytes", len(colored)).Info("wrote svg")
	return &Result{OutputPath: outPath, Bytes: len(colored)}, nil
}

// run carries the state of one Pipeline.Run.
type run struct {
	*Pipeline
	ctx       context.Context
	log       logrus.FieldLogger
	artifacts ArtifactSet
}

func (r *run) step(stage Stage, path string, fn func() error) error {
	log := r.log.WithFields(logrus.Fields{"stage": stage, "path": path})
	trace.SafeRecord(r.Trace, trace.Event{Kind: trace.EventStageStarted, Stage: string(stage), Path: path})
	log.Debug("stage started")

	if err := fn(); err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			err = stageErr(stage, ErrArtifactIO, path, err)
		}
		trace.SafeRecord(r.Trace, trace.Event{Kind: trace.EventStageFailed, Stage: string(stage), Path: path, Reason: reason(err)})
		log.WithError(err).Debug("stage failed")
		return err
	}

	trace.SafeRecord(r.Trace, trace.Event{Kind: trace.EventStageCompleted, Stage: string(stage), Path: path})
	log.Debug("stage completed")
	return nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrExternalTool):
		return "ExternalTool"
	case errors.Is(err, ErrInputRead):
		return "InputRead"
	default:
		return "ArtifactIO"
	}
}

func (r *run) writeDocument(expression string) error {
	if err := os.WriteFile(r.artifacts.Tex(), []byte(Wrap(expression)), 0o644); err != nil {
		return stageErr(StageWriteDocument, ErrArtifactIO, r.artifacts.Tex(), err)
	}
	return nil
}

func (r *run) typeset() error {
	tex := filepath.Base(r.artifacts.Tex())
	if err := r.invoke(StageTypeset, "latex", r.Latex, tex); err != nil {
		return err
	}
	return r.expect(StageTypeset, "latex", r.artifacts.TypesetOutputs())
}

func (r *run) convert() error {
	scale := r.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	if err := r.invoke(StageConvert, "dvisvgm", r.Dvisvgm, ConverterFlags(scale, r.artifacts)...); err != nil {
		return err
	}
	return r.expect(StageConvert, "dvisvgm", []string{r.artifacts.SVG()})
}

// invoke runs one tool in the scratch directory and turns a launch failure
// or non-zero exit into a StageError carrying a ToolError.
func (r *run) invoke(stage Stage, tool string, cmd Command, extra ...string) error {
	args := cmd.With(extra...)
	r.log.WithFields(logrus.Fields{"stage": stage, "command": cmd.Name, "args": args}).Debug("running tool")

	res, err := r.runner().Run(r.ctx, r.artifacts.Dir, cmd.Name, args...)
	if err != nil {
		return stageErr(stage, ErrExternalTool, cmd.Name, &ToolError{Tool: tool, Args: args, ExitCode: -1, Err: err})
	}
	r.log.WithFields(logrus.Fields{
		"stage":  stage,
		"exit":   res.ExitCode,
		"stdout": tail(res.Stdout, stderrTail),
		"stderr": tail(res.Stderr, stderrTail),
	}).Debug("tool exited")

	if res.ExitCode != 0 {
		terr := &ToolError{Tool: tool, Args: args, ExitCode: res.ExitCode, Stderr: tail(res.Stderr, stderrTail)}
		if stage == StageTypeset {
			terr.Diagnostics = r.harvester().Diagnostics(r.artifacts.Log())
		}
		return stageErr(stage, ErrExternalTool, cmd.Name, terr)
	}
	return nil
}

func (r *run) expect(stage Stage, tool string, declared []string) error {
	missing, err := r.harvester().Verify(declared)
	if err != nil {
		return stageErr(stage, ErrExternalTool, missing, &ToolError{Tool: tool, Err: err})
	}
	return nil
}

func (r *run) cleanup() error {
	if err := r.harvester().Remove(r.artifacts.Intermediates()); err != nil {
		return stageErr(StageCleanup, ErrArtifactIO, r.artifacts.Dir, err)
	}
	return nil
}

func (r *run) readSVG() ([]byte, error) {
	path := r.artifacts.SVG()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, stageErr(StageReadSVG, ErrArtifactIO, path, err)
	}
	if err := VerifySVG(raw); err != nil {
		return nil, stageErr(StageReadSVG, ErrExternalTool, path, &ToolError{Tool: "dvisvgm", Err: err})
	}
	return raw, nil
}

func (r *run) writeOutput(path string, data []byte) error {
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return stageErr(StageWriteOutput, ErrArtifactIO, path, err)
	}
	return nil
}

func (p *Pipeline) runner() ToolRunner {
	if p.Runner == nil {
		return NewExecutor()
	}
	return p.Runner
}

func (p *Pipeline) harvester() *Harvester {
	if p.Harvester == nil {
		return NewHarvester()
	}
	return p.Harvester
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return p.Logger
}
