package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"vectex/internal/config"
	"vectex/internal/core"
	"vectex/internal/trace"
)

// Env is everything a run takes from its surroundings.
type Env struct {
	// WorkDir resolves the output name and the trace path. Empty means the
	// process working directory.
	WorkDir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Runner executes the external tools. Nil means a core.Executor.
	Runner core.ToolRunner
}

type CLIResult struct {
	ExitCode int
	Output   *core.Result
}

// Execute runs one conversion for a parsed invocation.
//
// Responsibilities:
//   - Load configuration and apply invocation overrides.
//   - Read the expression from standard input.
//   - Drive the pipeline and write the stage trace when configured, even
//     when the pipeline fails.
//   - Translate outcomes to semantic exit codes.
func Execute(ctx context.Context, inv CLIInvocation, env Env) (CLIResult, error) {
	res := CLIResult{ExitCode: ExitInternalError}

	cfg, err := config.Load(inv.ConfigPath)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, configErrorf("config %s: %v", inv.ConfigPath, err)
	}
	if inv.LogLevel != "" {
		cfg.LogLevel = inv.LogLevel
		if err := cfg.Validate(); err != nil {
			res.ExitCode = ExitConfigError
			return res, configErrorf("--log-level: %v", err)
		}
	}
	logger := newLogger(env.Stderr, cfg.Level())

	latex, err := cfg.LatexCommand()
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, configErrorf("%v", err)
	}
	dvisvgm, err := cfg.DvisvgmCommand()
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, configErrorf("%v", err)
	}

	expression, err := ReadExpression(env.Stdin)
	if err != nil {
		res.ExitCode = ExitCode(err)
		return res, err
	}

	color := inv.Color
	if color == "" {
		color = cfg.Color
	}

	rec := trace.NewRecorder()
	p := &core.Pipeline{
		Runner:      env.Runner,
		Latex:       latex,
		Dvisvgm:     dvisvgm,
		Scale:       cfg.Scale,
		WorkDir:     env.WorkDir,
		ScratchRoot: cfg.ScratchDir,
		KeepScratch: cfg.KeepScratch,
		Harvester:   core.NewHarvester(),
		Logger:      logger,
		Trace:       rec,
	}
	if p.Runner == nil {
		p.Runner = core.NewExecutor()
	}

	out, runErr := p.Run(ctx, inv.BaseName, color, expression)

	if cfg.TracePath != "" {
		tracePath := cfg.TracePath
		if !filepath.IsAbs(tracePath) && env.WorkDir != "" {
			tracePath = filepath.Join(env.WorkDir, tracePath)
		}
		if err := rec.Trace(inv.BaseName).WriteFile(tracePath); err != nil {
			logger.WithError(err).Warn("could not write trace")
		}
	}

	if runErr != nil {
		res.ExitCode = ExitCode(runErr)
		return res, runErr
	}
	res.ExitCode = ExitSuccess
	res.Output = out
	return res, nil
}

func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	if w == nil {
		w = io.Discard
	}
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger
}
