// Package config loads the optional TOML configuration of vectex.
//
// Every key is optional; a missing file path means Default. Example:
//
//	latex = "latex -interaction=nonstopmode"
//	dvisvgm = "/opt/texlive/bin/dvisvgm"
//	scale = 20
//	color = "#000000"
//	log_level = "debug"
package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"vectex/internal/core"
)

// Config holds the knobs of one invocation.
type Config struct {
	// Latex is the typesetting command line. The .tex file is appended.
	Latex string `toml:"latex"`

	// Dvisvgm is the converter command line. The conversion flags are
	// appended.
	Dvisvgm string `toml:"dvisvgm"`

	// Scale is passed to dvisvgm as --scale.
	Scale float64 `toml:"scale"`

	// Color is used when no color argument is given.
	Color string `toml:"color"`

	// ScratchDir is where per-run scratch directories are created.
	// Empty means the system temporary directory.
	ScratchDir string `toml:"scratch_dir"`

	// KeepScratch leaves the scratch directory behind for inspection.
	KeepScratch bool `toml:"keep_scratch"`

	// LogLevel is a logrus level name.
	LogLevel string `toml:"log_level"`

	// TracePath, when set, receives a JSON record of the stage transitions.
	TracePath string `toml:"trace_path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Latex:    "latex",
		Dvisvgm:  "dvisvgm",
		Scale:    core.DefaultScale,
		Color:    core.DefaultColor,
		LogLevel: logrus.WarnLevel.String(),
	}
}

// Load reads the TOML file at path over Default. An empty path returns
// Default unchanged. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return Parse(b, cfg)
}

// Parse decodes TOML data over base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	if _, err := ParseCommand(c.Latex); err != nil {
		return errors.Wrap(err, "latex")
	}
	if _, err := ParseCommand(c.Dvisvgm); err != nil {
		return errors.Wrap(err, "dvisvgm")
	}
	if c.Scale <= 0 {
		return errors.Errorf("scale must be positive (got %v)", c.Scale)
	}
	if strings.TrimSpace(c.Color) == "" {
		return errors.New("color must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	return nil
}

// LatexCommand returns the parsed typesetting command.
func (c Config) LatexCommand() (core.Command, error) { return ParseCommand(c.Latex) }

// DvisvgmCommand returns the parsed converter command.
func (c Config) DvisvgmCommand() (core.Command, error) { return ParseCommand(c.Dvisvgm) }

// Level returns the parsed log level, or warning if it is invalid.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return lvl
}

// ParseCommand splits a shell-like command line into a Command. Quotes and
// backslash escapes are honored; variables and globs are not expanded.
func ParseCommand(line string) (core.Command, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return core.Command{}, errors.Wrapf(err, "parse command %q", line)
	}
	if len(args) == 0 {
		return core.Command{}, errors.Errorf("command %q is empty", line)
	}
	return core.Command{Name: args[0], Args: args[1:]}, nil
}
