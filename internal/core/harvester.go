package core

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Harvester checks and collects the files an external tool was expected to
// leave in the scratch directory.
//
// Only declared paths are considered. The Harvester never scans the
// directory for "whatever the tool wrote".
type Harvester struct {
	// MaxDiagnostics bounds how many log error lines are kept.
	// Zero means DefaultMaxDiagnostics.
	MaxDiagnostics int
}

// DefaultMaxDiagnostics is the number of log error lines kept when a
// Harvester does not set its own limit.
const DefaultMaxDiagnostics = 8

// NewHarvester creates a Harvester with the default limits.
func NewHarvester() *Harvester {
	return &Harvester{}
}

// Verify returns the first declared path that does not exist as a regular
// file, or an error if one cannot be inspected.
//
// A missing file yields an error wrapping ErrMissingArtifact.
func (h *Harvester) Verify(declared []string) (string, error) {
	for _, p := range declared {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return p, errors.Wrap(ErrMissingArtifact, p)
			}
			return p, errors.Wrapf(err, "stat %s", p)
		}
		if info.IsDir() {
			return p, errors.Wrapf(ErrMissingArtifact, "%s is a directory", p)
		}
	}
	return "", nil
}

// Remove deletes every given path. Every removal is attempted even when an
// earlier one fails; the result lists all paths that were not removed.
// A path that is already gone counts as not removed, since its producer
// was expected to create it.
func (h *Harvester) Remove(paths []string) error {
	var cerr CleanupError
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			cerr.Paths = append(cerr.Paths, p)
			cerr.Errs = append(cerr.Errs, err)
		}
	}
	if len(cerr.Paths) == 0 {
		return nil
	}
	return &cerr
}

// texErrorLine matches the lines TeX uses to report errors: "! message"
// and the "<*>" line echoing the offending input.
var texErrorLine = regexp.MustCompile(`^(!.*|<\*>.*)`)

// Diagnostics returns the error lines of a TeX transcript.
//
// The log is optional: a missing or unreadable file yields no lines.
func (h *Harvester) Diagnostics(logPath string) []string {
	f, err := os.Open(logPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	limit := h.MaxDiagnostics
	if limit <= 0 {
		limit = DefaultMaxDiagnostics
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < limit {
		line := scanner.Text()
		if texErrorLine.MatchString(line) {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}
