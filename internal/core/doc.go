// Package core implements the LaTeX-to-SVG conversion pipeline.
//
// A run moves strictly forward through a fixed sequence of stages:
//
//  1. The expression is wrapped into a minimal LaTeX document (Wrap).
//  2. latex typesets the document into DVI.
//  3. dvisvgm converts the DVI into SVG.
//  4. The intermediate artifacts are deleted.
//  5. The converter output is read back and checked to be SVG text.
//  6. Every path and rect opener is recolored (Colorize).
//  7. The result is atomically written to the output path.
//
// # Core Types
//
// Command: an external program and its leading arguments.
// ArtifactSet: the files one run creates inside its scratch directory.
// Pipeline: the orchestrator that drives the stages above.
// StageError: the typed failure every stage returns.
//
// Intermediate artifacts never touch the caller's working directory; they
// live in a scratch directory owned by a single run.
package core
