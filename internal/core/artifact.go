package core

import "path/filepath"

// ArtifactSet names every file a single run creates in its scratch
// directory.
//
// All names derive from Stem, the final element of the caller's base name.
// The converter output carries no extension: dvisvgm is told to write to
// Stem itself.
type ArtifactSet struct {
	// Dir is the scratch directory that holds every artifact.
	Dir string

	// Stem is the shared base filename, without extension.
	Stem string
}

// NewArtifactSet returns the artifact names for stem inside dir.
func NewArtifactSet(dir, stem string) ArtifactSet {
	return ArtifactSet{Dir: dir, Stem: stem}
}

// Tex is the wrapped document handed to latex.
func (a ArtifactSet) Tex() string { return a.path(".tex") }

// Aux is the latex auxiliary file.
func (a ArtifactSet) Aux() string { return a.path(".aux") }

// DVI is the typeset output handed to dvisvgm.
func (a ArtifactSet) DVI() string { return a.path(".dvi") }

// Log is the latex transcript.
func (a ArtifactSet) Log() string { return a.path(".log") }

// SVG is the converter output.
func (a ArtifactSet) SVG() string { return a.path("") }

// Intermediates returns the files deleted after conversion, in deletion
// order.
func (a ArtifactSet) Intermediates() []string {
	return []string{a.Tex(), a.Aux(), a.DVI(), a.Log()}
}

// TypesetOutputs returns the files latex must leave behind.
func (a ArtifactSet) TypesetOutputs() []string {
	return []string{a.DVI(), a.Aux(), a.Log()}
}

func (a ArtifactSet) path(ext string) string {
	return filepath.Join(a.Dir, a.Stem+ext)
}
