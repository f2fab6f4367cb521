package core

import "strings"

const (
	pathOpener = "<path"
	rectOpener = "<rect"
)

// Colorize injects a flat color into every path and rect element of svg.
//
// Each "<path" becomes `<path stroke="C" fill="C" stroke-width="0"` and each
// "<rect" becomes `<rect fill="C"`. The substitution is literal: a "<path" or
// "<rect" inside an attribute value or comment is rewritten too. dvisvgm
// only emits those two primitives for glyphs and rules, so nothing else
// needs styling.
//
// The color is used as given. Colorize never fails.
func Colorize(svg, color string) string {
	out := strings.ReplaceAll(svg, pathOpener, PathAttrs(color))
	return strings.ReplaceAll(out, rectOpener, RectAttrs(color))
}

// PathAttrs returns the opening token Colorize substitutes for "<path".
func PathAttrs(color string) string {
	return pathOpener + ` stroke="` + color + `" fill="` + color + `" stroke-width="0"`
}

// RectAttrs returns the opening token Colorize substitutes for "<rect".
func RectAttrs(color string) string {
	return rectOpener + ` fill="` + color + `"`
}
