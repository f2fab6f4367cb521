package core

import "fmt"

// documentTemplate is a one-page article with page numbering disabled and
// a single display math block.
const documentTemplate = `\documentclass[12pt]{article}
\thispagestyle{empty}
\begin{document}
$$ %s $$
\end{document}
`

// Wrap embeds expression verbatim into a complete LaTeX document.
//
// The expression is neither validated nor escaped. An empty expression
// produces a complete document with an empty math block.
func Wrap(expression string) string {
	return fmt.Sprintf(documentTemplate, expression)
}
