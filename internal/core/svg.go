package core

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// VerifySVG reports whether content is SVG text: well-formed enough for an
// XML lexer to reach the document element, and that element is svg.
//
// Comments, processing instructions and a DOCTYPE may precede the root, as
// dvisvgm writes an XML declaration and a generator comment first.
func VerifySVG(content []byte) error {
	l := xml.NewLexer(parse.NewInputBytes(content))
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				return errors.Wrap(ErrNotSVG, err.Error())
			}
			return errors.Wrap(ErrNotSVG, "no root element")
		case xml.StartTagToken:
			if name := string(l.Text()); name != "svg" {
				return errors.Wrapf(ErrNotSVG, "root element is <%s>", name)
			}
			return nil
		case xml.TextToken:
			// whitespace between prolog items
		}
	}
}
