// Package render turns content bodies into HTML.
package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/keithlinneman/folio/internal/xerrors"
)

// md is safe for concurrent use once built.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Markdown renders body as GitHub-flavoured Markdown. Raw HTML and
// MDX/JSX blocks are omitted from the output.
func Markdown(body string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return "", xerrors.Wrap(err, "render markdown")
	}
	return buf.String(), nil
}
