// Package export renders finished chapters as Markdown or HTML files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"strings"

	"github.com/azyu/chapterstudio/internal/storage"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

var (
	// ErrNothingToExport is returned for a chapter with no selected or edited text.
	ErrNothingToExport = errors.New("chapter has no selected or edited text")

	// ErrUnknownFormat is returned for a format other than md or html.
	ErrUnknownFormat = errors.New("unknown export format")
)

// ParseFormat accepts "md", "markdown" and "html", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatForPath infers the format from a file extension, defaulting to Markdown.
func FormatForPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatMarkdown
}

// Document is a chapter ready to render.
type Document struct {
	ID    string
	Title string
	Body  string
}

// NewDocument builds the document for a chapter. The title is the body's
// first level-one heading, else the catalog summary, else the chapter id.
func NewDocument(ch types.ChapterResponse, meta *types.ChapterMeta) (Document, error) {
	body := strings.TrimSpace(ch.FinalText())
	if body == "" {
		return Document{}, ErrNothingToExport
	}

	title := headingTitle(body)
	if title == "" && meta != nil {
		title = strings.TrimSpace(meta.Summary)
	}
	if title == "" {
		title = "Chapter " + ch.ID
	}
	return Document{ID: ch.ID, Title: title, Body: body}, nil
}

var md = goldmark.New()

func headingTitle(body string) string {
	source := []byte(body)
	doc := md.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering && h.Level == 1 {
			title = nodeText(h, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			continue
		}
		b.WriteString(nodeText(c, source))
	}
	return b.String()
}

// Render writes doc to w in format f.
func Render(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatMarkdown:
		return renderMarkdown(w, doc)
	case FormatHTML:
		return renderHTML(w, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func renderMarkdown(w io.Writer, doc Document) error {
	var err error
	if headingTitle(doc.Body) == "" {
		_, err = fmt.Fprintf(w, "# %s\n\n", doc.Title)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%s\n", doc.Body)
	return err
}

func renderHTML(w io.Writer, doc Document) error {
	var src bytes.Buffer
	if err := renderMarkdown(&src, doc); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := md.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("failed to convert markdown: %w", err)
	}

	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(doc.Title), body.String())
	return err
}

// WriteFile renders doc atomically to path.
func WriteFile(path string, doc Document, f Format) error {
	return storage.AtomicWrite(path, 0o644, func(w io.Writer) error {
		return Render(w, doc, f)
	})
}
