// Package render turns note content into preview HTML.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/aretw0/draft/pkg/core"
)

type options struct {
	unsafe     bool
	hardWraps  bool
	extensions []goldmark.Extender
}

// Option configures the Markdown renderer.
type Option func(*options)

// WithUnsafe keeps raw HTML found in notes. By default it is dropped.
func WithUnsafe() Option {
	return func(o *options) { o.unsafe = true }
}

// WithHardWraps renders single newlines as line breaks.
func WithHardWraps() Option {
	return func(o *options) { o.hardWraps = true }
}

// WithExtensions adds goldmark extensions after the built-in ones.
func WithExtensions(exts ...goldmark.Extender) Option {
	return func(o *options) { o.extensions = append(o.extensions, exts...) }
}

// Markdown renders GitHub flavored Markdown with TeX math spans.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a renderer.
func NewMarkdown(opts ...Option) *Markdown {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var htmlOpts []renderer.Option
	if o.unsafe {
		htmlOpts = append(htmlOpts, html.WithUnsafe())
	}
	if o.hardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}

	exts := append([]goldmark.Extender{extension.GFM, Math}, o.extensions...)
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithRendererOptions(htmlOpts...),
		),
	}
}

// Render converts Markdown content to HTML.
func (m *Markdown) Render(content string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

var _ core.Renderer = (*Markdown)(nil)
