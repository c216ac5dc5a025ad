package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindMath is the node kind of a math span.
var KindMath = ast.NewNodeKind("Math")

// MathNode is a TeX span: $...$ inline or $$...$$ display. The TeX source is
// kept verbatim for a client-side typesetter.
type MathNode struct {
	ast.BaseInline
	Display bool
	TeX     []byte
}

// Kind implements ast.Node.
func (n *MathNode) Kind() ast.NodeKind {
	return KindMath
}

// Dump implements ast.Node.
func (n *MathNode) Dump(source []byte, level int) {
	mode := "inline"
	if n.Display {
		mode = "display"
	}
	ast.DumpHelper(n, source, level, map[string]string{
		"Mode": mode,
		"TeX":  string(n.TeX),
	}, nil)
}

type mathExtension struct{}

// Math is a goldmark extension for TeX math spans.
var Math goldmark.Extender = &mathExtension{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&mathParser{}, 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&mathHTMLRenderer{}, 500),
	))
}

type mathParser struct{}

func (p *mathParser) Trigger() []byte {
	return []byte{'$'}
}

func (p *mathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) > 1 && line[1] == '$' {
		return p.parseDisplay(block)
	}
	return p.parseInline(block, line)
}

// parseInline reads $tex$ on the current line. Like pandoc, the TeX may not
// start or end with a space and the closing $ may not precede a digit, so
// prices such as "$5 and $6" stay text.
func (p *mathParser) parseInline(block text.Reader, line []byte) ast.Node {
	if len(line) < 3 || isBlank(line[1]) {
		return nil
	}
	for i := 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '$':
			if isBlank(line[i-1]) || (i+1 < len(line) && isDigit(line[i+1])) {
				continue
			}
			node := &MathNode{TeX: append([]byte(nil), line[1:i]...)}
			block.Advance(i + 1)
			return node
		}
	}
	return nil
}

// parseDisplay reads $$tex$$, which may span lines of the same paragraph.
func (p *mathParser) parseDisplay(block text.Reader) ast.Node {
	l, pos := block.Position()
	block.Advance(2)

	var tex []byte
	for {
		line, _ := block.PeekLine()
		if line == nil {
			block.SetPosition(l, pos)
			return nil
		}
		if end := bytes.Index(line, []byte("$$")); end >= 0 {
			tex = bytes.TrimSpace(append(tex, line[:end]...))
			if len(tex) == 0 {
				block.SetPosition(l, pos)
				return nil
			}
			block.Advance(end + 2)
			return &MathNode{Display: true, TeX: tex}
		}
		tex = append(tex, line...)
		block.AdvanceLine()
	}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

type mathHTMLRenderer struct{}

func (r *mathHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMath, r.renderMath)
}

func (r *mathHTMLRenderer) renderMath(
	w util.BufWriter, source []byte, node ast.Node, entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MathNode)
	if n.Display {
		_, _ = w.WriteString(`<span class="math display">\[`)
		_, _ = w.Write(util.EscapeHTML(n.TeX))
		_, _ = w.WriteString(`\]</span>`)
	} else {
		_, _ = w.WriteString(`<span class="math inline">\(`)
		_, _ = w.Write(util.EscapeHTML(n.TeX))
		_, _ = w.WriteString(`\)</span>`)
	}
	return ast.WalkSkipChildren, nil
}
