// Package markdown converts Markdown pages into reStructuredText so files
// like a repository README can live inside a Sphinx source tree. The
// conversion goes through Goldmark's AST; unsupported constructs degrade to
// raw blocks rather than disappearing.
package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section underline characters by heading level, the docutils convention.
var headingChars = []byte{'=', '-', '~', '^', '"', '\''}

// ToRST converts a Markdown document to reStructuredText.
func ToRST(src []byte) ([]byte, error) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	r := &renderer{src: src}
	body := r.renderBlocks(root)
	body = strings.TrimRight(body, "\n") + "\n"
	return []byte(body), nil
}

type renderer struct {
	src []byte
}

func (r *renderer) renderBlocks(parent gmast.Node) string {
	var b strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		b.WriteString(r.renderBlock(n))
	}
	return b.String()
}

func (r *renderer) renderBlock(n gmast.Node) string {
	switch node := n.(type) {
	case *gmast.Heading:
		title := r.renderInlines(node)
		level := node.Level
		if level > len(headingChars) {
			level = len(headingChars)
		}
		underline := strings.Repeat(string(headingChars[level-1]), len(title))
		return title + "\n" + underline + "\n\n"
	case *gmast.Paragraph:
		// A paragraph holding a single image becomes an image directive.
		if img, ok := soleImage(node); ok {
			return r.renderImage(img)
		}
		return r.renderInlines(node) + "\n\n"
	case *gmast.TextBlock:
		return r.renderInlines(node) + "\n"
	case *gmast.FencedCodeBlock:
		lang := string(node.Language(r.src))
		return r.renderCodeBlock(node, lang)
	case *gmast.CodeBlock:
		return r.renderCodeBlock(node, "")
	case *gmast.List:
		return r.renderList(node)
	case *gmast.Blockquote:
		// reST block quotes are plain indented blocks.
		return indent(r.renderBlocks(node), "   ") + "\n"
	case *gmast.ThematicBreak:
		return "----\n\n"
	case *gmast.HTMLBlock:
		return r.renderRawHTML(node)
	default:
		// Unknown block kinds render their children rather than vanishing.
		return r.renderBlocks(n)
	}
}

func (r *renderer) renderCodeBlock(n interface {
	gmast.Node
	Lines() *text.Segments
}, lang string) string {
	var b strings.Builder
	if lang != "" {
		fmt.Fprintf(&b, ".. code-block:: %s\n\n", lang)
	} else {
		b.WriteString("::\n\n")
	}
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.WriteString("   " + strings.TrimRight(string(seg.Value(r.src)), "\n") + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (r *renderer) renderList(list *gmast.List) string {
	var b strings.Builder
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if list.IsOrdered() {
			marker = "#. "
		}
		content := strings.TrimRight(r.renderBlocks(item), "\n")
		lines := strings.Split(content, "\n")
		pad := strings.Repeat(" ", len(marker))
		for i, line := range lines {
			switch {
			case i == 0:
				b.WriteString(marker + line + "\n")
			case line == "":
				b.WriteString("\n")
			default:
				b.WriteString(pad + line + "\n")
			}
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (r *renderer) renderRawHTML(n *gmast.HTMLBlock) string {
	var b strings.Builder
	b.WriteString(".. raw:: html\n\n")
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.WriteString("   " + strings.TrimRight(string(seg.Value(r.src)), "\n") + "\n")
	}
	if n.HasClosure() {
		b.WriteString("   " + strings.TrimRight(string(n.ClosureLine.Value(r.src)), "\n") + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (r *renderer) renderImage(img *gmast.Image) string {
	alt := r.renderInlines(img)
	var b strings.Builder
	fmt.Fprintf(&b, ".. image:: %s\n", string(img.Destination))
	if alt != "" {
		fmt.Fprintf(&b, "   :alt: %s\n", alt)
	}
	b.WriteString("\n")
	return b.String()
}

func (r *renderer) renderInlines(parent gmast.Node) string {
	var b strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		b.WriteString(r.renderInline(n))
	}
	return b.String()
}

func (r *renderer) renderInline(n gmast.Node) string {
	switch node := n.(type) {
	case *gmast.Text:
		out := string(node.Segment.Value(r.src))
		if node.SoftLineBreak() || node.HardLineBreak() {
			out += " "
		}
		return out
	case *gmast.String:
		return string(node.Value)
	case *gmast.CodeSpan:
		return "``" + r.renderInlines(node) + "``"
	case *gmast.Emphasis:
		mark := "*"
		if node.Level >= 2 {
			mark = "**"
		}
		return mark + r.renderInlines(node) + mark
	case *gmast.Link:
		label := r.renderInlines(node)
		dest := string(node.Destination)
		if label == "" || label == dest {
			return dest
		}
		return fmt.Sprintf("`%s <%s>`_", label, dest)
	case *gmast.AutoLink:
		return string(node.URL(r.src))
	case *gmast.Image:
		// Inline images have no reST equivalent; keep the alt text.
		return r.renderInlines(node)
	case *gmast.RawHTML:
		return "" // inline HTML has no place in a reST page
	default:
		return r.renderInlines(n)
	}
}

func soleImage(p *gmast.Paragraph) (*gmast.Image, bool) {
	if p.ChildCount() != 1 {
		return nil, false
	}
	img, ok := p.FirstChild().(*gmast.Image)
	return img, ok
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
