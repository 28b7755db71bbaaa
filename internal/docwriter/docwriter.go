// Package docwriter renders a Markdown study guide as a DOCX document.
package docwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fumiama/go-docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	styleHeading1 = "Heading1"
	styleHeading2 = "Heading2"
	styleTitle    = "Title"

	bullet      = "• "
	courseColor = "646464"
)

// Guide is a generated study guide ready to be written out.
type Guide struct {
	Title      string // slide deck name
	CourseCode string
	Markdown   string
}

// Write renders g as DOCX into w.
func Write(w io.Writer, g Guide) error {
	doc := docx.New().WithDefaultTheme()

	title := g.Title
	if title == "" {
		title = "Lecture Deck"
	}
	doc.AddParagraph().Style(styleTitle).Justification("center").
		AddText("Study Context Guide — " + title).Bold().Size("40")
	if g.CourseCode != "" {
		doc.AddParagraph().Justification("center").
			AddText("Course: " + g.CourseCode).Size("24").Color(courseColor)
	}
	doc.AddParagraph()

	src := []byte(g.Markdown)
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	r := &renderer{doc: doc, src: src}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		r.block(n, 0)
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

type renderer struct {
	doc *docx.Docx
	src []byte
}

func (r *renderer) block(n ast.Node, depth int) {
	switch node := n.(type) {
	case *ast.Heading:
		style := styleHeading2
		if node.Level == 1 {
			style = styleHeading1
		}
		r.heading(style, r.plain(node))

	case *ast.Paragraph, *ast.TextBlock:
		r.paragraph(node)

	case *ast.List:
		r.list(node, depth)

	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.block(c, depth)
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line := strings.TrimRight(string(seg.Value(r.src)), "\r\n")
			r.doc.AddParagraph().AddText(line).Font("Courier New", "Courier New", "Courier New", "")
		}

	case *ast.ThematicBreak:
		r.doc.AddParagraph()
	}
}

// paragraph writes a body paragraph. A paragraph that is entirely bold
// becomes a Heading2, and a short all-caps line becomes a Heading1.
func (r *renderer) paragraph(n ast.Node) {
	plain := strings.TrimSpace(r.plain(n))
	if plain == "" {
		return
	}
	if isCapsHeading(plain) {
		r.heading(styleHeading1, plain)
		return
	}
	if onlyStrong(n) {
		r.heading(styleHeading2, plain)
		return
	}
	p := r.doc.AddParagraph()
	r.inline(p, n, false)
}

func (r *renderer) list(l *ast.List, depth int) {
	num := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if _, nested := c.(*ast.List); nested || !first {
				r.block(c, depth+1)
				continue
			}
			first = false

			plain := strings.TrimSpace(r.plain(c))
			if l.IsOrdered() && isAllCaps(plain) {
				r.heading(styleHeading1, strconv.Itoa(num)+". "+plain)
				continue
			}
			p := r.doc.AddParagraph()
			marker := bullet
			if l.IsOrdered() {
				marker = strconv.Itoa(num) + ". "
			}
			addText(p, strings.Repeat("    ", depth)+marker)
			r.inline(p, c, false)
		}
		num++
	}
}

func (r *renderer) heading(style, s string) {
	size := "28"
	if style == styleHeading1 {
		size = "32"
	}
	r.doc.AddParagraph().Style(style).AddText(s).Bold().Size(size)
}

// inline appends n's inline children to p as runs.
func (r *renderer) inline(p *docx.Paragraph, n ast.Node, bold bool) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			s := string(t.Value(r.src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				s += " "
			}
			addRun(p, s, bold)
		case *ast.String:
			addRun(p, string(t.Value), bold)
		case *ast.CodeSpan:
			addRun(p, r.plain(t), bold)
		case *ast.Emphasis:
			r.inline(p, t, bold || t.Level >= 2)
		case *ast.AutoLink:
			addRun(p, string(t.URL(r.src)), bold)
		default:
			r.inline(p, c, bold)
		}
	}
}

func addRun(p *docx.Paragraph, s string, bold bool) {
	if s == "" {
		return
	}
	run := addText(p, s)
	if bold {
		run.Bold()
	}
}

// addText adds a run whose leading and trailing spaces survive rendering.
func addText(p *docx.Paragraph, s string) *docx.Run {
	run := p.AddText(s)
	for _, c := range run.Children {
		if t, ok := c.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
	return run
}

// plain flattens n's inline content to text.
func (r *renderer) plain(n ast.Node) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				sb.Write(t.Value(r.src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteByte(' ')
				}
			case *ast.String:
				sb.Write(t.Value)
			case *ast.AutoLink:
				sb.Write(t.URL(r.src))
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}

// onlyStrong reports whether every inline child of n is strong emphasis.
func onlyStrong(n ast.Node) bool {
	if n.FirstChild() == nil {
		return false
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		em, ok := c.(*ast.Emphasis)
		if !ok || em.Level < 2 {
			return false
		}
	}
	return true
}

// isAllCaps reports whether s has letters and none of them are lowercase.
func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func isCapsHeading(s string) bool {
	return isAllCaps(s) && len(strings.Fields(s)) >= 2 && utf8.RuneCountInString(s) < 60
}
