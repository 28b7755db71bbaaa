package docwriter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
)

type para struct {
	style string
	text  string
	bold  bool
}

// readBack parses DOCX bytes into paragraph text, style and whether any run is bold.
func readBack(t *testing.T, data []byte) []para {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parse docx: %v", err)
	}
	var out []para
	for _, item := range doc.Document.Body.Items {
		p, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var pr para
		if p.Properties != nil && p.Properties.Style != nil {
			pr.style = p.Properties.Style.Val
		}
		var sb strings.Builder
		for _, child := range p.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			if run.RunProperties != nil && run.RunProperties.Bold != nil {
				pr.bold = true
			}
			for _, rc := range run.Children {
				if txt, ok := rc.(*docx.Text); ok {
					sb.WriteString(txt.Text)
				}
			}
		}
		pr.text = sb.String()
		out = append(out, pr)
	}
	return out
}

func find(paras []para, text string) (para, bool) {
	for _, p := range paras {
		if p.text == text {
			return p, true
		}
	}
	return para{}, false
}

func TestWriteStudyGuide(t *testing.T) {
	md := `1. CONCEPT MAP

- **Glycolysis**: splits glucose (pp. 45-47)
- ATP yield

## Mapped Deep Dives

Regular text with **bold** inside.

OPEN QUESTIONS AND GAPS

**Confidence Level**
`
	var buf bytes.Buffer
	if err := Write(&buf, Guide{Title: "Lecture 3.pptx", CourseCode: "BIO101", Markdown: md}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	paras := readBack(t, buf.Bytes())
	if len(paras) < 2 {
		t.Fatalf("expected title paragraphs, got %d", len(paras))
	}
	if paras[0].text != "Study Context Guide — Lecture 3.pptx" {
		t.Errorf("unexpected title %q", paras[0].text)
	}
	if paras[1].text != "Course: BIO101" {
		t.Errorf("unexpected course line %q", paras[1].text)
	}

	tests := []struct {
		text  string
		style string
		bold  bool
	}{
		{"1. CONCEPT MAP", styleHeading1, true},
		{"• Glycolysis: splits glucose (pp. 45-47)", "", true},
		{"• ATP yield", "", false},
		{"Mapped Deep Dives", styleHeading2, true},
		{"Regular text with bold inside.", "", true},
		{"OPEN QUESTIONS AND GAPS", styleHeading1, true},
		{"Confidence Level", styleHeading2, true},
	}
	for _, tt := range tests {
		p, ok := find(paras, tt.text)
		if !ok {
			t.Errorf("paragraph %q not found", tt.text)
			continue
		}
		if p.style != tt.style {
			t.Errorf("%q: expected style %q, got %q", tt.text, tt.style, p.style)
		}
		if p.bold != tt.bold {
			t.Errorf("%q: expected bold=%v, got %v", tt.text, tt.bold, p.bold)
		}
	}
}

func TestWriteWithoutCourseCode(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Guide{Markdown: "Just one line."}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	paras := readBack(t, buf.Bytes())
	if paras[0].text != "Study Context Guide — Lecture Deck" {
		t.Errorf("unexpected default title %q", paras[0].text)
	}
	if _, ok := find(paras, "Just one line."); !ok {
		t.Error("body paragraph missing")
	}
	for _, p := range paras {
		if strings.HasPrefix(p.text, "Course:") {
			t.Errorf("unexpected course line %q", p.text)
		}
	}
}

func TestIsCapsHeading(t *testing.T) {
	tests := map[string]bool{
		"CONCEPT MAP":      true,
		"SOURCES USED":     true,
		"ATP":              false, // single word
		"Concept Map":      false,
		"1. 2. 3.":         false,
		strings.Repeat("WORD ", 15): false,
	}
	for in, want := range tests {
		if got := isCapsHeading(in); got != want {
			t.Errorf("isCapsHeading(%q) = %v, want %v", in, got, want)
		}
	}
}
