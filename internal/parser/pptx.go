package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dgallion1/coursealign/internal/document"
)

const (
	nsDrawingML   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelations   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	relNotesSlide = "/notesSlide"
	presentation  = "ppt/presentation.xml"
)

// PPTXExtractor reads PowerPoint decks, one page per slide in presentation
// order. A slide's text is its title ("Title: ..."), then every other shape's
// text, then its speaker notes ("Speaker Notes: ...").
type PPTXExtractor struct{}

func (p *PPTXExtractor) Extract(r io.Reader, filename string) ([]document.Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, extractionErr(filename, fmt.Errorf("read pptx: %w", err))
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, extractionErr(filename, fmt.Errorf("open pptx archive: %w", err))
	}
	pkg := pptxPackage{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		pkg.files[f.Name] = f
	}

	slides, err := pkg.slideParts()
	if err != nil {
		return nil, extractionErr(filename, err)
	}

	pages := make([]document.Page, 0, len(slides))
	for i, part := range slides {
		text, err := pkg.slideText(part)
		if err != nil {
			return nil, extractionErr(filename, fmt.Errorf("slide %d: %w", i+1, err))
		}
		pages = append(pages, document.Page{PageNumber: i + 1, Text: text})
	}
	return pages, nil
}

type pptxPackage struct {
	files map[string]*zip.File
}

type presentationXML struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Rels []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

func (p pptxPackage) open(name string) (io.ReadCloser, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	return f.Open()
}

func (p pptxPackage) decode(name string, v any) error {
	rc, err := p.open(name)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// rels returns the relationships of a part keyed by id. A part without a
// rels file has none.
func (p pptxPackage) rels(part string) (map[string]relationship, error) {
	name := path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	out := make(map[string]relationship)
	if _, ok := p.files[name]; !ok {
		return out, nil
	}
	var rx relationshipsXML
	if err := p.decode(name, &rx); err != nil {
		return nil, err
	}
	for _, r := range rx.Rels {
		out[r.ID] = r
	}
	return out, nil
}

// slideParts lists slide part names in presentation order.
func (p pptxPackage) slideParts() ([]string, error) {
	var pres presentationXML
	if err := p.decode(presentation, &pres); err != nil {
		return nil, err
	}
	rels, err := p.rels(presentation)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		rel, ok := rels[id.RelID]
		if !ok {
			return nil, fmt.Errorf("slide relationship %q not found", id.RelID)
		}
		parts = append(parts, resolveTarget(presentation, rel.Target))
	}
	if len(parts) == 0 {
		return nil, errors.New("presentation has no slides")
	}
	return parts, nil
}

func resolveTarget(part, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(part), target)
}

func (p pptxPackage) slideText(part string) (string, error) {
	shapes, err := p.shapes(part)
	if err != nil {
		return "", err
	}

	var title string
	var body []string
	for _, s := range shapes {
		if title == "" && (s.placeholder == "title" || s.placeholder == "ctrTitle") {
			title = s.text
			continue
		}
		body = append(body, s.text)
	}

	notes, err := p.notesText(part)
	if err != nil {
		return "", err
	}

	var lines []string
	if title != "" {
		lines = append(lines, "Title: "+title)
	}
	lines = append(lines, body...)
	if notes != "" {
		lines = append(lines, "Speaker Notes: "+notes)
	}
	return strings.Join(lines, "\n"), nil
}

// notesText returns the body text of the slide's notes page, if any.
func (p pptxPackage) notesText(slidePart string) (string, error) {
	rels, err := p.rels(slidePart)
	if err != nil {
		return "", err
	}
	for _, rel := range rels {
		if !strings.HasSuffix(rel.Type, relNotesSlide) || rel.TargetMode == "External" {
			continue
		}
		shapes, err := p.shapes(resolveTarget(slidePart, rel.Target))
		if err != nil {
			return "", err
		}
		var parts []string
		for _, s := range shapes {
			if s.placeholder == "body" {
				parts = append(parts, s.text)
			}
		}
		return strings.Join(parts, "\n"), nil
	}
	return "", nil
}

type pptxShape struct {
	placeholder string
	text        string
}

// shapes returns the non-empty text shapes of a slide-like part in document
// order, including shapes nested in groups. Paragraphs are joined by newlines.
func (p pptxPackage) shapes(part string) ([]pptxShape, error) {
	rc, err := p.open(part)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		shapes []pptxShape
		cur    *pptxShape
		paras  []string
		para   strings.Builder
		inPara bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", part, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "sp":
				cur = &pptxShape{}
				paras = paras[:0]
			case cur != nil && t.Name.Local == "ph":
				cur.placeholder = "obj"
				for _, a := range t.Attr {
					if a.Name.Local == "type" {
						cur.placeholder = a.Value
					}
				}
			case cur != nil && t.Name.Space == nsDrawingML && t.Name.Local == "p":
				inPara = true
				para.Reset()
			case inPara && t.Name.Space == nsDrawingML && t.Name.Local == "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return nil, fmt.Errorf("decode %s: %w", part, err)
				}
				para.WriteString(s)
			case inPara && t.Name.Space == nsDrawingML && t.Name.Local == "br":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch {
			case inPara && t.Name.Space == nsDrawingML && t.Name.Local == "p":
				paras = append(paras, para.String())
				inPara = false
			case cur != nil && t.Name.Local == "sp":
				cur.text = strings.TrimSpace(strings.Join(paras, "\n"))
				if cur.text != "" {
					shapes = append(shapes, *cur)
				}
				cur = nil
			}
		}
	}
	return shapes, nil
}
