package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/coursealign/internal/document"
	"github.com/fumiama/go-docx"
)

// DOCXExtractor handles .docx files. Explicit page breaks start new pages;
// a document without them is a single page.
type DOCXExtractor struct{}

func (p *DOCXExtractor) Extract(r io.Reader, filename string) ([]document.Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, extractionErr(filename, fmt.Errorf("read docx: %w", err))
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, extractionErr(filename, fmt.Errorf("parse docx: %w", err))
	}

	var b pageBuilder
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			docxParagraph(&b, it)
		case *docx.Table:
			b.addBlock(docxTableText(it))
		}
	}
	return b.finish(), nil
}

// docxParagraph adds a paragraph's text, cutting a page wherever a run holds
// a page break.
func docxParagraph(b *pageBuilder, para *docx.Paragraph) {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch c := rc.(type) {
			case *docx.Text:
				buf.WriteString(c.Text)
			case *docx.Tab:
				buf.WriteByte(' ')
			case *docx.BarterRabbet:
				if c.Type == "page" {
					b.addBlock(buf.String())
					buf.Reset()
					b.breakPage()
					continue
				}
				buf.WriteByte('\n')
			}
		}
	}
	b.addBlock(buf.String())
}

func docxTableText(tbl *docx.Table) string {
	var rows []string
	for _, row := range tbl.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				var cb pageBuilder
				docxParagraph(&cb, para)
				for _, pg := range cb.finish() {
					if pg.Text != "" {
						parts = append(parts, pg.Text)
					}
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		rows = append(rows, strings.Join(cells, "\t"))
	}
	return strings.Join(rows, "\n")
}
