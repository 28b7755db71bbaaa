package generate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/coursealign/internal/document"
)

func TestBuildUserPromptIncludesChunksWithPages(t *testing.T) {
	chunks := []document.RetrievedChunk{
		{Chunk: document.Chunk{Text: "Glycolysis splits glucose.", PageStart: 45, PageEnd: 47}, Rank: 1},
		{Chunk: document.Chunk{Text: "ATP is the energy currency.", PageStart: 12, PageEnd: 12}, Rank: 2},
	}
	p := BuildUserPrompt("BIO101", "Slide 1:\nTitle: Energy", []string{"Energy"}, chunks)

	for _, want := range []string{
		"COURSE: BIO101",
		"Slide 1:\nTitle: Energy",
		"- Energy\n",
		"[CHUNK 1] - Pages 45-47\nGlycolysis splits glucose.\n",
		"[CHUNK 2] - Pages 12\nATP is the energy currency.\n",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, "truncated") {
		t.Error("short slide text should not be truncated")
	}
}

func TestBuildUserPromptTruncatesSlides(t *testing.T) {
	slides := strings.Repeat("é", MaxSlideChars+250)
	p := BuildUserPrompt("X", slides, nil, nil)

	if strings.Contains(p, strings.Repeat("é", MaxSlideChars+1)) {
		t.Error("slide text was not truncated")
	}
	if !strings.Contains(p, fmt.Sprintf("[truncated, total length: %d chars]", MaxSlideChars+250)) {
		t.Error("missing truncation note")
	}
}

func TestBuildUserPromptCapsConcepts(t *testing.T) {
	var concepts []string
	for i := 0; i < 20; i++ {
		concepts = append(concepts, fmt.Sprintf("concept-%02d", i))
	}
	p := BuildUserPrompt("X", "", concepts, nil)
	if !strings.Contains(p, "- concept-14\n") {
		t.Error("expected the 15th concept to be listed")
	}
	if strings.Contains(p, "concept-15") {
		t.Error("expected concepts past the cap to be dropped")
	}
}
