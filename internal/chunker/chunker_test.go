package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/coursealign/internal/document"
)

// numberedWords returns "w0 w1 ... w(n-1)" starting at offset.
func numberedWords(offset, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", offset+i)
	}
	return strings.Join(words, " ")
}

func TestChunk_TwoPageExample(t *testing.T) {
	pages := []document.Page{
		{PageNumber: 1, Text: "A B C D E"},
		{PageNumber: 2, Text: "F G H"},
	}
	chunks, err := Chunk(pages, Config{TargetWords: 4, OverlapWords: 1}, "BIO101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		text       string
		start, end int
	}{
		{"A B C D", 1, 1},
		{"D E F G", 1, 2},
		{"G H", 2, 2},
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		c := chunks[i]
		if c.ChunkID != i {
			t.Errorf("chunk %d: expected id %d, got %d", i, i, c.ChunkID)
		}
		if c.Text != w.text {
			t.Errorf("chunk %d: expected text %q, got %q", i, w.text, c.Text)
		}
		if c.PageStart != w.start || c.PageEnd != w.end {
			t.Errorf("chunk %d: expected pages %d-%d, got %d-%d", i, w.start, w.end, c.PageStart, c.PageEnd)
		}
		if c.CourseCode != "BIO101" {
			t.Errorf("chunk %d: expected course code BIO101, got %q", i, c.CourseCode)
		}
		if c.WordCount != len(strings.Fields(w.text)) {
			t.Errorf("chunk %d: expected word count %d, got %d", i, len(strings.Fields(w.text)), c.WordCount)
		}
	}
}

func TestChunk_EmptyPages(t *testing.T) {
	chunks, err := Chunk(nil, DefaultConfig(), "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestChunk_PagesWithoutWords(t *testing.T) {
	pages := []document.Page{{PageNumber: 1, Text: ""}, {PageNumber: 2, Text: "  \n\t "}}
	chunks, err := Chunk(pages, DefaultConfig(), "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for whitespace-only pages, got %d", len(chunks))
	}
}

func TestChunk_SingleWord(t *testing.T) {
	chunks, err := Chunk([]document.Page{{PageNumber: 1, Text: "Mitochondria"}}, DefaultConfig(), "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "Mitochondria" || chunks[0].WordCount != 1 {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}
	if chunks[0].PageStart != 1 || chunks[0].PageEnd != 1 {
		t.Errorf("expected pages 1-1, got %d-%d", chunks[0].PageStart, chunks[0].PageEnd)
	}
}

func TestChunk_InvalidConfigFailsFast(t *testing.T) {
	bad := []Config{
		{TargetWords: 4, OverlapWords: 4},
		{TargetWords: 4, OverlapWords: 5},
		{TargetWords: 0, OverlapWords: 0},
		{TargetWords: 4, OverlapWords: -1},
	}
	for _, cfg := range bad {
		// Even with no input the config must be rejected.
		_, err := Chunk(nil, cfg, "X")
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("config %+v: expected *ConfigError, got %v", cfg, err)
			continue
		}
		if cfgErr.TargetWords != cfg.TargetWords || cfgErr.OverlapWords != cfg.OverlapWords {
			t.Errorf("config %+v: error carries %+v", cfg, cfgErr)
		}
	}
}

func TestChunk_ZeroOverlapIsValid(t *testing.T) {
	pages := []document.Page{{PageNumber: 1, Text: numberedWords(0, 10)}}
	chunks, err := Chunk(pages, Config{TargetWords: 5, OverlapWords: 0}, "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Text != numberedWords(5, 5) {
		t.Errorf("expected second chunk %q, got %q", numberedWords(5, 5), chunks[1].Text)
	}
}

func TestChunk_CountFormula(t *testing.T) {
	cfg := Config{TargetWords: 5, OverlapWords: 2}
	step := cfg.TargetWords - cfg.OverlapWords
	for n := 1; n <= 40; n++ {
		pages := []document.Page{{PageNumber: 1, Text: numberedWords(0, n)}}
		chunks, err := Chunk(pages, cfg, "X")
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		want := 1
		if n > cfg.OverlapWords {
			want = (n - cfg.OverlapWords + step - 1) / step
		}
		if len(chunks) != want {
			t.Errorf("n=%d: expected %d chunks, got %d", n, want, len(chunks))
		}
		last := chunks[len(chunks)-1]
		lastWords := strings.Fields(last.Text)
		if lastWords[len(lastWords)-1] != fmt.Sprintf("w%d", n-1) {
			t.Errorf("n=%d: last chunk does not end with the last word: %q", n, last.Text)
		}
	}
}

func TestChunk_DefaultConfigLargeText(t *testing.T) {
	pages := []document.Page{{PageNumber: 1, Text: numberedWords(0, 2000)}}
	chunks, err := Chunk(pages, DefaultConfig(), "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Windows start at 0, 600, 1200, 1800.
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:3] {
		if c.WordCount != 750 {
			t.Errorf("chunk %d: expected 750 words, got %d", i, c.WordCount)
		}
	}
	if chunks[3].WordCount != 200 {
		t.Errorf("final chunk: expected 200 words, got %d", chunks[3].WordCount)
	}
}

func TestChunk_AdjacentChunksShareOverlap(t *testing.T) {
	pages := []document.Page{
		{PageNumber: 1, Text: numberedWords(0, 37)},
		{PageNumber: 2, Text: numberedWords(37, 11)},
		{PageNumber: 3, Text: numberedWords(48, 52)},
	}
	cfg := Config{TargetWords: 12, OverlapWords: 4}
	chunks, err := Chunk(pages, cfg, "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i+1 < len(chunks); i++ {
		cur := strings.Fields(chunks[i].Text)
		next := strings.Fields(chunks[i+1].Text)
		tail := strings.Join(cur[len(cur)-cfg.OverlapWords:], " ")
		head := strings.Join(next[:cfg.OverlapWords], " ")
		if tail != head {
			t.Errorf("chunks %d/%d: tail %q != head %q", i, i+1, tail, head)
		}
	}
}

func TestChunk_PageRangesMonotonic(t *testing.T) {
	var pages []document.Page
	offset := 0
	for p, n := range []int{30, 0, 5, 80, 12, 40} {
		pages = append(pages, document.Page{PageNumber: p + 1, Text: numberedWords(offset, n)})
		offset += n
	}
	chunks, err := Chunk(pages, Config{TargetWords: 20, OverlapWords: 5}, "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		if c.PageStart > c.PageEnd {
			t.Errorf("chunk %d: page_start %d > page_end %d", i, c.PageStart, c.PageEnd)
		}
		if i == 0 {
			continue
		}
		prev := chunks[i-1]
		if c.PageStart < prev.PageStart || c.PageEnd < prev.PageEnd {
			t.Errorf("chunk %d: pages %d-%d go backwards from %d-%d", i, c.PageStart, c.PageEnd, prev.PageStart, prev.PageEnd)
		}
	}
	if last := chunks[len(chunks)-1]; last.PageEnd != 6 {
		t.Errorf("expected last chunk to end on page 6, got %d", last.PageEnd)
	}
}

func TestAttributePages_InclusiveBoundaries(t *testing.T) {
	spans := []pageSpan{
		{number: 1, startPos: 0, endPos: 5},
		{number: 2, startPos: 7, endPos: 12},
	}
	tests := []struct {
		name       string
		start, end int
		want       [2]int
	}{
		{"inside first page", 1, 3, [2]int{1, 1}},
		{"end touches next page start", 0, 7, [2]int{1, 2}},
		{"start touches page end", 5, 6, [2]int{1, 1}},
		{"spans both", 3, 10, [2]int{1, 2}},
		{"only second", 8, 12, [2]int{2, 2}},
		{"in separator gap", 6, 6, [2]int{1, 1}},
		{"past the end", 13, 20, [2]int{1, 1}},
	}
	for _, tt := range tests {
		s, e := attributePages(spans, tt.start, tt.end)
		if s != tt.want[0] || e != tt.want[1] {
			t.Errorf("%s: expected %d-%d, got %d-%d", tt.name, tt.want[0], tt.want[1], s, e)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", got)
	}
	if got := EstimateTokens("one"); got != 1 {
		t.Errorf("expected 1 token, got %d", got)
	}
	if got := EstimateTokens(numberedWords(0, 300)); got != 399 {
		t.Errorf("expected 399 tokens, got %d", got)
	}
	chunks := []document.Chunk{{Text: numberedWords(0, 100)}, {Text: numberedWords(0, 200)}}
	if got := EstimateChunkTokens(chunks); got != 133+266 {
		t.Errorf("expected %d tokens, got %d", 133+266, got)
	}
}
