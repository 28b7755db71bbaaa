package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/coursealign/internal/document"
)

// Config controls chunking behavior.
type Config struct {
	TargetWords  int // Words per window.
	OverlapWords int // Words shared by consecutive windows.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TargetWords:  750,
		OverlapWords: 150,
	}
}

// ConfigError reports a window configuration that could never advance.
type ConfigError struct {
	TargetWords  int
	OverlapWords int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid chunking config: target_words=%d must exceed overlap_words=%d >= 0",
		e.TargetWords, e.OverlapWords)
}

// Validate requires TargetWords > OverlapWords >= 0.
func (c Config) Validate() error {
	if c.OverlapWords < 0 || c.TargetWords <= c.OverlapWords {
		return &ConfigError{TargetWords: c.TargetWords, OverlapWords: c.OverlapWords}
	}
	return nil
}

// pageSpan is the half-open rune range a page occupies in the joined text.
type pageSpan struct {
	number   int
	startPos int
	endPos   int
}

// Chunk splits the concatenated page text into overlapping word windows and
// tags each window with the range of pages it touches.
func Chunk(pages []document.Page, cfg Config, courseCode string) ([]document.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return []document.Chunk{}, nil
	}

	spans, fullText := joinPages(pages)
	words := strings.Fields(fullText)
	if len(words) == 0 {
		return []document.Chunk{}, nil
	}

	// prefix[i] is the rune length of words[:i] without separators.
	prefix := make([]int, len(words)+1)
	for i, w := range words {
		prefix[i+1] = prefix[i] + utf8.RuneCountInString(w)
	}

	step := cfg.TargetWords - cfg.OverlapWords
	var chunks []document.Chunk
	for start := 0; start < len(words); start += step {
		end := min(start+cfg.TargetWords, len(words))

		startChar := joinedLen(prefix, 0, start)
		endChar := startChar + joinedLen(prefix, start, end)
		pageStart, pageEnd := attributePages(spans, startChar, endChar)

		chunks = append(chunks, document.Chunk{
			ChunkID:    len(chunks),
			Text:       strings.Join(words[start:end], " "),
			PageStart:  pageStart,
			PageEnd:    pageEnd,
			WordCount:  end - start,
			CourseCode: courseCode,
		})

		// The window that reaches the last word is the final one; another step
		// would only repeat overlap words.
		if end == len(words) {
			break
		}
	}

	return chunks, nil
}

// joinPages concatenates page texts separated by a paragraph break and records
// each page's [start, end) rune range.
func joinPages(pages []document.Page) ([]pageSpan, string) {
	var sb strings.Builder
	spans := make([]pageSpan, 0, len(pages))
	pos := 0
	for _, p := range pages {
		n := utf8.RuneCountInString(p.Text)
		spans = append(spans, pageSpan{number: p.PageNumber, startPos: pos, endPos: pos + n})
		sb.WriteString(p.Text)
		sb.WriteString("\n\n")
		pos += n + 2
	}
	return spans, sb.String()
}

// joinedLen is the rune length of strings.Join(words[from:to], " ").
func joinedLen(prefix []int, from, to int) int {
	if to <= from {
		return 0
	}
	return prefix[to] - prefix[from] + (to - from - 1)
}

// attributePages returns the min and max page numbers whose range overlaps
// [startChar, endChar]. Boundaries are inclusive on both sides, so a chunk
// ending exactly where a page starts counts that page. With no overlap it
// falls back to page 1.
func attributePages(spans []pageSpan, startChar, endChar int) (int, int) {
	first, last := 0, 0
	found := false
	for _, s := range spans {
		if endChar < s.startPos || startChar > s.endPos {
			continue
		}
		if !found {
			first, last = s.number, s.number
			found = true
			continue
		}
		first = min(first, s.number)
		last = max(last, s.number)
	}
	if !found {
		return 1, 1
	}
	return first, last
}
