package generate

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/coursealign/internal/document"
)

// KeyConcepts pulls candidate concepts from slide text: "Title:" lines and
// bullet lines starting with -, • or *. Concepts of three characters or fewer
// are skipped and duplicates are dropped case-insensitively, keeping the
// first spelling in slide order.
func KeyConcepts(slideText string) []string {
	var concepts []string
	seen := make(map[string]bool)
	add := func(c string) {
		c = strings.TrimSpace(c)
		if utf8.RuneCountInString(c) <= 3 {
			return
		}
		key := strings.ToLower(c)
		if seen[key] {
			return
		}
		seen[key] = true
		concepts = append(concepts, c)
	}

	for _, line := range strings.Split(slideText, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == document.SlideBreak:
		case strings.HasPrefix(line, "Title:"):
			add(strings.TrimPrefix(line, "Title:"))
		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "•"), strings.HasPrefix(line, "*"):
			add(strings.TrimLeft(line, "-•* "))
		}
	}
	return concepts
}
