package parser

import (
	"strings"
	"testing"
)

func TestHTMLExtractor_HorizontalRulesSplitPages(t *testing.T) {
	input := `<html><head><title>Biology</title><script>var x = 1;</script></head>
<body>
<nav>Home | About</nav>
<h1>Chapter 1</h1>
<p>Cells are small.</p>
<hr>
<p>Page two <b>bold</b>.</p>
<ul><li>item</li></ul>
<footer>copyright</footer>
</body></html>`

	pages, err := (&HTMLExtractor{}).Extract(strings.NewReader(input), "book.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d: %+v", len(pages), pages)
	}
	if pages[0].Text != "Chapter 1\n\nCells are small." {
		t.Errorf("page 1: unexpected text %q", pages[0].Text)
	}
	if pages[1].Text != "Page two bold.\n\nitem" {
		t.Errorf("page 2: unexpected text %q", pages[1].Text)
	}
	for _, p := range pages {
		for _, banned := range []string{"Home", "copyright", "var x"} {
			if strings.Contains(p.Text, banned) {
				t.Errorf("page %d should not contain %q", p.PageNumber, banned)
			}
		}
	}
}
