package document

import "testing"

func TestChunk_PageLabel(t *testing.T) {
	tests := []struct {
		start, end int
		want       string
	}{
		{1, 1, "1"},
		{45, 47, "45-47"},
	}
	for _, tt := range tests {
		c := Chunk{PageStart: tt.start, PageEnd: tt.end}
		if got := c.PageLabel(); got != tt.want {
			t.Errorf("PageLabel(%d,%d): expected %q, got %q", tt.start, tt.end, tt.want, got)
		}
	}
}
