package chunker

import (
	"strings"

	"github.com/dgallion1/coursealign/internal/document"
)

// EstimateTokens gives a rough token count from the word count.
// Exact tokenization is not required; it only feeds progress and cost reporting.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	// Roughly 1.33 tokens per English word.
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// EstimateChunkTokens sums EstimateTokens over chunk texts, i.e. what an
// embedding run over these chunks will roughly bill.
func EstimateChunkTokens(chunks []document.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += EstimateTokens(c.Text)
	}
	return total
}
