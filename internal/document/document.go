package document

import "strconv"

// Page is one physical page of a textbook or one slide of a deck.
type Page struct {
	PageNumber int    `json:"page_number"` // 1-based, monotonic
	Text       string `json:"text"`        // may be empty
}

// Chunk is an overlapping word window of textbook text with its page provenance.
// ChunkID is positional within one indexing run.
type Chunk struct {
	ChunkID    int    `json:"chunk_id"`
	Text       string `json:"text"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	WordCount  int    `json:"word_count"`
	CourseCode string `json:"course_code"`
}

// PageLabel renders the page range the way citations use it: "45" or "45-47".
func (c Chunk) PageLabel() string {
	if c.PageStart == c.PageEnd {
		return strconv.Itoa(c.PageStart)
	}
	return strconv.Itoa(c.PageStart) + "-" + strconv.Itoa(c.PageEnd)
}

// RetrievedChunk is a Chunk returned by a search, with its raw L2 distance
// (lower is more relevant) and 1-based rank.
type RetrievedChunk struct {
	Chunk
	RelevanceScore float32 `json:"relevance_score"`
	Rank           int     `json:"rank"`
}

// Deck is the extracted content of a lecture slide file.
type Deck struct {
	Slides   []Page
	FullText string
}

// SlideBreak separates slide blocks in Deck.FullText.
const SlideBreak = "---SLIDE BREAK---"
