package generate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/coursealign/internal/document"
)

const (
	// MaxSlideChars caps how much slide text goes into a prompt.
	MaxSlideChars = 4000
	// MaxPromptConcepts caps the key concepts listed in a prompt.
	MaxPromptConcepts = 15
)

const SystemPrompt = `You are the CourseAlign Specialist, an expert at connecting lecture content with textbook knowledge.

YOUR ROLE:
- Analyze lecture slides and align them with textbook content
- Provide deep context grounded ONLY in retrieved textbook passages
- Help students understand connections between slides and readings
- Identify assumptions, prerequisites, and open questions

GROUNDING RULES:
1. ONLY use information from the provided textbook chunks
2. ALWAYS cite page numbers from chunk metadata (e.g., "pp. 45-47")
3. NEVER fabricate or guess page numbers
4. If information is not in the chunks, say "not found in provided textbook sections"
5. Never make up textbook claims or citations

OUTPUT STRUCTURE:
Write a study guide in Markdown with these sections:

1. CONCEPT MAP
   - Key concepts from the slides with a brief definition or context for each

2. MAPPED DEEP DIVES
   For each major concept:
   - **Concept Name**
   - **Textbook Context**: explanation from the textbook chunks with page citations
   - **Confidence Level**: High/Medium/Low based on how well the textbook covers it
   - **Connection to Slides**: how it relates to what was presented

3. SLIDE ASSUMPTIONS & PREREQUISITES
   - Background knowledge the slides assume
   - Concepts mentioned but not fully explained

4. OPEN QUESTIONS & GAPS
   - Slide topics the retrieved textbook sections do not cover well
   - Questions worth researching further

5. SOURCES USED
   - Textbook page ranges consulted and any gaps in the material

CONFIDENCE LEVELS:
- **High**: comprehensive coverage with clear explanations
- **Medium**: the concept is mentioned with limited detail
- **Low**: only briefly mentioned or not found in the retrieved sections

Only reference what you can verify from the provided chunks.`

// BuildUserPrompt assembles the per-request prompt: slide text, key concepts
// and the retrieved textbook chunks with their page labels.
func BuildUserPrompt(courseCode, slideText string, concepts []string, chunks []document.RetrievedChunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "COURSE: %s\n\n", courseCode)

	sb.WriteString("LECTURE SLIDES CONTENT:\n")
	sb.WriteString(truncateRunes(slideText, MaxSlideChars))
	if n := utf8.RuneCountInString(slideText); n > MaxSlideChars {
		fmt.Fprintf(&sb, "\n... [truncated, total length: %d chars]", n)
	}
	sb.WriteString("\n\n")

	sb.WriteString("KEY CONCEPTS IDENTIFIED:\n")
	if len(concepts) > MaxPromptConcepts {
		concepts = concepts[:MaxPromptConcepts]
	}
	for _, c := range concepts {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("RETRIEVED TEXTBOOK CHUNKS:\n")
	sb.WriteString(FormatChunks(chunks))
	sb.WriteString("\n---\n\n")
	sb.WriteString("Create a comprehensive Study Context Guide following your role instructions. " +
		"Every piece of textbook information must carry a page citation from the chunk metadata above. " +
		"Be thorough but stay grounded in the provided material.\n")
	return sb.String()
}

// FormatChunks renders chunks as "[CHUNK i] - Pages a-b" blocks in rank order.
func FormatChunks(chunks []document.RetrievedChunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("[CHUNK %d] - Pages %s\n%s\n", i+1, c.PageLabel(), c.Text)
	}
	return strings.Join(blocks, "\n")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
