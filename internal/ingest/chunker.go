package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/triagekit/triagekit/internal/models"
)

const (
	defaultMinChunkChars = 200
	defaultMaxChunkChars = 2000
)

// Chunker splits runbook markdown into retrieval-sized chunks at H2/H3
// heading boundaries, keeping fenced code blocks atomic and enforcing
// min/max chunk sizes.
type Chunker struct {
	MinChars int
	MaxChars int
}

// NewChunker creates a chunker with default size bounds.
func NewChunker() *Chunker {
	return &Chunker{MinChars: defaultMinChunkChars, MaxChars: defaultMaxChunkChars}
}

// section is an intermediate unit between heading split and size
// enforcement.
type section struct {
	title   string
	content string
}

// Chunk parses front matter and splits the body into RunbookChunk records.
// Chunk order preserves document order; ids are deterministic in
// (path, ordinal).
func (c *Chunker) Chunk(path, doc string) ([]models.RunbookChunk, error) {
	fm, body, err := splitFrontMatter(doc)
	if err != nil {
		return nil, err
	}

	sections := splitSections(body, fm.Title)
	sections = c.mergeSmall(sections)

	var chunks []models.RunbookChunk
	ordinal := 0
	for _, s := range sections {
		for _, content := range c.hardSplit(s.content) {
			content = strings.TrimSpace(content)
			if content == "" {
				continue
			}
			chunks = append(chunks, models.RunbookChunk{
				ID:               chunkID(path, ordinal),
				RunbookPath:      path,
				SectionTitle:     s.title,
				Content:          content,
				Tags:             fm.Tags,
				ApplicableShapes: fm.ApplicableShapes,
			})
			ordinal++
		}
	}
	return chunks, nil
}

// splitSections cuts the body at H2/H3 headings outside code fences. Content
// before the first heading becomes a leading section titled by the document.
func splitSections(body, docTitle string) []section {
	if docTitle == "" {
		docTitle = "Introduction"
	}

	var sections []section
	current := section{title: docTitle}
	inFence := false

	flush := func() {
		if strings.TrimSpace(current.content) != "" {
			sections = append(sections, current)
		}
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if !inFence && isSectionHeading(trimmed) {
			flush()
			current = section{title: headingText(trimmed)}
			continue
		}
		current.content += line + "\n"
	}
	flush()
	return sections
}

func isSectionHeading(line string) bool {
	return (strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### ")) &&
		!strings.HasPrefix(line, "#### ")
}

func headingText(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "# "))
}

// mergeSmall merges undersized sections forward into their successor so no
// chunk falls below MinChars (the final section may, when nothing follows).
func (c *Chunker) mergeSmall(sections []section) []section {
	var merged []section
	var carry *section
	for i := range sections {
		s := sections[i]
		if carry != nil {
			s.content = carry.content + "\n" + s.content
			s.title = carry.title
			carry = nil
		}
		if len(strings.TrimSpace(s.content)) < c.MinChars && i < len(sections)-1 {
			carry = &s
			continue
		}
		merged = append(merged, s)
	}
	if carry != nil {
		merged = append(merged, *carry)
	}
	return merged
}

// hardSplit breaks over-long content on paragraph boundaries, never inside a
// fenced code block: fenced blocks travel with the paragraph group they
// started in.
func (c *Chunker) hardSplit(content string) []string {
	if len(content) <= c.MaxChars {
		return []string{content}
	}

	paragraphs := splitParagraphs(content)
	var parts []string
	var buf strings.Builder
	for _, p := range paragraphs {
		if buf.Len() > 0 && buf.Len()+len(p) > c.MaxChars {
			parts = append(parts, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p)
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}

// splitParagraphs splits on blank lines, keeping fenced code blocks glued to
// a single paragraph so they are never split across chunks.
func splitParagraphs(content string) []string {
	var paragraphs []string
	var buf strings.Builder
	inFence := false

	flush := func() {
		if strings.TrimSpace(buf.String()) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(buf.String()))
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if strings.TrimSpace(line) == "" && !inFence {
			flush()
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()
	return paragraphs
}

// chunkID hashes "path:ordinal" so re-ingesting the same document yields the
// same ids.
func chunkID(path string, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", path, ordinal)))
	return hex.EncodeToString(sum[:])[:16]
}
