package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memoryRunbook = `---
title: Memory Troubleshooting
tags: [memory, oom]
applicable_shapes: ["VM.*"]
---
Opening paragraph describing memory pressure symptoms on virtual machines, long enough that the leading section is not merged away during small-section handling of the document body.

## Check current usage

Run the usual inspection commands and compare against the alert threshold before touching anything else on the host. If usage is genuinely high, continue with the process-level breakdown below.

` + "```bash\nfree -h\nps aux --sort=-%mem | head\n```" + `

## Identify the offender

Look at the process table output and recent OOM killer activity in the kernel log to find which process is consuming the memory and whether the kernel already intervened once.
`

func TestChunkFrontMatterApplied(t *testing.T) {
	c := NewChunker()
	chunks, err := c.Chunk("runbooks/memory-troubleshooting.md", memoryRunbook)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.Equal(t, "runbooks/memory-troubleshooting.md", ch.RunbookPath)
		assert.Equal(t, []string{"memory", "oom"}, ch.Tags)
		assert.Equal(t, []string{"VM.*"}, ch.ApplicableShapes)
	}
}

func TestChunkSplitsAtHeadings(t *testing.T) {
	c := NewChunker()
	c.MinChars = 10
	chunks, err := c.Chunk("r.md", memoryRunbook)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Memory Troubleshooting", chunks[0].SectionTitle)
	assert.Equal(t, "Check current usage", chunks[1].SectionTitle)
	assert.Equal(t, "Identify the offender", chunks[2].SectionTitle)
}

func TestChunkIDsDeterministic(t *testing.T) {
	c := NewChunker()
	first, err := c.Chunk("r.md", memoryRunbook)
	require.NoError(t, err)
	second, err := c.Chunk("r.md", memoryRunbook)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Len(t, first[i].ID, 16)
	}

	// Different path, different ids.
	other, err := c.Chunk("other.md", memoryRunbook)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ID, other[0].ID)
}

func TestChunkHeadingInsideFenceIgnored(t *testing.T) {
	doc := "Intro text before the code example that shows heading-like lines.\n\n" +
		"```\n## not a heading\n### also not\n```\n\nClosing text after the fence.\n"
	c := NewChunker()
	c.MinChars = 1
	chunks, err := c.Chunk("r.md", doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "## not a heading")
}

func TestChunkFenceNeverSplit(t *testing.T) {
	var fence strings.Builder
	fence.WriteString("```bash\n")
	for i := 0; i < 40; i++ {
		fence.WriteString("echo this is a long command line used to inflate the code block\n")
	}
	fence.WriteString("```")

	doc := "## Big section\n\nLead paragraph.\n\n" + fence.String() + "\n\nTrailing paragraph.\n"
	c := NewChunker()
	c.MinChars = 10
	c.MaxChars = 500
	chunks, err := c.Chunk("r.md", doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// The fence exceeds MaxChars on its own, so it lands in exactly one
	// chunk, never split.
	found := 0
	for _, ch := range chunks {
		opens := strings.Count(ch.Content, "```")
		assert.True(t, opens%2 == 0, "chunk has unbalanced fence markers")
		if strings.Contains(ch.Content, "echo this is a long command line") {
			found++
		}
	}
	assert.Equal(t, 1, found)
}

func TestChunkSmallSectionsMergedForward(t *testing.T) {
	doc := "## Tiny\n\nshort\n\n## Next\n\n" + strings.Repeat("substantial content here ", 20) + "\n"
	c := NewChunker()
	chunks, err := c.Chunk("r.md", doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Tiny", chunks[0].SectionTitle)
	assert.Contains(t, chunks[0].Content, "short")
	assert.Contains(t, chunks[0].Content, "substantial content")
}

func TestChunkLongSectionHardSplit(t *testing.T) {
	var body strings.Builder
	body.WriteString("## Long\n\n")
	for i := 0; i < 30; i++ {
		body.WriteString(strings.Repeat("word ", 30))
		body.WriteString("\n\n")
	}
	c := NewChunker()
	c.MinChars = 10
	c.MaxChars = 400
	chunks, err := c.Chunk("r.md", body.String())
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.Equal(t, "Long", ch.SectionTitle)
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	c := NewChunker()
	chunks, err := c.Chunk("r.md", "")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitFrontMatterMissing(t *testing.T) {
	fm, body, err := splitFrontMatter("# Just a doc\n\ncontent\n")
	require.NoError(t, err)
	assert.Empty(t, fm.Title)
	assert.Contains(t, body, "Just a doc")
}

func TestSplitFrontMatterUnclosed(t *testing.T) {
	doc := "---\ntitle: Broken\n\ncontent without closing fence\n"
	fm, body, err := splitFrontMatter(doc)
	require.NoError(t, err)
	assert.Empty(t, fm.Title)
	assert.Equal(t, doc, body)
}

func TestSplitFrontMatterInvalidYAML(t *testing.T) {
	doc := "---\ntitle: [unclosed\n---\nbody\n"
	_, _, err := splitFrontMatter(doc)
	assert.Error(t, err)
}
