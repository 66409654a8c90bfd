package crew

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		marker string
		want   float64
	}{
		{"plain integer", "COMPLETENESS_SCORE: 80", "COMPLETENESS_SCORE:", 80},
		{"decimal", "ACCURACY_SCORE: 72.5 out of 100", "ACCURACY_SCORE:", 72.5},
		{"marker absent", "nothing here", "CONFIDENCE:", 0},
		{"no number on line", "CONFIDENCE: high", "CONFIDENCE:", 0},
		{"embedded in prose", "I'd give a COMPLETENESS_SCORE: 65 here", "COMPLETENESS_SCORE:", 65},
		{"trailing period", "CONFIDENCE: 90.", "CONFIDENCE:", 90},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractScore(tc.text, tc.marker))
		})
	}
}

func TestExtractSection(t *testing.T) {
	text := `MISSING_INFO:
- first gap
- second gap
CONTRADICTIONS: none found
EVALUATION: fine`

	assert.Equal(t, "- first gap\n- second gap", extractSection(text, "MISSING_INFO:"))
	assert.Equal(t, "none found", extractSection(text, "CONTRADICTIONS:"))
	assert.Equal(t, "fine", extractSection(text, "EVALUATION:"))
	assert.Empty(t, extractSection(text, "IMPROVEMENTS:"))
}

func TestExtractSectionInlineValue(t *testing.T) {
	got := extractSection("IMPROVEMENTS: add sources\nmore detail here", "IMPROVEMENTS:")
	assert.Equal(t, "add sources\nmore detail here", got)
}

func TestSplitListSection(t *testing.T) {
	section := `1. first item
2. second item
- third item
None
`
	assert.Equal(t, []string{"first item", "second item", "third item"}, splitListSection(section))
}

func TestSplitListSectionDropsPlaceholders(t *testing.T) {
	assert.Empty(t, splitListSection("None"))
	assert.Empty(t, splitListSection("N/A"))
	assert.Empty(t, splitListSection("none identified."))
	assert.Empty(t, splitListSection(""))
}

func TestParseListLines(t *testing.T) {
	text := `Here are the queries:
1. "electric car battery lifespan 2026"
2. EV charging infrastructure comparison
- ok
* total cost of ownership electric vs gasoline
`
	got := parseListLines(text, 5)
	assert.Equal(t, []string{
		"Here are the queries:",
		"electric car battery lifespan 2026",
		"EV charging infrastructure comparison",
		"total cost of ownership electric vs gasoline",
	}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcd", 2))
	assert.Equal(t, "héll", truncate("héllo", 4), "truncation is rune-safe")
}
