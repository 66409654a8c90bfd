package crew

import (
	"regexp"
	"strconv"
	"strings"
)

// The judgment collaborator replies in free text with labeled marker lines
// (e.g. "COMPLETENESS_SCORE: 80"). Nothing guarantees the shape, so every
// extractor here is total: a missing or garbled field yields a zero value,
// never an error.

var numberPattern = regexp.MustCompile(`[\d.]+`)

// knownMarkers terminate section capture when the next labeled field starts.
var knownMarkers = []string{
	"SCORE:", "CONFIDENCE:", "GAPS:", "IMPROVEMENTS:", "EVALUATION:",
	"SUGGESTED_QUERIES:", "MISSING_INFO:", "CONTRADICTIONS:",
}

// extractScore returns the first number on the line containing marker, or 0.
func extractScore(text, marker string) float64 {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, marker) {
			continue
		}
		if m := numberPattern.FindString(line); m != "" {
			if v, err := strconv.ParseFloat(strings.Trim(m, "."), 64); err == nil {
				return v
			}
		}
	}
	return 0
}

// extractSection returns the text following a marker line up to the next
// known marker.
func extractSection(text, marker string) string {
	var result []string
	capture := false

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.Contains(line, marker):
			capture = true
			if _, rest, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(rest) != "" {
				result = append(result, strings.TrimSpace(rest))
			}
		case capture && strings.TrimSpace(line) != "" && hasKnownMarker(line):
			return strings.Join(result, "\n")
		case capture && strings.TrimSpace(line) != "":
			result = append(result, strings.TrimSpace(line))
		}
	}
	return strings.Join(result, "\n")
}

func hasKnownMarker(line string) bool {
	for _, m := range knownMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// splitListSection turns a captured section into discrete items, trimming
// bullets and numbering. "None"-style placeholders are dropped.
func splitListSection(section string) []string {
	var items []string
	for _, line := range strings.Split(section, "\n") {
		item := strings.TrimSpace(line)
		item = strings.TrimLeft(item, "0123456789.-•* ")
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		switch strings.ToLower(strings.TrimRight(item, ".")) {
		case "none", "n/a", "none identified":
			continue
		}
		items = append(items, item)
	}
	return items
}

// parseListLines cleans LLM output where each line is expected to be one
// item (search queries, research angles): numbering, bullets, and quotes
// are stripped and short fragments dropped.
func parseListLines(text string, minLen int) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		item := strings.TrimSpace(line)
		item = strings.TrimLeft(item, "0123456789.-•* ")
		item = strings.Trim(item, `"'`)
		item = strings.TrimSpace(item)
		if len(item) > minLen {
			items = append(items, item)
		}
	}
	return items
}
