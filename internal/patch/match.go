package patch

import (
	"fmt"
	"regexp"
	"strings"
)

var wsRun = regexp.MustCompile(`\s+`)

// applyUpdate applies chunks in order to content, using three-tier fuzzy
// context matching per chunk. CRLF line endings and the original trailing
// newline are preserved in the result.
func applyUpdate(content string, chunks []Chunk) (string, error) {
	crlf := strings.Contains(content, "\r\n")
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	hadTrailingNewline := strings.HasSuffix(normalized, "\n")
	body := strings.TrimSuffix(normalized, "\n")

	var lines []string
	if body != "" {
		lines = strings.Split(body, "\n")
	}

	cursor := 0
	for _, chunk := range chunks {
		newLines, newCursor, err := applyChunk(lines, cursor, chunk)
		if err != nil {
			return "", buildContextError(lines, chunk, err)
		}
		lines = newLines
		cursor = newCursor
	}

	result := strings.Join(lines, "\n")
	if hadTrailingNewline {
		result += "\n"
	}
	if crlf {
		result = strings.ReplaceAll(result, "\n", "\r\n")
	}
	return result, nil
}

// applyChunk locates the chunk's anchor in lines starting at cursor and
// returns the transformed line slice plus the cursor position immediately
// after the replaced region.
func applyChunk(lines []string, cursor int, chunk Chunk) ([]string, int, error) {
	pattern := anchorLines(chunk)

	idx, err := findMatch(lines, cursor, pattern, chunk.IsEndOfFile)
	if err != nil {
		return nil, 0, err
	}

	before := lines[:idx]
	pos := idx
	var replaced []string
	for _, pl := range chunk.Lines {
		switch pl.Kind {
		case LineContext:
			if pos >= len(lines) {
				return nil, 0, fmt.Errorf("context line runs past end of file")
			}
			replaced = append(replaced, lines[pos])
			pos++
		case LineRemoval:
			if pos >= len(lines) {
				return nil, 0, fmt.Errorf("removal line runs past end of file")
			}
			pos++
		case LineAddition:
			replaced = append(replaced, pl.Text)
		}
	}
	after := lines[pos:]

	out := make([]string, 0, len(before)+len(replaced)+len(after))
	out = append(out, before...)
	out = append(out, replaced...)
	out = append(out, after...)
	return out, idx + len(replaced), nil
}

// anchorLines extracts the context+removal lines a chunk must match against
// the source, in order, skipping pure additions.
func anchorLines(chunk Chunk) []PatchLine {
	var out []PatchLine
	for _, pl := range chunk.Lines {
		if pl.Kind != LineAddition {
			out = append(out, pl)
		}
	}
	return out
}

type lineComparator func(source, pattern string) bool

func exactMatch(source, pattern string) bool { return source == pattern }

func trimMatch(source, pattern string) bool {
	return strings.TrimSpace(source) == strings.TrimSpace(pattern)
}

func whitespaceNormalizedMatch(source, pattern string) bool {
	return normalizeWhitespace(source) == normalizeWhitespace(pattern)
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(wsRun.ReplaceAllString(s, " "))
}

// findMatch tries, in order, exact / trim / whitespace-normalized matching
// of pattern as a contiguous window within lines at or after cursor. If
// anchorEnd is set the window must end exactly at len(lines).
func findMatch(lines []string, cursor int, pattern []PatchLine, anchorEnd bool) (int, error) {
	for _, cmp := range []lineComparator{exactMatch, trimMatch, whitespaceNormalizedMatch} {
		if idx, ok := searchWindow(lines, cursor, pattern, anchorEnd, cmp); ok {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("no context match found for chunk")
}

func searchWindow(lines []string, cursor int, pattern []PatchLine, anchorEnd bool, cmp lineComparator) (int, bool) {
	n := len(pattern)
	if n == 0 {
		if anchorEnd {
			return len(lines), true
		}
		return cursor, true
	}

	tryAt := func(start int) bool {
		if start < 0 || start+n > len(lines) {
			return false
		}
		for i, pl := range pattern {
			if !cmp(lines[start+i], pl.Text) {
				return false
			}
		}
		return true
	}

	if anchorEnd {
		start := len(lines) - n
		if tryAt(start) {
			return start, true
		}
		return 0, false
	}

	for start := cursor; start+n <= len(lines); start++ {
		if tryAt(start) {
			return start, true
		}
	}
	return 0, false
}

const previewMaxChars = 500

// buildContextError wraps a match failure with a bounded preview of the
// surrounding file content and the expected block, per spec.
func buildContextError(lines []string, chunk Chunk, cause error) error {
	expected := make([]string, 0, len(chunk.Lines))
	for _, pl := range chunk.Lines {
		prefix := " "
		switch pl.Kind {
		case LineAddition:
			prefix = "+"
		case LineRemoval:
			prefix = "-"
		}
		expected = append(expected, prefix+pl.Text)
	}
	expectedBlock := strings.Join(expected, "\n")

	full := strings.Join(lines, "\n")
	preview := full
	if len(preview) > previewMaxChars {
		preview = preview[:previewMaxChars]
	}

	return &ParseError{
		Msg:     fmt.Sprintf("%v\nexpected block:\n%s", cause, expectedBlock),
		Preview: preview,
	}
}
