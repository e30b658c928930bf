package relay

import (
	"strings"
	"unicode/utf8"
)

// Chunk packs lines greedily into newline-joined chunks. Each line costs
// its rune count plus one separator; a line that would push a non-empty
// chunk past limit starts the next one. A line longer than limit is kept
// whole in a chunk of its own.
func Chunk(lines []string, limit int) []string {
	var (
		chunks []string
		cur    []string
		curLen int
	)
	for _, line := range lines {
		add := utf8.RuneCountInString(line) + 1
		if len(cur) > 0 && curLen+add > limit {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur = cur[:0]
			curLen = 0
		}
		cur = append(cur, line)
		curLen += add
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, "\n"))
	}
	return chunks
}
