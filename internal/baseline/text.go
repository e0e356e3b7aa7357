package baseline

import (
	"strings"

	"github.com/google/go-cmp/cmp"
)

// DisplayText converts raw bytes to printable text one byte per character,
// mapping byte b to code point U+00b (Latin-1). Never fails, whatever the
// encoding of the input.
func DisplayText(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

// LineDiff returns a line-oriented diff of expected and actual display text,
// "-" lines from expected and "+" lines from actual. Empty when equal.
func LineDiff(expected, actual []byte) string {
	return cmp.Diff(
		strings.Split(DisplayText(expected), "\n"),
		strings.Split(DisplayText(actual), "\n"),
	)
}
