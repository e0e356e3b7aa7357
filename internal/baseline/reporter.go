package baseline

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/harrison/betsytest/internal/models"
)

// Reporter prints the result lines of a run: one tagged line per baseline
// written or failed, the expected/actual dump of a mismatch and the final
// verify summary.
type Reporter struct {
	out         io.Writer
	colorOutput bool
	rec         *color.Color
	update      *color.Color
	fail        *color.Color
	pass        *color.Color
}

// NewReporter creates a Reporter writing to out. Tags are colored only when
// colorOutput is set.
func NewReporter(out io.Writer, colorOutput bool) *Reporter {
	if out == nil {
		out = io.Discard
	}
	return &Reporter{
		out:         out,
		colorOutput: colorOutput,
		rec:         color.New(color.FgGreen),
		update:      color.New(color.FgCyan),
		fail:        color.New(color.FgRed, color.Bold),
		pass:        color.New(color.FgGreen, color.Bold),
	}
}

func (r *Reporter) tag(c *color.Color, text string) string {
	if !r.colorOutput {
		return text
	}
	return c.Sprint(text)
}

// Recorded prints "[REC] <path>".
func (r *Reporter) Recorded(path string) {
	fmt.Fprintf(r.out, "%s %s\n", r.tag(r.rec, "[REC]"), path)
}

// Updated prints "[UPDATE] <path>".
func (r *Reporter) Updated(path string) {
	fmt.Fprintf(r.out, "%s %s\n", r.tag(r.update, "[UPDATE]"), path)
}

// Failed prints the mismatch block:
//
//	[FAILED] <path>
//	-EXPECTED-
//	<expected>
//	-ACTUAL-
//	<actual>
func (r *Reporter) Failed(path string, expected, actual []byte) {
	fmt.Fprintf(r.out, "%s %s\n", r.tag(r.fail, "[FAILED]"), path)
	fmt.Fprintln(r.out, "-EXPECTED-")
	fmt.Fprintln(r.out, DisplayText(expected))
	fmt.Fprintln(r.out, "-ACTUAL-")
	fmt.Fprintln(r.out, DisplayText(actual))
}

// Diff prints a line diff of a mismatch under a "-DIFF-" header.
func (r *Reporter) Diff(expected, actual []byte) {
	fmt.Fprintln(r.out, "-DIFF- (-expected +actual)")
	fmt.Fprint(r.out, LineDiff(expected, actual))
}

// Summary prints the closing verify line after an empty line:
// "All tests passed." or "N tests failed.".
func (r *Reporter) Summary(summary *models.RunSummary) {
	fmt.Fprintln(r.out)
	if summary.Failures > 0 {
		fmt.Fprintln(r.out, r.tag(r.fail, fmt.Sprintf("%d tests failed.", summary.Failures)))
		return
	}
	fmt.Fprintln(r.out, r.tag(r.pass, "All tests passed."))
}
