// Package report renders a run summary as a Markdown document, optionally
// converted to HTML.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/betsytest/internal/filelock"
	"github.com/harrison/betsytest/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// outcomeOrder fixes the order outcomes are listed in.
var outcomeOrder = []models.Outcome{
	models.OutcomeRecorded,
	models.OutcomeSkipped,
	models.OutcomeUpdated,
	models.OutcomePassed,
	models.OutcomeFailed,
}

// Markdown renders summary as a Markdown report. Only baselines that were
// written or failed are listed; passed and skipped streams are counted.
func Markdown(summary *models.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# betsytest %s run\n\n", summary.Policy)

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Run | `%s` |\n", summary.RunID)
	fmt.Fprintf(&b, "| Root | `%s` |\n", escapeCell(summary.Root))
	fmt.Fprintf(&b, "| Started | %s |\n", summary.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Duration | %s |\n", summary.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "| Cases | %d |\n", summary.Cases)
	fmt.Fprintf(&b, "| Failures | %d |\n", summary.Failures)
	if summary.Aborted != "" {
		fmt.Fprintf(&b, "| Aborted | %s |\n", escapeCell(summary.Aborted))
	}

	b.WriteString("\n## Outcomes\n\n")
	counted := false
	for _, outcome := range outcomeOrder {
		if n := summary.Count(outcome); n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", outcome, n)
			counted = true
		}
	}
	if !counted {
		b.WriteString("No baselines touched.\n")
	}

	var listed []models.Comparison
	for _, c := range summary.Comparisons {
		switch c.Outcome {
		case models.OutcomeFailed, models.OutcomeRecorded, models.OutcomeUpdated:
			listed = append(listed, c)
		}
	}

	b.WriteString("\n## Baselines\n\n")
	if len(listed) == 0 {
		b.WriteString("No baselines were written or failed.\n")
		return b.String()
	}

	b.WriteString("| Outcome | Case | Mode | Stream | Baseline |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, c := range listed {
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s | `%s` |\n",
			strings.ToUpper(string(c.Outcome)),
			escapeCell(c.Case.Path()),
			c.Mode,
			c.Stream,
			escapeCell(c.BaselinePath))
	}

	return b.String()
}

// HTML renders the Markdown report as a standalone HTML page.
func HTML(summary *models.RunSummary) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(summary)), &body); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>betsytest %s run %s</title>\n", summary.Policy, summary.RunID)
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

// Write stores the report at path. Paths ending in .html or .htm get the
// HTML rendering, everything else gets Markdown.
func Write(path string, summary *models.RunSummary) error {
	var content string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		html, err := HTML(summary)
		if err != nil {
			return err
		}
		content = html
	default:
		content = Markdown(summary)
	}

	if err := filelock.AtomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
