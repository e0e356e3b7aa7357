package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/betsytest/internal/models"
)

// colorScheme defines consistent colors for outcome counts.
// Green: baselines written or matched
// Red: mismatches
// Yellow: baselines left alone
// Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for run summaries.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// outcomeColor picks the color a count is rendered in.
func (s *colorScheme) outcomeColor(outcome models.Outcome) *color.Color {
	switch outcome {
	case models.OutcomeFailed:
		return s.fail
	case models.OutcomeSkipped:
		return s.warn
	case models.OutcomeRecorded, models.OutcomeUpdated, models.OutcomePassed:
		return s.success
	default:
		return s.value
	}
}

// formatColorizedCounts is formatCounts with colorized labels and values.
// Colors are automatically disabled when output is not a TTY via fatih/color's built-in detection.
func formatColorizedCounts(summary *models.RunSummary, scheme *colorScheme) string {
	var parts []string
	for _, outcome := range outcomeOrder {
		n := summary.Count(outcome)
		if n == 0 {
			continue
		}
		labelColored := scheme.label.Sprint(string(outcome))
		valueColored := scheme.outcomeColor(outcome).Sprintf("%d", n)
		parts = append(parts, fmt.Sprintf("%s: %s", labelColored, valueColored))
	}
	if len(parts) == 0 {
		return scheme.warn.Sprint("no baselines touched")
	}
	return strings.Join(parts, ", ")
}
