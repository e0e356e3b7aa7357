// Package logger provides logging implementations for betsytest runs.
//
// Loggers report run progress (run start, subprocess invocations, per-stream
// outcomes, run summary) at filterable levels. They are diagnostics only:
// the result lines a run prints ([REC], [FAILED], ...) are written by the
// baseline reporter, not by a logger. Implementations are thread-safe.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/betsytest/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		mutex:       sync.Mutex{},
		colorOutput: IsTerminal(writer),
	}
}

// IsTerminal reports whether w is os.Stdout or os.Stderr attached to a TTY.
// Returns false when NO_COLOR is set.
func IsTerminal(w io.Writer) bool {
	if w == nil || color.NoColor {
		return false
	}

	f, ok := w.(*os.File)
	if !ok || (f != os.Stdout && f != os.Stderr) {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	default:
		return "info"
	}
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel writes "[HH:MM:SS] [LEVEL] <message>" if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch level {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogRunStart logs the start of a run at INFO level.
// Format: "[HH:MM:SS] Run <id>: <policy> <root>"
func (cl *ConsoleLogger) LogRunStart(summary *models.RunSummary) {
	cl.LogInfo(fmt.Sprintf("Run %s: %s %s", summary.RunID, summary.Policy, summary.Root))
}

// LogComparison logs one stream outcome at DEBUG level.
func (cl *ConsoleLogger) LogComparison(c models.Comparison) {
	cl.LogDebug(fmt.Sprintf("%s [%s/%s] %s", c.Case.Path(), c.Mode, c.Stream, c.Outcome))
}

// LogRunSummary logs the run totals at INFO level.
// Format: "[HH:MM:SS] Run <id> finished in <duration>: <counts>"
func (cl *ConsoleLogger) LogRunSummary(summary *models.RunSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	var counts string
	if cl.colorOutput {
		counts = formatColorizedCounts(summary, newColorScheme())
	} else {
		counts = formatCounts(summary)
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	fmt.Fprintf(cl.writer, "[%s] Run %s finished in %s: %d cases, %s\n",
		timestamp(), summary.RunID, formatDuration(summary.Duration()), summary.Cases, counts)
}

// timestamp returns the current time as HH:MM:SS.
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders durations as "850ms", "3.2s" or "1m5s".
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// formatCounts renders the non-zero outcome counts of a run.
// Format: "recorded: N, passed: N, failed: N"
func formatCounts(summary *models.RunSummary) string {
	var parts []string
	for _, outcome := range outcomeOrder {
		if n := summary.Count(outcome); n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", outcome, n))
		}
	}
	if len(parts) == 0 {
		return "no baselines touched"
	}
	return strings.Join(parts, ", ")
}

// outcomeOrder fixes the order outcomes are listed in summaries.
var outcomeOrder = []models.Outcome{
	models.OutcomeRecorded,
	models.OutcomeSkipped,
	models.OutcomeUpdated,
	models.OutcomePassed,
	models.OutcomeFailed,
}

// NoOpLogger discards everything. Used by tests and library callers.
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that discards all messages.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(message string)                  {}
func (n *NoOpLogger) LogDebug(message string)                  {}
func (n *NoOpLogger) LogInfo(message string)                   {}
func (n *NoOpLogger) LogWarn(message string)                   {}
func (n *NoOpLogger) LogError(message string)                  {}
func (n *NoOpLogger) LogRunStart(summary *models.RunSummary)   {}
func (n *NoOpLogger) LogComparison(c models.Comparison)        {}
func (n *NoOpLogger) LogRunSummary(summary *models.RunSummary) {}
