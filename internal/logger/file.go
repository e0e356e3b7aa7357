package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/betsytest/internal/models"
)

// FileLogger writes a timestamped log file per run and keeps a latest.log
// symlink pointing to the most recent one. Every stream outcome is recorded,
// so the file is a complete audit of what a run did to the baselines.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir with the given log level.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	ts := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", ts))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}

	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
		mu:       sync.Mutex{},
	}

	fl.writeRunLog("=== betsytest Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}

	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogRunStart records the run id, policy and root.
func (fl *FileLogger) LogRunStart(summary *models.RunSummary) {
	if !fl.shouldLog("info") {
		return
	}

	fl.writeRunLog(fmt.Sprintf("[%s] Run %s\n  Policy: %s\n  Root: %s\n\n",
		timestamp(), summary.RunID, summary.Policy, summary.Root))
}

// LogComparison records one stream outcome at INFO level.
func (fl *FileLogger) LogComparison(c models.Comparison) {
	if !fl.shouldLog("info") {
		return
	}

	fl.writeRunLog(fmt.Sprintf("[%s] %-8s %s\n", timestamp(), strings.ToUpper(string(c.Outcome)), c.BaselinePath))
}

// LogRunSummary writes the run totals and the list of failed baselines.
func (fl *FileLogger) LogRunSummary(summary *models.RunSummary) {
	var b strings.Builder
	b.WriteString("\n=== Run Summary ===\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", summary.RunID))
	b.WriteString(fmt.Sprintf("Cases: %d\n", summary.Cases))
	b.WriteString(fmt.Sprintf("Outcomes: %s\n", formatCounts(summary)))
	b.WriteString(fmt.Sprintf("Failures: %d\n", summary.Failures))
	b.WriteString(fmt.Sprintf("Duration: %s\n", formatDuration(summary.Duration())))

	if summary.Failures > 0 {
		b.WriteString("\nFailed baselines:\n")
		for _, c := range summary.Comparisons {
			if c.Outcome == models.OutcomeFailed {
				b.WriteString(fmt.Sprintf("  - %s\n", c.BaselinePath))
			}
		}
	}

	fl.writeRunLog(b.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
