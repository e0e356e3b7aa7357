package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLogger(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	fl, err := NewFileLogger(logDir, "info")
	require.NoError(t, err)
	defer fl.Close()

	assert.True(t, strings.HasPrefix(filepath.Base(fl.RunFile()), "run-"))

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.RunFile()), target)
}

func TestFileLogger_ReplacesLatestSymlink(t *testing.T) {
	logDir := t.TempDir()

	// A stale symlink from an earlier run
	require.NoError(t, os.Symlink("run-old.log", filepath.Join(logDir, "latest.log")))

	fl, err := NewFileLogger(logDir, "info")
	require.NoError(t, err)
	defer fl.Close()

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.RunFile()), target)
}

func TestFileLogger_WritesRun(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "info")
	require.NoError(t, err)

	summary := sampleSummary()
	fl.LogRunStart(summary)
	fl.LogDebug("filtered out")
	fl.LogWarn("program missing")
	for _, c := range summary.Comparisons {
		fl.LogComparison(c)
	}
	fl.LogRunSummary(summary)
	require.NoError(t, fl.Close())

	data, err := os.ReadFile(fl.RunFile())
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "=== betsytest Run Log ===")
	assert.Contains(t, content, "Policy: verify")
	assert.NotContains(t, content, "filtered out")
	assert.Contains(t, content, "[WARN] program missing")
	assert.Contains(t, content, "FAILED   "+filepath.Join("tests", "results_com", "t1.stdout"))
	assert.Contains(t, content, "Failures: 1")
	assert.Contains(t, content, "Failed baselines:")
}

func TestFileLogger_CloseTwice(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "info")
	require.NoError(t, err)

	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())
	fl.LogInfo("after close is a no-op")
}
