package executor

import (
	"context"
	"sync"

	"github.com/harrison/betsytest/internal/models"
)

// fakeRunner records every invocation and answers through hook.
type fakeRunner struct {
	mu    sync.Mutex
	calls []Invocation
	hook  func(inv Invocation) (Output, error)
}

func (f *fakeRunner) Run(ctx context.Context, inv Invocation) (Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	if f.hook == nil {
		return Output{}, nil
	}
	return f.hook(inv)
}

// recordingLogger keeps warnings and debug lines for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	debugs []string
	warns  []string
	starts int
	ends   int
	comps  []models.Comparison
}

func (l *recordingLogger) LogDebug(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, message)
}

func (l *recordingLogger) LogInfo(message string) {}

func (l *recordingLogger) LogWarn(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, message)
}

func (l *recordingLogger) LogRunStart(summary *models.RunSummary) { l.starts++ }

func (l *recordingLogger) LogComparison(c models.Comparison) {
	l.comps = append(l.comps, c)
}

func (l *recordingLogger) LogRunSummary(summary *models.RunSummary) { l.ends++ }
