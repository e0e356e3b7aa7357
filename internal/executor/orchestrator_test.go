package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/harrison/betsytest/internal/fileutil"
	"github.com/harrison/betsytest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor returns fixed output for its mode and records the order it
// was called in through a shared log.
type fakeExecutor struct {
	mode models.Mode
	log  *[]string
	err  error
	fail string // case path that triggers err
}

func (e *fakeExecutor) Mode() models.Mode { return e.mode }

func (e *fakeExecutor) Execute(ctx context.Context, tc models.TestCase) (models.ResultPair, error) {
	*e.log = append(*e.log, fmt.Sprintf("%s %s", e.mode, tc.Path()))
	if e.err != nil && tc.Path() == e.fail {
		return models.ResultPair{}, e.err
	}
	return models.ResultPair{Stdout: []byte(string(e.mode)), Stderr: nil}, nil
}

// fakeApplier reports a fixed outcome per stream and counts Finish calls.
type fakeApplier struct {
	outcome  models.Outcome
	err      error
	applied  []models.Mode
	finished int
}

func (a *fakeApplier) Apply(policy models.Policy, tc models.TestCase, mode models.Mode, pair models.ResultPair) ([]models.Comparison, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.applied = append(a.applied, mode)
	var comps []models.Comparison
	for _, stream := range []models.Stream{models.StreamStdout, models.StreamStderr} {
		comps = append(comps, models.Comparison{
			Case:         tc,
			Mode:         mode,
			Stream:       stream,
			BaselinePath: tc.BaselinePath(mode, stream),
			Outcome:      a.outcome,
		})
	}
	return comps, nil
}

func (a *fakeApplier) Finish(summary *models.RunSummary) { a.finished++ }

func twoDirScan() *fileutil.ScanResult {
	return &fileutil.ScanResult{
		Root: "tests",
		Dirs: []fileutil.DirCases{
			{Dir: "tests", Cases: []models.TestCase{
				models.NewTestCase("tests", "a.betsy", "betsy"),
				models.NewTestCase("tests", "b.betsy", "betsy"),
			}},
			{Dir: "tests/sub", Cases: []models.TestCase{
				models.NewTestCase("tests/sub", "c.betsy", "betsy"),
			}},
		},
	}
}

func newFakeExecutors(log *[]string) []ModeExecutor {
	return []ModeExecutor{
		&fakeExecutor{mode: models.ModeSimulate, log: log},
		&fakeExecutor{mode: models.ModeCompile, log: log},
	}
}

func TestOrchestrator_RunsCasesInOrder(t *testing.T) {
	var log []string
	cleanups := 0
	out := &bytes.Buffer{}
	applier := &fakeApplier{outcome: models.OutcomeRecorded}
	logger := &recordingLogger{}

	orch := NewOrchestrator(newFakeExecutors(&log), applier, func() error {
		cleanups++
		log = append(log, "cleanup")
		return nil
	}, out, logger)

	scan := twoDirScan()
	summary, err := orch.Run(context.Background(), models.PolicyRecord, scan)
	require.NoError(t, err)

	a := scan.Dirs[0].Cases[0].Path()
	b := scan.Dirs[0].Cases[1].Path()
	c := scan.Dirs[1].Cases[0].Path()
	assert.Equal(t, []string{
		"sim " + a, "com " + a,
		"sim " + b, "com " + b,
		"cleanup",
		"sim " + c, "com " + c,
		"cleanup",
	}, log)
	assert.Equal(t, 2, cleanups)

	assert.Equal(t, a+"\n"+b+"\n"+c+"\n", out.String())

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, models.PolicyRecord, summary.Policy)
	assert.Equal(t, "tests", summary.Root)
	assert.Equal(t, 3, summary.Cases)
	assert.Equal(t, 12, summary.Count(models.OutcomeRecorded))
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	assert.Equal(t, 1, applier.finished)
	assert.Equal(t, 1, logger.starts)
	assert.Equal(t, 1, logger.ends)
	assert.Len(t, logger.comps, 12)
}

func TestOrchestrator_CountsFailures(t *testing.T) {
	var log []string
	applier := &fakeApplier{outcome: models.OutcomeFailed}
	orch := NewOrchestrator(newFakeExecutors(&log), applier, nil, nil, nil)

	summary, err := orch.Run(context.Background(), models.PolicyVerify, twoDirScan())
	require.NoError(t, err)

	assert.Equal(t, 12, summary.Failures)
	assert.False(t, summary.Passed())
}

func TestOrchestrator_EmptyScan(t *testing.T) {
	var log []string
	applier := &fakeApplier{outcome: models.OutcomePassed}
	out := &bytes.Buffer{}
	orch := NewOrchestrator(newFakeExecutors(&log), applier, nil, out, nil)

	summary, err := orch.Run(context.Background(), models.PolicyVerify, &fileutil.ScanResult{Root: "empty"})
	require.NoError(t, err)

	assert.Zero(t, summary.Cases)
	assert.True(t, summary.Passed())
	assert.Empty(t, out.String())
	assert.Equal(t, 1, applier.finished)
}

func TestOrchestrator_ExecutorErrorAbortsRun(t *testing.T) {
	var log []string
	scan := twoDirScan()
	failing := scan.Dirs[0].Cases[1].Path()
	launchErr := fmt.Errorf("%w cc: not found", ErrLaunch)

	executors := []ModeExecutor{
		&fakeExecutor{mode: models.ModeSimulate, log: &log},
		&fakeExecutor{mode: models.ModeCompile, log: &log, err: launchErr, fail: failing},
	}
	applier := &fakeApplier{outcome: models.OutcomeRecorded}
	orch := NewOrchestrator(executors, applier, nil, nil, nil)

	summary, err := orch.Run(context.Background(), models.PolicyRecord, scan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLaunch))

	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Cases)
	assert.Equal(t, 6, summary.Count(models.OutcomeRecorded), "only completed modes are counted")
	assert.Zero(t, applier.finished)
	assert.Equal(t, err.Error(), summary.Aborted)
	assert.NotContains(t, log, "sim "+scan.Dirs[1].Cases[0].Path())
}

func TestOrchestrator_BaselineErrorIsWrapped(t *testing.T) {
	var log []string
	applier := &fakeApplier{err: errors.New("baseline missing")}
	orch := NewOrchestrator(newFakeExecutors(&log), applier, nil, nil, nil)

	_, err := orch.Run(context.Background(), models.PolicyVerify, twoDirScan())
	require.Error(t, err)

	var caseErr *CaseError
	require.True(t, errors.As(err, &caseErr))
	assert.Equal(t, StepBaseline, caseErr.Step)
	assert.Equal(t, models.ModeSimulate, caseErr.Mode)
}

func TestOrchestrator_CleanupErrorAbortsRun(t *testing.T) {
	var log []string
	applier := &fakeApplier{outcome: models.OutcomeRecorded}
	orch := NewOrchestrator(newFakeExecutors(&log), applier, func() error {
		return errors.New("permission denied")
	}, nil, nil)

	_, err := orch.Run(context.Background(), models.PolicyRecord, twoDirScan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup after tests")
}

func TestOrchestrator_CanceledContext(t *testing.T) {
	var log []string
	applier := &fakeApplier{outcome: models.OutcomeRecorded}
	orch := NewOrchestrator(newFakeExecutors(&log), applier, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := orch.Run(ctx, models.PolicyRecord, twoDirScan())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Cases)
	assert.Empty(t, log)
}

func TestOrchestrator_ScanErrorsAreWarnings(t *testing.T) {
	var log []string
	logger := &recordingLogger{}
	scan := twoDirScan()
	scan.Errors = []error{errors.New("tests/locked: permission denied")}

	orch := NewOrchestrator(newFakeExecutors(&log), &fakeApplier{outcome: models.OutcomePassed}, nil, nil, logger)
	_, err := orch.Run(context.Background(), models.PolicyVerify, scan)
	require.NoError(t, err)

	assert.Contains(t, logger.warns, "tests/locked: permission denied")
}

func TestOrchestrator_NilScan(t *testing.T) {
	var log []string
	orch := NewOrchestrator(newFakeExecutors(&log), &fakeApplier{}, nil, nil, nil)

	_, err := orch.Run(context.Background(), models.PolicyVerify, nil)
	assert.Error(t, err)
}

func TestNewOrchestrator_Panics(t *testing.T) {
	var log []string
	assert.Panics(t, func() { NewOrchestrator(nil, &fakeApplier{}, nil, nil, nil) })
	assert.Panics(t, func() { NewOrchestrator(newFakeExecutors(&log), nil, nil, nil, nil) })
}
