package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/betsytest/internal/fileutil"
	"github.com/harrison/betsytest/internal/models"
)

// Logger defines the interface for logging orchestrator progress and results.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogRunStart(summary *models.RunSummary)
	LogComparison(c models.Comparison)
	LogRunSummary(summary *models.RunSummary)
}

// BaselineApplier applies the run policy to one captured Result Pair and
// reports the outcome of each stream, stdout first.
type BaselineApplier interface {
	Apply(policy models.Policy, tc models.TestCase, mode models.Mode, pair models.ResultPair) ([]models.Comparison, error)
	Finish(summary *models.RunSummary)
}

// Orchestrator walks the discovered test cases, runs every mode executor on
// each case and hands the results to the baseline manager. Execution is
// strictly sequential.
type Orchestrator struct {
	executors []ModeExecutor
	baselines BaselineApplier
	cleanup   func() error
	out       io.Writer
	logger    Logger
}

// NewOrchestrator creates a new Orchestrator instance.
// Discovered file paths are printed to out. cleanup runs after the last
// case of every directory and may be nil. The logger parameter may be nil.
func NewOrchestrator(executors []ModeExecutor, baselines BaselineApplier, cleanup func() error, out io.Writer, logger Logger) *Orchestrator {
	if len(executors) == 0 {
		panic("at least one mode executor is required")
	}
	if baselines == nil {
		panic("baseline applier cannot be nil")
	}
	if out == nil {
		out = io.Discard
	}

	return &Orchestrator{
		executors: executors,
		baselines: baselines,
		cleanup:   cleanup,
		out:       out,
		logger:    logger,
	}
}

// Run executes every case of scan under policy.
// It handles SIGINT/SIGTERM by canceling the running subprocess. The
// returned summary is non-nil even when err is not, and then covers the
// cases completed before the failure.
func (o *Orchestrator) Run(ctx context.Context, policy models.Policy, scan *fileutil.ScanResult) (*models.RunSummary, error) {
	if scan == nil {
		return nil, fmt.Errorf("scan result cannot be nil")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logWarn(o.logger, "Received interrupt signal, stopping run...")
			cancel()
		case <-ctx.Done():
		}
	}()

	summary := &models.RunSummary{
		RunID:     uuid.New().String(),
		Policy:    policy,
		Root:      scan.Root,
		StartedAt: time.Now(),
	}
	if o.logger != nil {
		o.logger.LogRunStart(summary)
	}

	for _, scanErr := range scan.Errors {
		logWarn(o.logger, scanErr.Error())
	}

	err := o.runDirs(ctx, policy, scan, summary)

	summary.FinishedAt = time.Now()
	if err != nil {
		summary.Aborted = err.Error()
		return summary, err
	}

	o.baselines.Finish(summary)
	if o.logger != nil {
		o.logger.LogRunSummary(summary)
	}

	return summary, nil
}

func (o *Orchestrator) runDirs(ctx context.Context, policy models.Policy, scan *fileutil.ScanResult, summary *models.RunSummary) error {
	for _, dir := range scan.Dirs {
		for _, tc := range dir.Cases {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			fmt.Fprintln(o.out, tc.Path())
			summary.Cases++

			if err := o.runCase(ctx, policy, tc, summary); err != nil {
				return err
			}
		}

		if o.cleanup != nil {
			if err := o.cleanup(); err != nil {
				return fmt.Errorf("cleanup after %s: %w", dir.Dir, err)
			}
		}
	}
	return nil
}

// runCase runs every mode in order and applies the policy to each result.
func (o *Orchestrator) runCase(ctx context.Context, policy models.Policy, tc models.TestCase, summary *models.RunSummary) error {
	for _, ex := range o.executors {
		pair, err := ex.Execute(ctx, tc)
		if err != nil {
			return err
		}

		comparisons, err := o.baselines.Apply(policy, tc, ex.Mode(), pair)
		if err != nil {
			return NewCaseError(tc, ex.Mode(), StepBaseline, err)
		}

		for _, c := range comparisons {
			summary.Add(c)
			if o.logger != nil {
				o.logger.LogComparison(c)
			}
		}
	}
	return nil
}

func logDebug(l Logger, message string) {
	if l != nil {
		l.LogDebug(message)
	}
}

func logWarn(l Logger, message string) {
	if l != nil {
		l.LogWarn(message)
	}
}
