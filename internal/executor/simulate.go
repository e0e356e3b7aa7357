package executor

import (
	"context"

	"github.com/harrison/betsytest/internal/models"
)

// ModeExecutor runs one execution mode of a test case.
type ModeExecutor interface {
	Mode() models.Mode
	Execute(ctx context.Context, tc models.TestCase) (models.ResultPair, error)
}

// SimulateExecutor runs "<tool> sim <path>" and captures both streams.
type SimulateExecutor struct {
	Runner  CommandRunner
	Tool    string
	Command string // Tool subcommand, "sim" by default
	ToolDir string // Working directory of the tool (empty = current dir)
	Logger  Logger
}

// Mode implements ModeExecutor.
func (e *SimulateExecutor) Mode() models.Mode {
	return models.ModeSimulate
}

// Execute runs the tool in simulate mode. The exit code is ignored; only
// the captured bytes matter.
func (e *SimulateExecutor) Execute(ctx context.Context, tc models.TestCase) (models.ResultPair, error) {
	inv := Invocation{
		Name: e.Tool,
		Args: []string{e.Command, tc.Path()},
		Dir:  e.ToolDir,
	}
	logDebug(e.Logger, "exec: "+inv.String())

	out, err := e.Runner.Run(ctx, inv)
	if err != nil {
		return models.ResultPair{}, NewCaseError(tc, models.ModeSimulate, StepTool, err)
	}

	return models.ResultPair{Stdout: out.Stdout, Stderr: out.Stderr}, nil
}
