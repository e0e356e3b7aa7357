package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/betsytest/internal/models"
)

// ProgramOutputSeparator joins the tool's output and the compiled program's
// output in compile mode results.
const ProgramOutputSeparator = "\r\nProgram output:\r\n"

// CompileExecutor runs "<tool> com <path>", compiles the generated C source
// and runs the resulting program.
//
// The tool writes its generated source into ToolDir. Before the tool runs
// any stale copy is removed; afterwards the file is moved into a fresh
// workspace under WorkDir, where the compiler and the program run. The
// workspace is removed when Execute returns, so no artifact of one case is
// visible to the next.
type CompileExecutor struct {
	Runner          CommandRunner
	Tool            string
	Command         string   // Tool subcommand, "com" by default
	ToolDir         string   // Working directory of the tool (empty = current dir)
	CCompiler       []string // Compiler argv, run inside the workspace
	GeneratedSource string   // File the tool writes, e.g. "out.c"
	Program         string   // Executable the compiler produces, e.g. "out"
	WorkDir         string   // Parent directory of per-case workspaces
	Logger          Logger
}

// Mode implements ModeExecutor.
func (e *CompileExecutor) Mode() models.Mode {
	return models.ModeCompile
}

// generatedPath is where the tool leaves its C source.
func (e *CompileExecutor) generatedPath() string {
	return filepath.Join(e.ToolDir, e.GeneratedSource)
}

// Execute runs the three compile-mode steps and concatenates their output:
// tool stdout + separator + program stdout, and the same for stderr.
func (e *CompileExecutor) Execute(ctx context.Context, tc models.TestCase) (models.ResultPair, error) {
	if err := e.Cleanup(); err != nil {
		return models.ResultPair{}, NewCaseError(tc, models.ModeCompile, StepTool, err)
	}

	toolInv := Invocation{
		Name: e.Tool,
		Args: []string{e.Command, tc.Path()},
		Dir:  e.ToolDir,
	}
	logDebug(e.Logger, "exec: "+toolInv.String())
	toolOut, err := e.Runner.Run(ctx, toolInv)
	if err != nil {
		return models.ResultPair{}, NewCaseError(tc, models.ModeCompile, StepTool, err)
	}

	if err := os.MkdirAll(e.WorkDir, 0755); err != nil {
		return models.ResultPair{}, NewCaseError(tc, models.ModeCompile, StepCompiler,
			fmt.Errorf("failed to create work directory: %w", err))
	}
	workspace, err := os.MkdirTemp(e.WorkDir, "case-*")
	if err != nil {
		return models.ResultPair{}, NewCaseError(tc, models.ModeCompile, StepCompiler,
			fmt.Errorf("failed to create workspace: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logWarn(e.Logger, fmt.Sprintf("failed to remove workspace %s: %v", workspace, err))
		}
	}()

	moved, err := moveFile(e.generatedPath(), filepath.Join(workspace, e.GeneratedSource))
	if err != nil {
		return models.ResultPair{}, NewCaseError(tc, models.ModeCompile, StepCompiler, err)
	}
	if !moved {
		logWarn(e.Logger, fmt.Sprintf("%s: tool produced no %s", tc.Path(), e.GeneratedSource))
	}

	// Compiler output and exit status are not part of the comparison
	ccInv := Invocation{Name: e.CCompiler[0], Args: e.CCompiler[1:], Dir: workspace}
	logDebug(e.Logger, "exec: "+ccInv.String())
	if _, err := e.Runner.Run(ctx, ccInv); err != nil {
		return models.ResultPair{}, NewCaseError(tc, models.ModeCompile, StepCompiler, err)
	}

	// A compiler that produced nothing surfaces here as ErrLaunch
	progInv := Invocation{Name: filepath.Join(workspace, e.Program), Dir: workspace}
	logDebug(e.Logger, "exec: "+progInv.String())
	progOut, err := e.Runner.Run(ctx, progInv)
	if err != nil {
		return models.ResultPair{}, NewCaseError(tc, models.ModeCompile, StepProgram, err)
	}

	return ConcatResults(toolOut, progOut), nil
}

// Cleanup removes a leftover generated source from ToolDir.
func (e *CompileExecutor) Cleanup() error {
	if err := os.Remove(e.generatedPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale %s: %w", e.GeneratedSource, err)
	}
	return nil
}

// ConcatResults builds the compile-mode Result Pair from the tool's and the
// program's output.
func ConcatResults(tool, program Output) models.ResultPair {
	return models.ResultPair{
		Stdout: concat(tool.Stdout, program.Stdout),
		Stderr: concat(tool.Stderr, program.Stderr),
	}
}

func concat(toolBytes, programBytes []byte) []byte {
	out := make([]byte, 0, len(toolBytes)+len(ProgramOutputSeparator)+len(programBytes))
	out = append(out, toolBytes...)
	out = append(out, ProgramOutputSeparator...)
	out = append(out, programBytes...)
	return out
}

// moveFile moves src to dst, copying when a rename crosses filesystems.
// Returns false without error when src does not exist.
func moveFile(src, dst string) (bool, error) {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return false, nil
	}

	if err := os.Rename(src, dst); err == nil {
		return true, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return false, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return false, fmt.Errorf("failed to close %s: %w", dst, err)
	}

	in.Close()
	if err := os.Remove(src); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", src, err)
	}
	return true, nil
}
