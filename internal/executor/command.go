package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Invocation describes one subprocess call.
type Invocation struct {
	Name string   // Executable name or path
	Args []string // Arguments, not including Name
	Dir  string   // Working directory (empty = current dir)
}

// String renders the invocation the way a shell user would type it.
func (inv Invocation) String() string {
	return strings.TrimSpace(inv.Name + " " + strings.Join(inv.Args, " "))
}

// Output is what a subprocess wrote before it exited.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner abstracts subprocess execution for testability.
// Run blocks until the subprocess exits. A non-zero exit status is not an
// error; only failing to start (ErrLaunch) or timing out (ErrTimeout) is.
type CommandRunner interface {
	Run(ctx context.Context, inv Invocation) (Output, error)
}

// ExecRunner executes real subprocesses via os/exec.
type ExecRunner struct {
	Timeout time.Duration // Per-subprocess timeout (0 = none)
}

// NewExecRunner creates a CommandRunner that executes real subprocesses.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes inv and captures stdout and stderr separately.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Output, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	name, err := resolveExecutable(inv.Name, inv.Dir)
	if err != nil {
		return Output{}, fmt.Errorf("%w %s: %v", ErrLaunch, inv.Name, err)
	}

	cmd := exec.CommandContext(ctx, name, inv.Args...)
	if inv.Dir != "" {
		cmd.Dir = inv.Dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	out := Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, fmt.Errorf("%w after %v: %s", ErrTimeout, r.Timeout, inv)
		}
		return out, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		// The subprocess ran; its exit status is not part of the comparison
		return out, nil
	}

	return out, fmt.Errorf("%w %s: %v", ErrLaunch, inv.Name, runErr)
}

// resolveExecutable makes relative paths with a directory component
// absolute, so they still point at the same file when the subprocess runs
// in another working directory. Bare names are looked up on PATH by os/exec.
func resolveExecutable(name, dir string) (string, error) {
	if dir == "" || filepath.IsAbs(name) || !strings.ContainsAny(name, `/\`) {
		return name, nil
	}
	return filepath.Abs(name)
}
