package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/betsytest/internal/models"
)

// ErrLaunch indicates a subprocess could not be started (missing executable,
// permission denied). Launch failures abort the run.
var ErrLaunch = errors.New("failed to launch")

// ErrTimeout indicates a subprocess exceeded the configured timeout.
var ErrTimeout = errors.New("subprocess timed out")

// Step names the subprocess of a test case that failed.
type Step string

// Subprocess steps of a test case
const (
	StepTool     Step = "tool"
	StepCompiler Step = "compiler"
	StepProgram  Step = "program"
	StepBaseline Step = "baseline"
)

// CaseError represents a fatal error while running a test case.
// It includes context about which case, mode and step failed.
type CaseError struct {
	Case      models.TestCase
	Mode      models.Mode
	Step      Step
	Err       error
	Timestamp time.Time
}

// NewCaseError creates a new CaseError with the current timestamp.
func NewCaseError(tc models.TestCase, mode models.Mode, step Step, err error) *CaseError {
	return &CaseError{
		Case:      tc,
		Mode:      mode,
		Step:      step,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for CaseError.
func (e *CaseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s [%s] %s step", e.Case.Path(), e.Mode, e.Step))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *CaseError) Unwrap() error {
	return e.Err
}
