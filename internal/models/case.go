package models

import (
	"fmt"
	"path/filepath"
)

// Mode identifies how the tool under test executes a source file.
type Mode string

// Execution modes, named after the tool subcommand that drives them.
const (
	ModeSimulate Mode = "sim"
	ModeCompile  Mode = "com"
)

// Modes lists every mode in the order a test case runs them.
var Modes = []Mode{ModeSimulate, ModeCompile}

// ResultsDir returns the name of the directory holding baselines for the mode.
func (m Mode) ResultsDir() string {
	return "results_" + string(m)
}

// Stream identifies one captured output stream of a Result Pair.
type Stream string

// Captured streams. The value doubles as the baseline file extension.
const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// TestCase is a single discovered source file.
type TestCase struct {
	Dir  string // Directory the file was found in, as walked
	File string // Base file name including extension
	Name string // File name minus the source extension
}

// NewTestCase builds a TestCase for file inside dir with the given source extension
// (without leading dot).
func NewTestCase(dir, file, extension string) TestCase {
	return TestCase{
		Dir:  dir,
		File: file,
		Name: file[:len(file)-len(extension)-1],
	}
}

// Path returns the source path passed to the tool.
func (tc TestCase) Path() string {
	return filepath.Join(tc.Dir, tc.File)
}

// BaselinePath returns the baseline file for the given mode and stream.
// Layout: <dir>/results_<mode>/<name>.<stream>
func (tc TestCase) BaselinePath(mode Mode, stream Stream) string {
	return filepath.Join(tc.Dir, mode.ResultsDir(), fmt.Sprintf("%s.%s", tc.Name, stream))
}

// String implements fmt.Stringer.
func (tc TestCase) String() string {
	return tc.Path()
}
