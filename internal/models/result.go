package models

import "time"

// ResultPair holds the bytes captured from one execution mode.
type ResultPair struct {
	Stdout []byte
	Stderr []byte
}

// Bytes returns the captured bytes for stream.
func (rp ResultPair) Bytes(stream Stream) []byte {
	if stream == StreamStderr {
		return rp.Stderr
	}
	return rp.Stdout
}

// Outcome describes what happened to a single baseline stream.
type Outcome string

// Comparison outcomes
const (
	OutcomeRecorded Outcome = "recorded" // record policy wrote a new baseline
	OutcomeSkipped  Outcome = "skipped"  // record policy left an existing baseline alone
	OutcomeUpdated  Outcome = "updated"  // update policy overwrote the baseline
	OutcomePassed   Outcome = "passed"   // verify policy found identical bytes
	OutcomeFailed   Outcome = "failed"   // verify policy found a mismatch
)

// Comparison is the result of applying the run policy to one captured stream.
type Comparison struct {
	Case         TestCase
	Mode         Mode
	Stream       Stream
	BaselinePath string
	Outcome      Outcome
}

// RunSummary is the aggregate result of one harness run.
type RunSummary struct {
	RunID       string
	Policy      Policy
	Root        string
	StartedAt   time.Time
	FinishedAt  time.Time
	Cases       int
	Failures    int
	Comparisons []Comparison
	Aborted     string // Error that ended the run early, empty otherwise
}

// Duration returns how long the run took.
func (rs *RunSummary) Duration() time.Duration {
	return rs.FinishedAt.Sub(rs.StartedAt)
}

// Add appends a comparison and bumps the failure counter on mismatch.
func (rs *RunSummary) Add(c Comparison) {
	rs.Comparisons = append(rs.Comparisons, c)
	if c.Outcome == OutcomeFailed {
		rs.Failures++
	}
}

// Count returns the number of comparisons with the given outcome.
func (rs *RunSummary) Count(outcome Outcome) int {
	n := 0
	for _, c := range rs.Comparisons {
		if c.Outcome == outcome {
			n++
		}
	}
	return n
}

// Passed reports whether no stream comparison failed.
func (rs *RunSummary) Passed() bool {
	return rs.Failures == 0
}
