// Package baseline applies the record, update and verify policies to
// captured output and reports the result lines of a run.
package baseline

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/harrison/betsytest/internal/filelock"
	"github.com/harrison/betsytest/internal/models"
)

// ErrBaselineMissing indicates verify found no baseline to compare against.
// The wrapped error also matches fs.ErrNotExist.
var ErrBaselineMissing = errors.New("baseline missing")

// streams is the fixed order streams are handled in.
var streams = []models.Stream{models.StreamStdout, models.StreamStderr}

// Manager reads and writes baselines under the results directories of each
// test case.
type Manager struct {
	reporter *Reporter
	diff     bool
}

// NewManager creates a Manager. When diff is set, every mismatch dump is
// followed by a line diff.
func NewManager(reporter *Reporter, diff bool) *Manager {
	return &Manager{reporter: reporter, diff: diff}
}

// Apply handles both streams of pair for one mode of tc, stdout first.
func (m *Manager) Apply(policy models.Policy, tc models.TestCase, mode models.Mode, pair models.ResultPair) ([]models.Comparison, error) {
	comparisons := make([]models.Comparison, 0, len(streams))

	for _, stream := range streams {
		path := tc.BaselinePath(mode, stream)
		data := pair.Bytes(stream)

		var outcome models.Outcome
		var err error
		switch policy {
		case models.PolicyRecord:
			outcome, err = m.record(path, data)
		case models.PolicyUpdate:
			outcome, err = m.update(path, data)
		case models.PolicyVerify:
			outcome, err = m.verify(path, data)
		default:
			err = fmt.Errorf("unknown policy %q", policy)
		}
		if err != nil {
			return comparisons, err
		}

		comparisons = append(comparisons, models.Comparison{
			Case:         tc,
			Mode:         mode,
			Stream:       stream,
			BaselinePath: path,
			Outcome:      outcome,
		})
	}

	return comparisons, nil
}

// Finish prints the closing summary line of a verify run.
func (m *Manager) Finish(summary *models.RunSummary) {
	if summary.Policy == models.PolicyVerify {
		m.reporter.Summary(summary)
	}
}

// record writes data only when no baseline exists yet.
func (m *Manager) record(path string, data []byte) (models.Outcome, error) {
	_, err := os.Stat(path)
	if err == nil {
		return models.OutcomeSkipped, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check baseline %s: %w", path, err)
	}

	m.reporter.Recorded(path)
	if err := filelock.AtomicWrite(path, data); err != nil {
		return "", fmt.Errorf("failed to record baseline: %w", err)
	}
	return models.OutcomeRecorded, nil
}

// update always overwrites the baseline.
func (m *Manager) update(path string, data []byte) (models.Outcome, error) {
	m.reporter.Updated(path)
	if err := filelock.AtomicWrite(path, data); err != nil {
		return "", fmt.Errorf("failed to update baseline: %w", err)
	}
	return models.OutcomeUpdated, nil
}

// verify compares data with the stored baseline byte for byte.
func (m *Manager) verify(path string, data []byte) (models.Outcome, error) {
	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s: %w", ErrBaselineMissing, path, err)
		}
		return "", fmt.Errorf("failed to read baseline %s: %w", path, err)
	}

	if bytes.Equal(expected, data) {
		return models.OutcomePassed, nil
	}

	m.reporter.Failed(path, expected, data)
	if m.diff {
		m.reporter.Diff(expected, data)
	}
	return models.OutcomeFailed, nil
}
