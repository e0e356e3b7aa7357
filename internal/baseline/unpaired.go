package baseline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/betsytest/internal/models"
)

// FindUnpaired returns baseline files under the results directories of dirs
// whose counterpart stream file is missing, e.g. results_sim/t1.stdout
// without results_sim/t1.stderr. Directories without results are skipped.
func FindUnpaired(dirs []string) ([]string, error) {
	var unpaired []string

	for _, dir := range dirs {
		for _, mode := range models.Modes {
			resultsDir := filepath.Join(dir, mode.ResultsDir())
			entries, err := os.ReadDir(resultsDir)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, fmt.Errorf("failed to read %s: %w", resultsDir, err)
			}

			present := make(map[string]bool)
			for _, entry := range entries {
				if !entry.IsDir() {
					present[entry.Name()] = true
				}
			}

			for name := range present {
				counterpart, ok := counterpartOf(name)
				if ok && !present[counterpart] {
					unpaired = append(unpaired, filepath.Join(resultsDir, name))
				}
			}
		}
	}

	sort.Strings(unpaired)
	return unpaired, nil
}

// counterpartOf maps "t1.stdout" to "t1.stderr" and back.
func counterpartOf(name string) (string, bool) {
	stdoutExt := "." + string(models.StreamStdout)
	stderrExt := "." + string(models.StreamStderr)

	switch {
	case strings.HasSuffix(name, stdoutExt):
		return strings.TrimSuffix(name, stdoutExt) + stderrExt, true
	case strings.HasSuffix(name, stderrExt):
		return strings.TrimSuffix(name, stderrExt) + stdoutExt, true
	default:
		return "", false
	}
}
