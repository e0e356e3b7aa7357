package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/betsytest/internal/models"
)

// ScanOptions configures test case discovery
type ScanOptions struct {
	// Extension is the source extension without leading dot (e.g., "betsy").
	// Matching is case-sensitive.
	Extension string
	// ExcludeDirs is a list of directory names that are never descended into
	ExcludeDirs []string
}

// DirCases holds the test cases found directly inside one directory
type DirCases struct {
	Dir   string
	Cases []models.TestCase
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Root is the cleaned root directory that was walked
	Root string
	// Dirs lists every visited directory in walk order (parents before children),
	// including directories without test cases
	Dirs []DirCases
	// Errors contains any errors encountered during scanning
	Errors []error
}

// Cases returns every discovered test case in walk order.
func (r *ScanResult) Cases() []models.TestCase {
	var cases []models.TestCase
	for _, d := range r.Dirs {
		cases = append(cases, d.Cases...)
	}
	return cases
}

// MatchesExtension reports whether filename is a source file for extension.
// The text after the last dot must equal extension exactly and the stem
// before it must not be empty. A file named just ".betsy" is therefore not a
// test case: its baselines would be the hidden files "results_sim/.stdout"
// and "results_sim/.stderr", so it is skipped instead.
func MatchesExtension(filename, extension string) bool {
	idx := strings.LastIndexByte(filename, '.')
	if idx <= 0 {
		return false
	}
	return filename[idx+1:] == extension
}

// ScanTestCases walks root and groups matching source files by directory.
// Directories and files are visited in lexical order. Unreadable
// subdirectories are recorded in ScanResult.Errors and skipped.
func ScanTestCases(root string, opts ScanOptions) (*ScanResult, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}
	if opts.Extension == "" {
		return nil, fmt.Errorf("source extension must not be empty")
	}

	excludeMap := make(map[string]bool)
	for _, dir := range opts.ExcludeDirs {
		excludeMap[dir] = true
	}
	for _, mode := range models.Modes {
		excludeMap[mode.ResultsDir()] = true
	}

	result := &ScanResult{
		Root:   root,
		Dirs:   make([]DirCases, 0),
		Errors: make([]error, 0),
	}
	index := make(map[string]int)

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil // Continue walking
		}

		if d.IsDir() {
			if path != root && excludeMap[d.Name()] {
				return filepath.SkipDir
			}
			index[path] = len(result.Dirs)
			result.Dirs = append(result.Dirs, DirCases{Dir: path})
			return nil
		}

		if !MatchesExtension(d.Name(), opts.Extension) {
			return nil
		}

		dir := filepath.Dir(path)
		i, ok := index[dir]
		if !ok {
			// WalkDir always visits a directory before its entries
			return fmt.Errorf("file %s visited before its directory", path)
		}
		result.Dirs[i].Cases = append(result.Dirs[i].Cases, models.NewTestCase(dir, d.Name(), opts.Extension))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return result, nil
}
