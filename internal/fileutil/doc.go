// Package fileutil discovers regression test cases in a directory tree.
//
// ScanTestCases walks a root directory and groups every source file whose
// extension matches (case-sensitively) by the directory it lives in. Groups
// come back in walk order, parents before children, so callers can run
// per-directory work after the last case of a directory.
//
// Baseline directories (results_sim, results_com) are never descended into.
// Non-fatal walk errors, such as a subdirectory without read permission, are
// collected in ScanResult.Errors and scanning continues.
//
//	result, err := fileutil.ScanTestCases("tests", fileutil.ScanOptions{
//	    Extension:   "betsy",
//	    ExcludeDirs: []string{".git"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, dir := range result.Dirs {
//	    for _, tc := range dir.Cases {
//	        fmt.Println(tc.Path())
//	    }
//	}
package fileutil
