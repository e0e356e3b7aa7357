// Package display renders user-facing warnings on the terminal.
//
// Warnings are printed in yellow with optional detail lines:
//
//	warning := display.Warning{
//	    Title:      "Unpaired baselines",
//	    Message:    "Each baseline needs both a .stdout and a .stderr file",
//	    Files:      []string{"tests/results_sim/t1.stdout"},
//	    Suggestion: "Run 'betsytest update tests' to rewrite both streams",
//	}
//	warning.Display(os.Stderr)
//
// Color follows fatih/color, so NO_COLOR and non-terminal output disable it.
package display
