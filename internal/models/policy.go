package models

import "fmt"

// Policy governs how captured output relates to the stored baseline.
type Policy string

// Run policies
const (
	PolicyRecord Policy = "record" // write baselines that do not exist yet
	PolicyUpdate Policy = "update" // overwrite every baseline
	PolicyVerify Policy = "verify" // compare against existing baselines
)

// ParsePolicy converts a command name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyRecord, PolicyUpdate, PolicyVerify:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unrecognized command: %s", s)
	}
}
