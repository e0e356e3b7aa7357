package cmd

import (
	"github.com/harrison/betsytest/internal/models"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for betsytest
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "betsytest",
		Short: "Golden-file regression harness for the betsy compiler",
		Long: `betsytest runs every .betsy file under a directory through the betsy
tool in simulate mode and in compile mode, and compares what the tool and the
compiled program print against baselines stored next to the sources in
results_sim/ and results_com/.

Baselines are created with "record", rewritten with "update" and checked with
"verify".`,
		Version: Version,
		// main prints the error; usage is only shown for argument errors
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .betsytest/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewPolicyCommand(models.PolicyRecord))
	cmd.AddCommand(NewPolicyCommand(models.PolicyUpdate))
	cmd.AddCommand(NewPolicyCommand(models.PolicyVerify))
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
