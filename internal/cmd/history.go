package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/betsytest/internal/history"
	"github.com/harrison/betsytest/internal/models"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'betsytest history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Without arguments, list the most recent runs recorded in the history
database. With a run id (or a unique prefix of one), list the written and
failed baselines of that run.

Examples:
  betsytest history
  betsytest history --limit 50
  betsytest history 3f1c2a9e
  betsytest history 3f1c2a9e --all
  betsytest history --prune 720h   # delete runs older than 30 days`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runHistory(cmd, args)
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().Bool("all", false, "Also list passed and skipped baselines")
	cmd.Flags().String("prune", "", "Delete runs older than this duration (e.g., 720h) and exit")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded yet (%s does not exist).\n", cfg.History.DBPath)
		return nil
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	if prune, _ := cmd.Flags().GetString("prune"); prune != "" {
		age, err := time.ParseDuration(prune)
		if err != nil || age <= 0 {
			return fmt.Errorf("invalid prune duration %q", prune)
		}
		n, err := store.DeleteRunsBefore(cmd.Context(), time.Now().Add(-age))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s) older than %s.\n", n, age)
		return nil
	}

	if len(args) == 1 {
		all, _ := cmd.Flags().GetBool("all")
		return showRun(cmd, store, args[0], all)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	return listRuns(cmd, store, limit)
}

func listRuns(cmd *cobra.Command, store *history.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tPOLICY\tSTARTED\tDURATION\tCASES\tFAILURES\tROOT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(r.ID),
			r.Policy,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Millisecond),
			r.Cases,
			failureCell(r),
			r.Root)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, store *history.Store, id string, all bool) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	comps, err := store.GetComparisons(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Policy:   %s\n", run.Policy)
	fmt.Fprintf(out, "Root:     %s\n", run.Root)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "Cases:    %d\n", run.Cases)
	fmt.Fprintf(out, "Failures: %d\n", run.Failures)

	var listed []history.ComparisonRecord
	for _, c := range comps {
		if all || (c.Outcome != models.OutcomePassed && c.Outcome != models.OutcomeSkipped) {
			listed = append(listed, c)
		}
	}
	if len(listed) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	for _, c := range listed {
		fmt.Fprintf(out, "%s  %s\n", outcomeCell(c.Outcome), c.BaselinePath)
	}
	return nil
}

// shortID trims a UUID to its first group, which is what users type.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func failureCell(r history.RunRecord) string {
	if r.Policy != models.PolicyVerify {
		return "-"
	}
	return fmt.Sprintf("%d", r.Failures)
}

// outcomeCell pads before coloring so escape codes do not break alignment.
func outcomeCell(o models.Outcome) string {
	label := fmt.Sprintf("%-8s", strings.ToUpper(string(o)))
	switch o {
	case models.OutcomeFailed:
		return color.New(color.FgRed).Sprint(label)
	case models.OutcomeRecorded, models.OutcomeUpdated:
		return color.New(color.FgGreen).Sprint(label)
	default:
		return label
	}
}
