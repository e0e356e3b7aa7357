package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/betsytest/internal/baseline"
	"github.com/harrison/betsytest/internal/config"
	"github.com/harrison/betsytest/internal/display"
	"github.com/harrison/betsytest/internal/executor"
	"github.com/harrison/betsytest/internal/filelock"
	"github.com/harrison/betsytest/internal/fileutil"
	"github.com/harrison/betsytest/internal/history"
	"github.com/harrison/betsytest/internal/logger"
	"github.com/harrison/betsytest/internal/models"
	"github.com/harrison/betsytest/internal/report"
	"github.com/spf13/cobra"
)

// ErrTestsFailed is returned by a strict verify run with mismatches.
var ErrTestsFailed = errors.New("tests failed")

// runLockPath names the lock held for the duration of a run on root. The lock
// lives in the state directory, keyed on the absolute root, so the test tree
// is never written to and two spellings of one root share a lock.
func runLockPath(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	key := uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.Clean(abs)))
	return filepath.Join(config.StateDir, "locks", key.String()+".lock"), nil
}

var policyDescriptions = map[models.Policy]struct{ short, long string }{
	models.PolicyRecord: {
		short: "Write baselines that do not exist yet",
		long: `Run every test case and write its output as the baseline wherever no
baseline file exists yet. Existing baselines are never touched.

Each written file is reported as "[REC] <path>".`,
	},
	models.PolicyUpdate: {
		short: "Overwrite every baseline with the current output",
		long: `Run every test case and overwrite both baselines of both modes with the
current output.

Each written file is reported as "[UPDATE] <path>".`,
	},
	models.PolicyVerify: {
		short: "Compare the current output against the baselines",
		long: `Run every test case and compare its output byte for byte against the
stored baselines. Each mismatch is reported as "[FAILED] <path>" followed by
the expected and actual output, and the run ends with either
"All tests passed." or "N tests failed.".

Mismatches do not change the exit code unless --strict is given. A missing
baseline aborts the run.`,
	},
}

// NewPolicyCommand creates the record, update or verify command.
func NewPolicyCommand(policy models.Policy) *cobra.Command {
	desc := policyDescriptions[policy]

	cmd := &cobra.Command{
		Use:   string(policy) + " <directory>",
		Short: desc.short,
		Long: desc.long + `

Configuration is loaded from .betsytest/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  betsytest ` + string(policy) + ` tests
  betsytest ` + string(policy) + ` --tool ./bin/betsy --timeout 30s tests`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runPolicy(cmd, policy, args[0])
		},
	}

	cmd.Flags().String("tool", "", "Tool under test (default: betsy)")
	cmd.Flags().String("extension", "", "Source file extension without dot (default: betsy)")
	cmd.Flags().String("timeout", "", "Timeout per subprocess (e.g., 30s, 2m; 0 = none)")
	cmd.Flags().Bool("strict", false, "Exit non-zero when verify finds mismatches")
	cmd.Flags().Bool("diff", false, "Print a line diff after each mismatch")
	cmd.Flags().String("report", "", "Write a Markdown (or .html) run report to this path")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	return cmd
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var o config.Overrides
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		o.LogLevel = &v
	}
	if flags.Changed("tool") {
		v, _ := flags.GetString("tool")
		o.Tool = &v
	}
	if flags.Changed("extension") {
		v, _ := flags.GetString("extension")
		o.Extension = &v
	}
	if flags.Changed("timeout") {
		s, _ := flags.GetString("timeout")
		timeout, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", s, err)
		}
		o.Timeout = &timeout
	}
	if flags.Changed("strict") {
		v, _ := flags.GetBool("strict")
		o.Strict = &v
	}
	if flags.Changed("diff") {
		v, _ := flags.GetBool("diff")
		o.Diff = &v
	}
	if flags.Changed("no-history") {
		v, _ := flags.GetBool("no-history")
		o.NoHistory = &v
	}

	cfg.MergeWithFlags(o)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runPolicy implements the record, update and verify commands
func runPolicy(cmd *cobra.Command, policy models.Policy, root string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	consoleLog := logger.NewConsoleLogger(errOut, cfg.LogLevel)
	loggers := []executor.Logger{consoleLog}

	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		consoleLog.LogWarn(fmt.Sprintf("run log disabled: %v", err))
	} else {
		defer fileLog.Close()
		loggers = append(loggers, fileLog)
		consoleLog.LogDebug("run log: " + fileLog.RunFile())
	}
	multiLog := &multiLogger{loggers: loggers}

	lockPath, err := runLockPath(root)
	if err != nil {
		return err
	}
	lock := filelock.NewFileLock(lockPath)
	if err := lock.Acquire(); err != nil {
		return fmt.Errorf("cannot start run on %s: %w", root, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			consoleLog.LogWarn(fmt.Sprintf("failed to release run lock: %v", err))
		}
	}()

	scan, err := fileutil.ScanTestCases(root, fileutil.ScanOptions{
		Extension:   cfg.Extension,
		ExcludeDirs: cfg.ExcludeDirs,
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}

	warnBeforeRun(scan, cfg, errOut, consoleLog)

	runner := executor.NewExecRunner(cfg.Timeout)
	sim := &executor.SimulateExecutor{
		Runner:  runner,
		Tool:    cfg.Tool,
		Command: cfg.SimCommand,
		Logger:  multiLog,
	}
	com := &executor.CompileExecutor{
		Runner:          runner,
		Tool:            cfg.Tool,
		Command:         cfg.ComCommand,
		CCompiler:       cfg.CCompiler,
		GeneratedSource: cfg.GeneratedSource,
		Program:         cfg.Program,
		WorkDir:         cfg.WorkDir,
		Logger:          multiLog,
	}

	reporter := baseline.NewReporter(out, logger.IsTerminal(out))
	manager := baseline.NewManager(reporter, cfg.Diff)

	orch := executor.NewOrchestrator(
		[]executor.ModeExecutor{sim, com},
		manager,
		com.Cleanup,
		out,
		multiLog,
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	summary, runErr := orch.Run(ctx, policy, scan)

	if cfg.History.Enabled && summary != nil {
		if err := saveHistory(ctx, cfg.History.DBPath, summary); err != nil {
			consoleLog.LogWarn(fmt.Sprintf("run not recorded in history: %v", err))
		}
	}

	// An aborted run still gets a report of what it compared before failing
	reportPath, _ := cmd.Flags().GetString("report")
	if reportPath != "" && summary != nil {
		if err := report.Write(reportPath, summary); err != nil {
			if runErr != nil {
				consoleLog.LogWarn(fmt.Sprintf("report not written: %v", err))
				return runErr
			}
			return err
		}
		consoleLog.LogInfo("report written to " + reportPath)
	}

	if runErr != nil {
		return runErr
	}

	if cfg.Strict && policy == models.PolicyVerify && summary.Failures > 0 {
		return fmt.Errorf("%w: %d mismatched baselines", ErrTestsFailed, summary.Failures)
	}

	return nil
}

// warnBeforeRun prints the user-facing warnings about the scanned tree.
func warnBeforeRun(scan *fileutil.ScanResult, cfg *config.Config, errOut io.Writer, log *logger.ConsoleLogger) {
	if len(scan.Cases()) == 0 {
		display.Warning{
			Title:   "No test cases found",
			Message: fmt.Sprintf("No *.%s files under %s", cfg.Extension, scan.Root),
		}.Display(errOut)
		return
	}

	dirs := make([]string, 0, len(scan.Dirs))
	for _, d := range scan.Dirs {
		dirs = append(dirs, d.Dir)
	}

	unpaired, err := baseline.FindUnpaired(dirs)
	if err != nil {
		log.LogWarn(fmt.Sprintf("unpaired baseline check skipped: %v", err))
		return
	}
	if len(unpaired) > 0 {
		display.WarnUnpairedBaselines(unpaired).Display(errOut)
	}
}

func saveHistory(ctx context.Context, dbPath string, summary *models.RunSummary) error {
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// An interrupted run is still recorded
	return store.SaveRun(context.WithoutCancel(ctx), summary)
}

// multiLogger implements executor.Logger by delegating to multiple loggers
type multiLogger struct {
	loggers []executor.Logger
}

// LogDebug forwards to all loggers
func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

// LogInfo forwards to all loggers
func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

// LogWarn forwards to all loggers
func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

// LogRunStart forwards to all loggers
func (ml *multiLogger) LogRunStart(summary *models.RunSummary) {
	for _, l := range ml.loggers {
		l.LogRunStart(summary)
	}
}

// LogComparison forwards to all loggers
func (ml *multiLogger) LogComparison(c models.Comparison) {
	for _, l := range ml.loggers {
		l.LogComparison(c)
	}
}

// LogRunSummary forwards to all loggers
func (ml *multiLogger) LogRunSummary(summary *models.RunSummary) {
	for _, l := range ml.loggers {
		l.LogRunSummary(summary)
	}
}
