package check

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/coreyt/sine/cmd/version"
	"github.com/coreyt/sine/internal/ci"
	"github.com/coreyt/sine/internal/git"
	"github.com/coreyt/sine/internal/metrics"
	"github.com/coreyt/sine/internal/report"
	"github.com/coreyt/sine/internal/rules"
	"github.com/coreyt/sine/internal/runner"
	"github.com/coreyt/sine/internal/sarif"
	"github.com/coreyt/sine/pkg/shared/config"
	sherrors "github.com/coreyt/sine/pkg/shared/errors"
	"github.com/coreyt/sine/pkg/shared/files"
	"github.com/coreyt/sine/pkg/shared/logger"
)

// RunOptionsCheck holds the arguments for the check command.
type RunOptionsCheck struct {
	RulesDir        string
	Targets         []string
	Format          string
	DryRun          bool
	UpdateBaseline  bool
	BaselinePath    string
	FailOnRuleError bool
	OutputPath      string
	MetricsFile     string
}

var (
	AppConfig         *config.Config
	exampleCheckUsage = `  # Check the current directory with built-in and .sine-rules rules
  sine check

  # Check specific paths and print findings as SARIF
  sine check --target src --target lib --format sarif --output sine.sarif

  # Show the generated semgrep config without running semgrep
  sine check --dry-run

  # Accept all current findings into the baseline
  sine check --update-baseline`
)

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	var opts RunOptionsCheck
	cmd := &cobra.Command{
		Use:                   "check [--rules-dir PATH] [--target PATH...] [--format text|json|sarif] [--dry-run | --update-baseline] [--baseline PATH] [--fail-on-rule-error] [--output PATH] [--metrics-file PATH] [PATH...]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example:               exampleCheckUsage,
		Short:                 "Run structural guideline checks on the codebase",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckCommand(cmd, &opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.RulesDir, "rules-dir", "", "Directory with user rule specifications, merged over the built-in rules.")
	cmd.Flags().StringSliceVarP(&opts.Targets, "target", "t", nil, "Path to check. May be repeated.")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json or sarif.")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the generated semgrep config and command instead of running it.")
	cmd.Flags().BoolVar(&opts.UpdateBaseline, "update-baseline", false, "Replace the baseline with the current findings.")
	cmd.Flags().StringVar(&opts.BaselinePath, "baseline", "", "Path to the baseline file.")
	cmd.Flags().BoolVar(&opts.FailOnRuleError, "fail-on-rule-error", false, "Fail when any rule cannot be executed by semgrep.")
	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "Write the report to this file instead of stdout.")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics in the Prometheus text format to this file.")
	return cmd
}

// runCheckCommand executes the check command.
func runCheckCommand(cmd *cobra.Command, opts *RunOptionsCheck, args []string) error {
	log := logger.NewLogger(AppConfig, "core-check")

	resolveCheckOptions(opts, cmd.Flags(), args, AppConfig)
	if err := validateCheckArgs(opts); err != nil {
		log.Error("invalid check arguments", "error", err)
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}

	specs, err := rules.LoadAll(opts.RulesDir)
	if err != nil {
		log.Error("failed to load rule specifications", "error", err)
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}

	mode := runner.ModeEnforce
	switch {
	case opts.DryRun:
		mode = runner.ModeDryRun
	case opts.UpdateBaseline:
		mode = runner.ModeUpdateBaseline
	}
	r := runner.NewFromConfig(AppConfig, log, runner.Options{
		Mode:            mode,
		BaselinePath:    opts.BaselinePath,
		FailOnRuleError: opts.FailOnRuleError,
	})

	ctx, cancel := runner.WithEngineTimeout(cmd.Context(), AppConfig)
	defer cancel()

	start := time.Now()
	res, runErr := r.Run(ctx, specs, opts.Targets)
	if opts.MetricsFile != "" && res != nil {
		collector := metrics.NewCollector(nil)
		collector.Record(res, mode, time.Since(start))
		if err := collector.WriteTextfile(opts.MetricsFile); err != nil {
			log.Warn("failed to write metrics", "path", opts.MetricsFile, "error", err)
		}
	}
	if res != nil {
		if err := report.RuleErrors(cmd.ErrOrStderr(), res.RuleErrors, ""); err != nil {
			return sherrors.NewCommandError(err, sherrors.ExitFailure)
		}
	}
	if runErr != nil {
		if errors.Is(runErr, runner.ErrNoRules) {
			runErr = fmt.Errorf("no rule specifications found (neither built-in nor user rules)")
		}
		log.Error("check command failed", "error", runErr)
		return sherrors.NewCommandError(runErr, sherrors.ExitFailure)
	}

	out := cmd.OutOrStdout()
	switch mode {
	case runner.ModeDryRun:
		fmt.Fprintln(out, res.DryRun)
		return nil
	case runner.ModeUpdateBaseline:
		fmt.Fprintf(out, "Baseline updated with %d findings\n", len(res.AllFindings))
		return nil
	}

	if err := writeReport(out, opts, res, log); err != nil {
		log.Error("failed to write report", "error", err)
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}

	if len(res.NewFindings) > 0 {
		if opts.Format == report.FormatText {
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%d new violation(s) found\n", len(res.NewFindings))
		}
		return sherrors.ErrNewFindings
	}
	if opts.Format == report.FormatText {
		fmt.Fprintln(out, "\nNo new violations")
	}
	log.Debug("check command completed", "run_id", res.RunID, "known", len(res.KnownFindings), "fixed", len(res.FixedEntries))
	return nil
}

// writeReport renders all findings in the requested format, to the output
// file when one is set.
func writeReport(stdout io.Writer, opts *RunOptionsCheck, res *runner.Result, log hclog.Logger) error {
	var buf bytes.Buffer
	var err error
	switch opts.Format {
	case report.FormatJSON:
		err = report.FindingsJSON(&buf, res.AllFindings)
	case report.FormatSARIF:
		err = sarif.Write(&buf, res.AllFindings, sarif.Meta{
			RunID:       res.RunID,
			ToolVersion: version.CoreVersion,
			Repository:  repositoryMetadata(opts.Targets, log),
		})
	default:
		err = report.FindingsText(&buf, res.AllFindings)
	}
	if err != nil {
		return err
	}

	if opts.OutputPath == "" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	path, err := files.ExpandPath(opts.OutputPath)
	if err != nil {
		return err
	}
	if err := files.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	log.Info("report saved to file", "path", path, "format", opts.Format)
	return nil
}

// repositoryMetadata describes the checkout holding the first target. Gaps
// are filled from CI variables; nil means neither source knows the checkout.
func repositoryMetadata(targets []string, log hclog.Logger) *git.RepositoryMetadata {
	var md *git.RepositoryMetadata
	if len(targets) > 0 {
		found, err := git.CollectRepositoryMetadata(targets[0])
		if err != nil {
			log.Debug("no git metadata for sarif report", "target", targets[0], "error", err)
		} else {
			md = found
		}
	}
	env := ci.Detect(os.Getenv)
	if env.Kind != ci.Unknown {
		log.Debug("filling repository metadata from ci", "ci", env.Kind.String())
	}
	return env.Fill(md)
}
