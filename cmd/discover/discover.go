package discover

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreyt/sine/internal/report"
	"github.com/coreyt/sine/internal/rules"
	"github.com/coreyt/sine/internal/runner"
	"github.com/coreyt/sine/pkg/shared"
	"github.com/coreyt/sine/pkg/shared/config"
	sherrors "github.com/coreyt/sine/pkg/shared/errors"
	"github.com/coreyt/sine/pkg/shared/files"
	"github.com/coreyt/sine/pkg/shared/logger"
)

// RunOptionsDiscover holds the arguments for the discover command.
type RunOptionsDiscover struct {
	RulesDir        string
	Targets         []string
	Format          string
	FailOnRuleError bool
}

var AppConfig *config.Config

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewDiscoverCmd creates the discover command.
func NewDiscoverCmd() *cobra.Command {
	var opts RunOptionsDiscover
	cmd := &cobra.Command{
		Use:                   "discover [--rules-dir PATH] [--target PATH...] [--format text|json] [--fail-on-rule-error] [PATH...]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Find instances of known patterns without reporting violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscoverCommand(cmd, &opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.RulesDir, "rules-dir", "", "Directory with user rule specifications, merged over the built-in rules.")
	cmd.Flags().StringSliceVarP(&opts.Targets, "target", "t", nil, "Path to analyse. May be repeated.")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", report.FormatText, "Output format: text or json.")
	cmd.Flags().BoolVar(&opts.FailOnRuleError, "fail-on-rule-error", false, "Fail when any rule cannot be executed by semgrep.")
	return cmd
}

func validateDiscoverArgs(opts *RunOptionsDiscover) error {
	if opts.Format != report.FormatText && opts.Format != report.FormatJSON {
		return fmt.Errorf("unsupported format %q, expected text or json", opts.Format)
	}
	return files.ValidateTargets(opts.Targets)
}

// runDiscoverCommand executes the discover command.
func runDiscoverCommand(cmd *cobra.Command, opts *RunOptionsDiscover, args []string) error {
	log := logger.NewLogger(AppConfig, "core-discover")

	cfg := AppConfig
	if cfg == nil {
		cfg = config.Default()
	}
	opts.RulesDir = shared.StringOr(opts.RulesDir, cfg.RulesDir)
	opts.Targets = shared.SliceOr(append(opts.Targets, args...), cfg.Targets)
	opts.FailOnRuleError = shared.BoolFlagOr(cmd.Flags(), "fail-on-rule-error", opts.FailOnRuleError, cfg.FailOnRuleError)

	if err := validateDiscoverArgs(opts); err != nil {
		log.Error("invalid discover arguments", "error", err)
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}

	specs, err := rules.LoadAll(opts.RulesDir)
	if err != nil {
		log.Error("failed to load rule specifications", "error", err)
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}

	r := runner.NewFromConfig(cfg, log, runner.Options{
		Mode:            runner.ModeDiscover,
		FailOnRuleError: opts.FailOnRuleError,
	})
	ctx, cancel := runner.WithEngineTimeout(cmd.Context(), cfg)
	defer cancel()

	res, runErr := r.Run(ctx, specs, opts.Targets)
	if res != nil {
		if err := report.RuleErrors(cmd.ErrOrStderr(), res.RuleErrors, "discovery"); err != nil {
			return sherrors.NewCommandError(err, sherrors.ExitFailure)
		}
	}
	if runErr != nil {
		if errors.Is(runErr, runner.ErrNoRules) {
			runErr = fmt.Errorf("no pattern discovery specifications found in %s", opts.RulesDir)
		}
		log.Error("discover command failed", "error", runErr)
		return sherrors.NewCommandError(runErr, sherrors.ExitFailure)
	}

	if opts.Format == report.FormatJSON {
		return report.InstancesJSON(cmd.OutOrStdout(), res.PatternInstances)
	}
	return report.InstancesText(cmd.OutOrStdout(), res.PatternInstances)
}
