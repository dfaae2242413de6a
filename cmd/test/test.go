package test

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coreyt/sine/internal/report"
	"github.com/coreyt/sine/internal/rules"
	"github.com/coreyt/sine/internal/runner"
	"github.com/coreyt/sine/pkg/shared"
	"github.com/coreyt/sine/pkg/shared/config"
	sherrors "github.com/coreyt/sine/pkg/shared/errors"
	"github.com/coreyt/sine/pkg/shared/logger"
)

// RunOptionsTest holds the arguments for the test command.
type RunOptionsTest struct {
	RulesDir string
	RuleID   string
}

var AppConfig *config.Config

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewTestCmd creates the test command.
func NewTestCmd() *cobra.Command {
	var opts RunOptionsTest
	cmd := &cobra.Command{
		Use:                   "test [--rules-dir PATH] [--rule ID]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Check every rule against its own good and bad examples",
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestCommand(cmd, &opts)
		},
	}
	cmd.Flags().StringVar(&opts.RulesDir, "rules-dir", "", "Directory with user rule specifications, merged over the built-in rules.")
	cmd.Flags().StringVar(&opts.RuleID, "rule", "", "Only test the rule with this ID.")
	return cmd
}

// runTestCommand executes the test command. Failing examples exit with
// code 1, infrastructure errors with code 2.
func runTestCommand(cmd *cobra.Command, opts *RunOptionsTest) error {
	log := logger.NewLogger(AppConfig, "core-test")
	cfg := AppConfig
	if cfg == nil {
		cfg = config.Default()
	}

	specs, err := rules.LoadAll(shared.StringOr(opts.RulesDir, cfg.RulesDir))
	if err != nil {
		log.Error("failed to load rule specifications", "error", err)
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}
	if opts.RuleID != "" {
		spec := rules.FindByID(specs, strings.ToUpper(opts.RuleID))
		if spec == nil {
			return sherrors.NewCommandError(fmt.Errorf("rule %q not found", opts.RuleID), sherrors.ExitFailure)
		}
		specs = []*rules.SpecFile{spec}
	}

	r := runner.NewFromConfig(cfg, log, runner.Options{})
	ctx, cancel := runner.WithEngineTimeout(cmd.Context(), cfg)
	defer cancel()

	checks, err := r.VerifyExamples(ctx, specs)
	if err != nil {
		log.Error("test command failed", "error", err)
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}
	if len(checks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No rules with examples found.")
		return nil
	}

	failed, err := report.ExampleChecks(cmd.OutOrStdout(), checks)
	if err != nil {
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}
	if failed > 0 {
		return sherrors.NewCommandError(fmt.Errorf("%d example(s) failed", failed), sherrors.ExitNewFindings)
	}
	return nil
}
