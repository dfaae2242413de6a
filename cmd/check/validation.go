package check

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/coreyt/sine/pkg/shared"
	"github.com/coreyt/sine/pkg/shared/config"
	"github.com/coreyt/sine/pkg/shared/files"
)

// resolveCheckOptions fills options left unset on the command line from cfg.
func resolveCheckOptions(opts *RunOptionsCheck, flags *pflag.FlagSet, args []string, cfg *config.Config) {
	if cfg == nil {
		cfg = config.Default()
	}
	opts.RulesDir = shared.StringOr(opts.RulesDir, cfg.RulesDir)
	opts.Format = shared.StringOr(opts.Format, cfg.Format)
	opts.BaselinePath = shared.StringOr(opts.BaselinePath, cfg.BaselinePath)
	opts.MetricsFile = shared.StringOr(opts.MetricsFile, cfg.MetricsFile)
	opts.Targets = shared.SliceOr(append(opts.Targets, args...), cfg.Targets)
	opts.FailOnRuleError = shared.BoolFlagOr(flags, "fail-on-rule-error", opts.FailOnRuleError, cfg.FailOnRuleError)
}

// validateCheckArgs validates the arguments provided to the check command.
func validateCheckArgs(opts *RunOptionsCheck) error {
	if opts.DryRun && opts.UpdateBaseline {
		return fmt.Errorf("the 'dry-run' and 'update-baseline' flags cannot be used together")
	}
	if err := config.ValidateFormat(opts.Format); err != nil {
		return err
	}
	if opts.OutputPath != "" {
		if info, err := os.Stat(opts.OutputPath); err == nil && info.IsDir() {
			return fmt.Errorf("the output path %q is a directory", opts.OutputPath)
		}
	}
	return files.ValidateTargets(opts.Targets)
}
