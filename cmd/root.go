package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreyt/sine/cmd/check"
	"github.com/coreyt/sine/cmd/discover"
	"github.com/coreyt/sine/cmd/rules"
	"github.com/coreyt/sine/cmd/test"
	"github.com/coreyt/sine/cmd/version"
	"github.com/coreyt/sine/pkg/shared/config"
	sherrors "github.com/coreyt/sine/pkg/shared/errors"
)

var AppConfig *config.Config

// newRootCmd assembles the command tree.
func newRootCmd() *cobra.Command {
	var cfgFile, logLevel string
	rootCmd := &cobra.Command{
		Use:                   "sine [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Sine enforces structural coding guidelines with semgrep.",
		Long: `Sine compiles guideline specifications into semgrep rules, runs semgrep over
	the codebase and reports violations that are not covered by the baseline.
	`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile, logLevel)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is sine.yml, or $SINE_CONFIG).")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn or error.")

	rootCmd.AddCommand(
		check.NewCheckCmd(),
		discover.NewDiscoverCmd(),
		rules.NewRulesCmd(),
		test.NewTestCmd(),
		version.NewVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, sherrors.ErrNewFindings) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return sherrors.ExitCode(err)
}

func initConfig(cfgFile, logLevel string) error {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}
	if logLevel != "" {
		AppConfig.Logger.Level = logLevel
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		return sherrors.NewCommandError(err, sherrors.ExitFailure)
	}

	check.Init(AppConfig)
	discover.Init(AppConfig)
	rules.Init(AppConfig)
	test.Init(AppConfig)
	version.Init(AppConfig)
	return nil
}
