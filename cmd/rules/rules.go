package rules

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coreyt/sine/internal/rules"
	"github.com/coreyt/sine/pkg/shared"
	"github.com/coreyt/sine/pkg/shared/config"
	sherrors "github.com/coreyt/sine/pkg/shared/errors"
)

var AppConfig *config.Config

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewRulesCmd creates the rules command and its list and show subcommands.
func NewRulesCmd() *cobra.Command {
	var rulesDir string
	cmd := &cobra.Command{
		Use:                   "rules {list | show ID}",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Inspect the built-in and user rule specifications",
	}
	cmd.PersistentFlags().StringVar(&rulesDir, "rules-dir", "", "Directory with user rule specifications, merged over the built-in rules.")

	var checkType string
	list := &cobra.Command{
		Use:          "list [--type CHECK_TYPE]",
		SilenceUsage: true,
		Short:        "List loaded rules",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := loadSpecs(rulesDir)
			if err != nil {
				return err
			}
			if checkType != "" {
				specs = rules.FilterByType(specs, rules.CheckType(checkType))
			}
			return printList(cmd.OutOrStdout(), specs)
		},
	}
	list.Flags().StringVar(&checkType, "type", "", "Only list rules with this check type.")

	show := &cobra.Command{
		Use:          "show ID",
		SilenceUsage: true,
		Short:        "Print one rule specification as YAML",
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := loadSpecs(rulesDir)
			if err != nil {
				return err
			}
			spec := rules.FindByID(specs, strings.ToUpper(args[0]))
			if spec == nil {
				return sherrors.NewCommandError(fmt.Errorf("rule %q not found", args[0]), sherrors.ExitFailure)
			}
			return rules.Encode(cmd.OutOrStdout(), spec)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func loadSpecs(rulesDir string) ([]*rules.SpecFile, error) {
	cfg := AppConfig
	if cfg == nil {
		cfg = config.Default()
	}
	specs, err := rules.LoadAll(shared.StringOr(rulesDir, cfg.RulesDir))
	if err != nil {
		return nil, sherrors.NewCommandError(err, sherrors.ExitFailure)
	}
	return specs, nil
}

func printList(w io.Writer, specs []*rules.SpecFile) error {
	if len(specs) == 0 {
		_, err := fmt.Fprintln(w, "No rules found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTIER\tSEVERITY\tSOURCE\tTITLE")
	for _, s := range specs {
		source := s.Source
		if source == "" {
			source = "built-in"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", s.Rule.ID, s.Rule.Check.Type(), s.Rule.Tier, s.Rule.Severity, source, s.Rule.Title)
	}
	return tw.Flush()
}
