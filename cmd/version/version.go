package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreyt/sine/internal/scanner"
	"github.com/coreyt/sine/pkg/shared/config"
	"github.com/coreyt/sine/pkg/shared/logger"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"

	outputJSON bool
)

// engineProbeTimeout bounds the `semgrep --version` call.
const engineProbeTimeout = 10 * time.Second

// Versions holds version information for sine and the engine it drives.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
	EngineVersion string `json:"engine_version"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version of sine and of the semgrep engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			versions := Versions{
				Version:       CoreVersion,
				GolangVersion: GolangVersion,
				BuildTime:     BuildTime,
				EngineVersion: engineVersion(cmd.Context()),
			}
			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(versions)
			}
			printVersionInfo(cmd.OutOrStdout(), &versions)
			return nil
		},
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Print version information as JSON.")
	return cmd
}

// engineVersion asks the configured engine binary for its version.
func engineVersion(ctx context.Context) string {
	cfg := AppConfig
	if cfg == nil {
		cfg = config.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, engineProbeTimeout)
	defer cancel()

	log := logger.NewLogger(cfg, "core-version")
	v, err := scanner.New(cfg.Engine.Binary, nil, log).Version(ctx)
	if err != nil {
		log.Debug("engine version unavailable", "error", err)
		return "not installed"
	}
	return v
}

// printVersionInfo prints the version information for sine and the engine.
func printVersionInfo(w io.Writer, versions *Versions) {
	fmt.Fprintf(w, "Sine Version: v%s\n", versions.Version)
	fmt.Fprintf(w, "Semgrep Version: %s\n", versions.EngineVersion)
	fmt.Fprintf(w, "Go Version: %s\n", versions.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", versions.BuildTime)
}
