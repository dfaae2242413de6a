package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

const (
	// ConfigFileName is the name of the rule file handed to the engine.
	ConfigFileName = "semgrep.yaml"
	tempDirPattern = "sine-*"

	// DryRunHeader opens the dry-run preview.
	DryRunHeader = "[Tier 1: Semgrep Rules]"
)

// ErrEngineNotFound is returned when the engine binary cannot be started.
var ErrEngineNotFound = errors.New("semgrep executable not found; install it with `pip install semgrep` or set engine.binary")

// ExecutionError is returned when the engine exits with a status outside 0, 1 and 2.
type ExecutionError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("semgrep execution failed with code %d:\n%s", e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Execution is the outcome of one engine invocation, or of a dry run.
type Execution struct {
	ConfigPath string
	Command    []string
	Document   []byte
	DryRun     bool

	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor runs the engine against a rule document.
type Executor struct {
	binary    string
	extraArgs []string
	logger    hclog.Logger
}

// New creates an Executor. An empty binary defaults to "semgrep".
func New(binary string, extraArgs []string, logger hclog.Logger) *Executor {
	if binary == "" {
		binary = "semgrep"
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Executor{
		binary:    binary,
		extraArgs: extraArgs,
		logger:    logger,
	}
}

// Command returns the argv used to scan targets with the config at configPath.
func (e *Executor) Command(configPath string, targets []string) []string {
	args := []string{e.binary, "--config", configPath, "--json", "--metrics=off"}
	args = append(args, e.extraArgs...)
	return append(args, targets...)
}

// Execute writes document to a private temporary directory and runs the
// engine once over targets. The directory is removed before Execute returns.
// In dry-run mode nothing is written and no process is started.
//
// Exit status 0 means no matches, 1 matches and 2 partial failure; in all
// three cases stdout is returned for classification.
func (e *Executor) Execute(ctx context.Context, document []byte, targets []string, dryRun bool) (*Execution, error) {
	tempDir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			e.logger.Warn("failed to remove temporary directory", "path", tempDir, "err", err)
		}
	}()

	configPath := filepath.Join(tempDir, ConfigFileName)
	x := &Execution{
		ConfigPath: configPath,
		Command:    e.Command(configPath, targets),
		Document:   document,
		DryRun:     dryRun,
	}
	if dryRun {
		return x, nil
	}

	if err := os.WriteFile(configPath, document, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write semgrep config: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, x.Command[0], x.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(&stderr, e.logger.StandardWriter(&hclog.StandardLoggerOptions{
		ForceLevel: hclog.Debug,
	}))
	e.logger.Debug("running semgrep", "cmd", cmd.Args)

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("semgrep run interrupted: %w", ctxErr)
	}

	x.Stdout = stdout.Bytes()
	x.Stderr = stderr.Bytes()
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, e.binary)
			}
			return nil, fmt.Errorf("failed to start semgrep: %w", runErr)
		}
		x.ExitCode = exitErr.ExitCode()
	}

	e.logger.Debug("semgrep finished", "exit_code", x.ExitCode, "stdout_bytes", len(x.Stdout))
	switch x.ExitCode {
	case 0, 1, 2:
		return x, nil
	default:
		return nil, &ExecutionError{ExitCode: x.ExitCode, Stderr: string(x.Stderr)}
	}
}

// Version returns the output of `semgrep --version`.
func (e *Executor) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.binary, "--version").Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrEngineNotFound, e.binary)
		}
		return "", fmt.Errorf("failed to get semgrep version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RenderDryRun formats the preview shown instead of running the engine.
func RenderDryRun(x *Execution) string {
	return strings.Join([]string{
		DryRunHeader,
		"Would write to: " + x.ConfigPath,
		"",
		strings.TrimSpace(string(x.Document)),
		"",
		"Would execute:",
		"  " + strings.Join(x.Command, " "),
	}, "\n")
}
