// Package runner wires compilation, engine execution, classification and
// the baseline into a single check run.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/coreyt/sine/internal/baseline"
	"github.com/coreyt/sine/internal/findings"
	"github.com/coreyt/sine/internal/rules"
	"github.com/coreyt/sine/internal/scanner"
	"github.com/coreyt/sine/internal/semgrep"
)

// Mode selects which steps of a run are performed.
type Mode int

const (
	// ModeEnforce classifies findings and diffs them against the baseline.
	ModeEnforce Mode = iota
	// ModeDryRun compiles the rules and returns a preview without running the engine.
	ModeDryRun
	// ModeDiscover runs pattern_discovery rules only.
	ModeDiscover
	// ModeUpdateBaseline replaces the baseline with the current findings.
	ModeUpdateBaseline
)

func (m Mode) String() string {
	switch m {
	case ModeEnforce:
		return "enforce"
	case ModeDryRun:
		return "dry-run"
	case ModeDiscover:
		return "discover"
	case ModeUpdateBaseline:
		return "update-baseline"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ErrNoRules is returned when a run has no rules left to execute.
var ErrNoRules = errors.New("no rule specifications to run")

// RuleErrorsError is returned, together with the full result, when the run
// produced rule errors and Options.FailOnRuleError is set.
type RuleErrorsError struct {
	Errors []findings.RuleError
}

func (e *RuleErrorsError) Error() string {
	return fmt.Sprintf("%d rule(s) failed to execute", len(e.Errors))
}

// Options configures a Runner.
type Options struct {
	Mode            Mode
	BaselinePath    string
	FailOnRuleError bool
}

// Result holds everything one run produced. Slices a mode does not fill stay empty.
type Result struct {
	RunID string

	AllFindings      []findings.Finding
	NewFindings      []findings.Finding
	PatternInstances []findings.PatternInstance
	RuleErrors       []findings.RuleError

	// KnownFindings are suppressed by the baseline; FixedEntries are baseline
	// entries no longer found. Both are filled in enforce mode only.
	KnownFindings []findings.Finding
	FixedEntries  []baseline.Entry

	// DryRun is the preview text, set in dry-run mode only.
	DryRun string
}

// Executor runs the engine over a serialized rule document.
type Executor interface {
	Execute(ctx context.Context, document []byte, targets []string, dryRun bool) (*scanner.Execution, error)
}

// Runner executes check runs. It keeps no state between runs.
type Runner struct {
	compiler   *semgrep.Compiler
	executor   Executor
	classifier *semgrep.Classifier
	logger     hclog.Logger
	opts       Options
}

// New creates a Runner. A nil compiler uses the default YAML serializer.
func New(compiler *semgrep.Compiler, executor Executor, logger hclog.Logger, opts Options) *Runner {
	if compiler == nil {
		compiler = semgrep.NewCompiler(nil)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{
		compiler:   compiler,
		executor:   executor,
		classifier: semgrep.NewClassifier(logger.Named("classifier")),
		logger:     logger,
		opts:       opts,
	}
}

// Run checks targets against specs.
func (r *Runner) Run(ctx context.Context, specs []*rules.SpecFile, targets []string) (*Result, error) {
	res := &Result{RunID: uuid.New().String()}
	logger := r.logger.With("run_id", res.RunID, "mode", r.opts.Mode.String())

	if r.opts.Mode == ModeDiscover {
		specs = rules.FilterByType(specs, rules.CheckPatternDiscovery)
	}
	if len(specs) == 0 {
		return nil, ErrNoRules
	}
	logger.Debug("starting run", "rules", len(specs), "targets", targets)

	x, err := r.execute(ctx, specs, targets, r.opts.Mode == ModeDryRun)
	if err != nil {
		return nil, err
	}
	if x.DryRun {
		res.DryRun = scanner.RenderDryRun(x)
		return res, nil
	}

	cls, err := r.classifier.Classify(x.Stdout, rules.NewIndex(specs))
	if err != nil {
		return nil, err
	}
	res.AllFindings = cls.Findings
	res.PatternInstances = cls.Instances
	res.RuleErrors = cls.Errors
	for _, e := range cls.Errors {
		logger.Warn("rule failed to execute", "rule_id", e.RuleID, "type", e.Type, "message", e.Message)
	}

	switch r.opts.Mode {
	case ModeEnforce:
		b := baseline.LoadOrNil(r.opts.BaselinePath, logger)
		d := baseline.Compare(res.AllFindings, b)
		res.NewFindings = d.New
		res.KnownFindings = d.Known
		res.FixedEntries = d.Fixed
		logger.Debug("compared with baseline", "baseline_entries", b.Len(), "new", len(d.New), "known", len(d.Known), "fixed", len(d.Fixed))
	case ModeUpdateBaseline:
		if err := baseline.Replace(r.opts.BaselinePath, res.AllFindings); err != nil {
			return res, err
		}
		logger.Info("baseline updated", "path", r.opts.BaselinePath, "findings", len(res.AllFindings))
	}

	logger.Debug("run finished",
		"findings", len(res.AllFindings), "new", len(res.NewFindings),
		"instances", len(res.PatternInstances), "rule_errors", len(res.RuleErrors))

	if r.opts.FailOnRuleError && len(res.RuleErrors) > 0 {
		return res, &RuleErrorsError{Errors: res.RuleErrors}
	}
	return res, nil
}

// execute compiles specs and runs the engine once.
func (r *Runner) execute(ctx context.Context, specs []*rules.SpecFile, targets []string, dryRun bool) (*scanner.Execution, error) {
	cfg, err := r.compiler.Compile(specs)
	if err != nil {
		return nil, err
	}
	document, err := r.compiler.Serialize(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize semgrep config: %w", err)
	}
	return r.executor.Execute(ctx, document, targets, dryRun)
}
