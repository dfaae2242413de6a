package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coreyt/sine/internal/rules"
	"github.com/coreyt/sine/pkg/shared/files"
)

// Example kinds.
const (
	ExampleGood = "good"
	ExampleBad  = "bad"
)

// ExampleCheck is the outcome of running a spec against one of its own examples.
// A bad example passes when it is matched at least once; a good one when it is never matched.
type ExampleCheck struct {
	RuleID   string `json:"rule_id"`
	Kind     string `json:"kind"`
	Index    int    `json:"index"`
	Language string `json:"language"`
	Matches  int    `json:"matches"`
	Passed   bool   `json:"passed"`
}

// VerifyExamples runs every spec against the good and bad examples it declares.
// Each spec gets one engine run over all of its examples.
func (r *Runner) VerifyExamples(ctx context.Context, specs []*rules.SpecFile) ([]ExampleCheck, error) {
	var checks []ExampleCheck
	for _, spec := range specs {
		ex := spec.Rule.Examples
		if len(ex.Good)+len(ex.Bad) == 0 {
			continue
		}
		result, err := r.verifySpec(ctx, spec)
		if err != nil {
			return checks, fmt.Errorf("rule %s: %w", spec.Rule.ID, err)
		}
		checks = append(checks, result...)
	}
	return checks, nil
}

type exampleFile struct {
	check ExampleCheck
	path  string
}

func (r *Runner) verifySpec(ctx context.Context, spec *rules.SpecFile) ([]ExampleCheck, error) {
	dir, err := os.MkdirTemp("", "sine-examples-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create examples directory: %w", err)
	}
	defer os.RemoveAll(dir)

	var exampleFiles []exampleFile
	add := func(kind string, examples []rules.Example) error {
		for i, e := range examples {
			path := filepath.Join(dir, fmt.Sprintf("%s_%d%s", kind, i, files.ExtensionFor(e.Language)))
			if err := os.WriteFile(path, []byte(e.Code), 0o600); err != nil {
				return fmt.Errorf("failed to write example: %w", err)
			}
			exampleFiles = append(exampleFiles, exampleFile{
				check: ExampleCheck{RuleID: spec.Rule.ID, Kind: kind, Index: i, Language: e.Language},
				path:  path,
			})
		}
		return nil
	}
	if err := add(ExampleBad, spec.Rule.Examples.Bad); err != nil {
		return nil, err
	}
	if err := add(ExampleGood, spec.Rule.Examples.Good); err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(exampleFiles))
	for _, f := range exampleFiles {
		targets = append(targets, f.path)
	}

	specs := []*rules.SpecFile{spec}
	x, err := r.execute(ctx, specs, targets, false)
	if err != nil {
		return nil, err
	}
	cls, err := r.classifier.Classify(x.Stdout, rules.NewIndex(specs))
	if err != nil {
		return nil, err
	}
	for _, e := range cls.Errors {
		r.logger.Warn("rule failed while checking examples", "rule_id", spec.Rule.ID, "message", e.Message)
	}

	matches := map[string]int{}
	for _, f := range cls.Findings {
		matches[filepath.Clean(f.File)]++
	}
	for _, p := range cls.Instances {
		matches[filepath.Clean(p.File)]++
	}

	out := make([]ExampleCheck, 0, len(exampleFiles))
	for _, f := range exampleFiles {
		c := f.check
		c.Matches = matches[filepath.Clean(f.path)]
		if c.Kind == ExampleBad {
			c.Passed = c.Matches > 0
		} else {
			c.Passed = c.Matches == 0
		}
		out = append(out, c)
	}
	return out, nil
}
