// Package report renders run results for terminals and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/coreyt/sine/internal/findings"
	"github.com/coreyt/sine/internal/runner"
)

// Output formats accepted by the check command.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// maxInstancesShown caps how many locations are listed per discovered pattern.
const maxInstancesShown = 5

// FindingsText writes one "file:line [ID] message" line per finding.
func FindingsText(w io.Writer, fs []findings.Finding) error {
	if len(fs) == 0 {
		_, err := fmt.Fprintln(w, "No violations found.")
		return err
	}
	for _, f := range fs {
		if _, err := fmt.Fprintf(w, "%s [%s] %s\n", f.Location(), f.GuidelineID, f.Message); err != nil {
			return err
		}
	}
	return nil
}

// FindingsJSON writes findings as an indented JSON array.
func FindingsJSON(w io.Writer, fs []findings.Finding) error {
	if fs == nil {
		fs = []findings.Finding{}
	}
	return writeJSON(w, fs)
}

// InstancesText writes discovered pattern instances grouped by pattern.
func InstancesText(w io.Writer, instances []findings.PatternInstance) error {
	if len(instances) == 0 {
		_, err := fmt.Fprintln(w, "No patterns discovered.")
		return err
	}

	byPattern := map[string][]findings.PatternInstance{}
	for _, p := range instances {
		byPattern[p.PatternID] = append(byPattern[p.PatternID], p)
	}
	ids := make([]string, 0, len(byPattern))
	for id := range byPattern {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("\nPattern Discovery Results\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, id := range ids {
		group := byPattern[id]
		fmt.Fprintf(&b, "%s: %s\n", id, group[0].Title)
		fmt.Fprintf(&b, "  Category: %s\n", group[0].Category)
		fmt.Fprintf(&b, "  Instances found: %d\n\n", len(group))
		for i, p := range group {
			if i == maxInstancesShown {
				fmt.Fprintf(&b, "  ... and %d more\n", len(group)-maxInstancesShown)
				break
			}
			fmt.Fprintf(&b, "  - %s\n", p.Location())
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %d pattern instances discovered\n", len(instances))

	_, err := io.WriteString(w, b.String())
	return err
}

// InstancesJSON writes pattern instances as an indented JSON array.
func InstancesJSON(w io.Writer, instances []findings.PatternInstance) error {
	if instances == nil {
		instances = []findings.PatternInstance{}
	}
	return writeJSON(w, instances)
}

// RuleErrors writes the warning block for rules the engine could not run.
// kind qualifies the noun, e.g. "discovery" gives "discovery rules".
func RuleErrors(w io.Writer, errs []findings.RuleError, kind string) error {
	if len(errs) == 0 {
		return nil
	}
	noun := "rules"
	if kind != "" {
		noun = kind + " rules"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Warning: %d %s failed to execute:\n", len(errs), noun)
	for _, e := range errs {
		fmt.Fprintf(&b, "  [%s] %s\n", e.RuleID, e.Message)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// ExampleChecks writes one PASS/FAIL line per checked example and returns
// the number of failures.
func ExampleChecks(w io.Writer, checks []runner.ExampleCheck) (int, error) {
	failed := 0
	var b strings.Builder
	for _, c := range checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(&b, "%s  %s %s example #%d (%s): %d match(es)\n", status, c.RuleID, c.Kind, c.Index+1, c.Language, c.Matches)
	}
	fmt.Fprintf(&b, "\n%d examples checked, %d failed\n", len(checks), failed)

	_, err := io.WriteString(w, b.String())
	return failed, err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
