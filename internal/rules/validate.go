package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// idPattern keeps IDs upper case and dot free; the engine rule ID derived
// from a spec ID must map back to it unambiguously.
var idPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]*$`)

// ValidationError lists every problem found in one spec.
type ValidationError struct {
	RuleID   string
	Source   string
	Problems []string
}

func (e *ValidationError) Error() string {
	where := e.RuleID
	if where == "" {
		where = "<no id>"
	}
	if e.Source != "" {
		where = fmt.Sprintf("%s (%s)", where, e.Source)
	}
	return fmt.Sprintf("invalid rule %s: %s", where, strings.Join(e.Problems, "; "))
}

// Validate checks the semantic constraints decoding cannot express.
func Validate(spec *SpecFile) error {
	if spec == nil {
		return fmt.Errorf("rule spec is nil")
	}
	v := &checkValidator{}
	r := &spec.Rule

	if spec.SchemaVersion != CurrentSchemaVersion {
		v.addf("unsupported schema_version %d", spec.SchemaVersion)
	}
	if !idPattern.MatchString(r.ID) {
		v.addf("id %q must match %s", r.ID, idPattern.String())
	}
	if strings.TrimSpace(r.Title) == "" {
		v.addf("title must not be empty")
	}
	if r.Tier < 1 || r.Tier > 3 {
		v.addf("tier %d must be between 1 and 3", r.Tier)
	}
	switch r.Severity {
	case SeverityError, SeverityWarning, SeverityInfo:
	default:
		v.addf("severity %q must be one of error, warning, info", r.Severity)
	}
	if len(r.Languages) == 0 {
		v.addf("at least one language is required")
	}
	if strings.TrimSpace(r.Reporting.DefaultMessage) == "" {
		v.addf("reporting.default_message must not be empty")
	}
	switch r.Reporting.Confidence {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		v.addf("reporting.confidence %q must be one of low, medium, high", r.Reporting.Confidence)
	}
	for _, ex := range append(append([]Example{}, r.Examples.Good...), r.Examples.Bad...) {
		if strings.TrimSpace(ex.Language) == "" {
			v.addf("examples must declare a language")
			break
		}
	}

	if r.Check == nil {
		v.addf("check is required")
	} else if err := r.Check.Accept(v); err != nil {
		return err
	}

	if len(v.problems) > 0 {
		return &ValidationError{RuleID: r.ID, Source: spec.Source, Problems: v.problems}
	}
	return nil
}

type checkValidator struct {
	problems []string
}

func (v *checkValidator) addf(format string, args ...interface{}) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *checkValidator) VisitMustWrap(c *MustWrap) error {
	if len(c.Target) == 0 {
		v.addf("must_wrap requires at least one target")
	}
	if len(c.Wrapper) == 0 {
		v.addf("must_wrap requires at least one wrapper")
	}
	for _, t := range c.Target {
		if strings.TrimSpace(t) == "" {
			v.addf("must_wrap target must not be empty")
		}
	}
	for _, w := range c.Wrapper {
		if strings.TrimSpace(w) == "" {
			v.addf("must_wrap wrapper must not be empty")
		}
	}
	return nil
}

func (v *checkValidator) VisitForbidden(c *Forbidden) error {
	if strings.TrimSpace(c.Pattern) == "" {
		v.addf("forbidden requires a pattern")
	}
	return nil
}

func (v *checkValidator) VisitRequiredWith(c *RequiredWith) error {
	if strings.TrimSpace(c.IfPresent) == "" {
		v.addf("required_with requires if_present")
	}
	if strings.TrimSpace(c.MustHave) == "" {
		v.addf("required_with requires must_have")
	}
	return nil
}

func (v *checkValidator) VisitRaw(c *Raw) error {
	if strings.TrimSpace(c.Config) == "" {
		v.addf("raw requires a config")
	}
	if c.Engine != DefaultRawEngine {
		v.addf("raw engine %q is not supported, only %s", c.Engine, DefaultRawEngine)
	}
	return nil
}

func (v *checkValidator) VisitPatternDiscovery(c *PatternDiscovery) error {
	if len(c.Patterns) == 0 {
		v.addf("pattern_discovery requires at least one pattern")
	}
	for _, mr := range c.MetavariableRegex {
		if !strings.HasPrefix(mr.Metavariable, "$") {
			v.addf("metavariable %q must start with $", mr.Metavariable)
		}
		// The engine's regex dialect is wider than RE2; a bad regex comes
		// back from the engine as a rule error.
		if strings.TrimSpace(mr.Regex) == "" {
			v.addf("metavariable %s regex must not be empty", mr.Metavariable)
		}
	}
	return nil
}
