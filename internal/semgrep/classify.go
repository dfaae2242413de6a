package semgrep

import (
	"github.com/hashicorp/go-hclog"

	"github.com/coreyt/sine/internal/findings"
	"github.com/coreyt/sine/internal/rules"
)

// Classification is the result of interpreting one semgrep run.
type Classification struct {
	Findings  []findings.Finding
	Instances []findings.PatternInstance
	Errors    []findings.RuleError
}

// Classifier maps semgrep output onto the specs that produced it.
type Classifier struct {
	logger hclog.Logger
}

func NewClassifier(logger hclog.Logger) *Classifier {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Classifier{logger: logger}
}

// Classify is Classifier.Classify without logging.
func Classify(raw []byte, index rules.Index) (Classification, error) {
	return NewClassifier(nil).Classify(raw, index)
}

// Classify turns raw semgrep JSON into findings, pattern instances and rule errors.
// Results whose check ID does not resolve to a spec in index are dropped.
func (c *Classifier) Classify(raw []byte, index rules.Index) (Classification, error) {
	out, err := ParseOutput(raw)
	if err != nil {
		return Classification{}, err
	}

	var cls Classification
	for _, e := range out.Errors {
		cls.Errors = append(cls.Errors, findings.RuleError{
			RuleID:  GuidelineID(e.RuleID),
			Message: e.Message,
			Level:   e.Level,
			Type:    e.Type,
		})
	}

	for _, r := range out.Results {
		id := GuidelineID(r.CheckID)
		spec := index.Lookup(id)
		if spec == nil || spec.Rule.Check == nil {
			c.logger.Debug("dropping result of unknown rule", "check_id", r.CheckID, "path", r.Path)
			continue
		}
		rule := spec.Rule

		if IsDiscovery(rule.Check) {
			cls.Instances = append(cls.Instances, findings.PatternInstance{
				PatternID:  id,
				Title:      rule.Title,
				Category:   rule.Category,
				File:       r.Path,
				Line:       r.Start.Line,
				Snippet:    string(r.Extra.Lines),
				Confidence: rule.Reporting.Confidence,
			})
			continue
		}
		cls.Findings = append(cls.Findings, findings.Finding{
			GuidelineID: id,
			Title:       rule.Title,
			Category:    rule.Category,
			Severity:    rule.Severity,
			File:        r.Path,
			Line:        r.Start.Line,
			Message:     r.Extra.Message,
			Snippet:     string(r.Extra.Lines),
			Engine:      findings.Engine,
			Tier:        rule.Tier,
		})
	}

	c.logger.Debug("classified semgrep output",
		"findings", len(cls.Findings), "instances", len(cls.Instances), "errors", len(cls.Errors))
	return cls, nil
}

// IsDiscovery reports whether matches of check describe instances rather than violations.
func IsDiscovery(check rules.Check) bool {
	p := &purpose{}
	_ = check.Accept(p)
	return p.discovery
}

type purpose struct {
	discovery bool
}

func (p *purpose) VisitMustWrap(*rules.MustWrap) error         { return nil }
func (p *purpose) VisitForbidden(*rules.Forbidden) error       { return nil }
func (p *purpose) VisitRequiredWith(*rules.RequiredWith) error { return nil }
func (p *purpose) VisitRaw(*rules.Raw) error                   { return nil }

func (p *purpose) VisitPatternDiscovery(*rules.PatternDiscovery) error {
	p.discovery = true
	return nil
}
