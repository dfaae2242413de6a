package semgrep

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coreyt/sine/internal/rules"
)

// funcBody is the function shape decorators attach to.
const funcBody = "def $FUNC(...):\n  ..."

// CompileError is returned for a spec that cannot be turned into a semgrep rule.
type CompileError struct {
	RuleID string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile rule %s: %v", e.RuleID, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compiler turns rule specs into a semgrep config.
type Compiler struct {
	serializer Serializer
}

// NewCompiler returns a Compiler serializing with s, or with the default YAML serializer when s is nil.
func NewCompiler(s Serializer) *Compiler {
	if s == nil {
		s = NewYAMLSerializer()
	}
	return &Compiler{serializer: s}
}

// Compile builds one semgrep rule per spec; raw specs contribute each of their rules.
func (c *Compiler) Compile(specs []*rules.SpecFile) (*Config, error) {
	cfg := &Config{}
	for _, spec := range specs {
		if spec.Rule.Check == nil {
			return nil, &CompileError{RuleID: spec.Rule.ID, Err: fmt.Errorf("unsupported check")}
		}
		rc := &ruleCompiler{spec: &spec.Rule}
		if err := spec.Rule.Check.Accept(rc); err != nil {
			return nil, &CompileError{RuleID: spec.Rule.ID, Err: err}
		}
		cfg.Rules = append(cfg.Rules, rc.out...)
	}
	return cfg, nil
}

// Serialize encodes cfg with the compiler's serializer.
func (c *Compiler) Serialize(cfg *Config) ([]byte, error) {
	return c.serializer.Marshal(cfg)
}

// ruleCompiler compiles the check of a single spec.
type ruleCompiler struct {
	spec *rules.Spec
	out  []Rule
}

func (rc *ruleCompiler) emit(patterns ...Operator) {
	rc.out = append(rc.out, Rule{
		ID:        RuleID(rc.spec.ID),
		Languages: rc.spec.Languages,
		Severity:  strings.ToUpper(rc.spec.Severity),
		Message:   rc.spec.Reporting.DefaultMessage,
		Patterns:  patterns,
	})
}

func (rc *ruleCompiler) VisitForbidden(c *rules.Forbidden) error {
	rc.emit(Match{Pattern: c.Pattern})
	return nil
}

func (rc *ruleCompiler) VisitMustWrap(c *rules.MustWrap) error {
	targets := make([]Operator, 0, len(c.Target))
	for _, t := range c.Target {
		targets = append(targets, Match{Pattern: t + "(...)"})
	}
	patterns := []Operator{Either{Alternatives: targets}}
	for _, w := range c.Wrapper {
		patterns = append(patterns, NotInside{Pattern: wrapperShape(w)})
	}
	rc.emit(patterns...)
	return nil
}

func (rc *ruleCompiler) VisitRequiredWith(c *rules.RequiredWith) error {
	rc.emit(
		Match{Pattern: c.IfPresent + "\n" + funcBody},
		NotInside{Pattern: c.MustHave + "\n" + c.IfPresent + "\n" + funcBody},
		NotInside{Pattern: c.IfPresent + "\n" + c.MustHave + "\n" + funcBody},
	)
	return nil
}

func (rc *ruleCompiler) VisitPatternDiscovery(c *rules.PatternDiscovery) error {
	alternatives := make([]Operator, 0, len(c.Patterns))
	for _, p := range c.Patterns {
		alternatives = append(alternatives, Match{Pattern: p})
	}
	patterns := []Operator{Either{Alternatives: alternatives}}
	for _, mr := range c.MetavariableRegex {
		patterns = append(patterns, MetavariableRegex{Metavariable: mr.Metavariable, Regex: mr.Regex})
	}
	rc.emit(patterns...)
	return nil
}

// VisitRaw splices the rules of a literal semgrep config unchanged.
func (rc *ruleCompiler) VisitRaw(c *rules.Raw) error {
	if c.Engine != "" && c.Engine != rules.DefaultRawEngine {
		return fmt.Errorf("raw engine %q is not supported", c.Engine)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(c.Config), &doc); err != nil {
		return fmt.Errorf("raw config is not valid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("raw config must be a mapping with a rules list")
	}

	root := doc.Content[0]
	var list *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "rules" {
			list = root.Content[i+1]
		}
	}
	// A missing or empty rules list contributes nothing.
	if list == nil || (list.Kind == yaml.ScalarNode && list.ShortTag() == "!!null") {
		return nil
	}
	if list.Kind != yaml.SequenceNode {
		return fmt.Errorf("raw config rules must be a list")
	}
	for i, node := range list.Content {
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("raw config rule %d is not a mapping", i)
		}
		rc.out = append(rc.out, Rule{Raw: node})
	}
	return nil
}

// wrapperShape is the construct a call must sit inside to satisfy a wrapper:
// "@name" is a decorator on the enclosing function, anything else a with block.
func wrapperShape(wrapper string) string {
	if strings.HasPrefix(wrapper, "@") {
		return wrapper + "\n" + funcBody
	}
	return "with " + wrapper + "(...):\n  ..."
}
