package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// specDoc is the on-disk shape of a rule file.
type specDoc struct {
	SchemaVersion int     `yaml:"schema_version,omitempty"`
	Rule          ruleDoc `yaml:"rule"`
}

type ruleDoc struct {
	Spec  `yaml:",inline"`
	Check *checkDoc `yaml:"check"`
}

// checkDoc is the union of every variant's fields; UnmarshalYAML gates
// which of them may appear for the declared type.
type checkDoc struct {
	Type              CheckType           `yaml:"type"`
	Target            []string            `yaml:"target,omitempty"`
	Wrapper           []string            `yaml:"wrapper,omitempty"`
	Pattern           string              `yaml:"pattern,omitempty"`
	IfPresent         string              `yaml:"if_present,omitempty"`
	MustHave          string              `yaml:"must_have,omitempty"`
	Config            string              `yaml:"config,omitempty"`
	Engine            string              `yaml:"engine,omitempty"`
	Patterns          []string            `yaml:"patterns,omitempty"`
	MetavariableRegex []MetavariableRegex `yaml:"metavariable_regex,omitempty"`
}

var allowedCheckKeys = map[CheckType][]string{
	CheckMustWrap:         {"type", "target", "wrapper"},
	CheckForbidden:        {"type", "pattern"},
	CheckRequiredWith:     {"type", "if_present", "must_have"},
	CheckRaw:              {"type", "config", "engine"},
	CheckPatternDiscovery: {"type", "patterns", "metavariable_regex"},
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *checkDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: check must be a mapping", node.Line)
	}

	var typ string
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "type" {
			typ = node.Content[i+1].Value
		}
	}
	if typ == "" {
		return fmt.Errorf("line %d: check.type is required", node.Line)
	}
	allowed, ok := allowedCheckKeys[CheckType(typ)]
	if !ok {
		return fmt.Errorf("line %d: unknown check type %q, expected one of %s", node.Line, typ, strings.Join(checkTypeNames(), ", "))
	}
	if err := requireKeys(node, allowed, "check type "+typ); err != nil {
		return err
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "metavariable_regex" || node.Content[i+1].Kind != yaml.SequenceNode {
			continue
		}
		for _, item := range node.Content[i+1].Content {
			if err := requireKeys(item, []string{"metavariable", "regex"}, "metavariable_regex"); err != nil {
				return err
			}
		}
	}

	type plain checkDoc
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = checkDoc(p)
	return nil
}

// requireKeys rejects mapping keys outside allowed.
func requireKeys(node *yaml.Node, allowed []string, what string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %s must be a mapping", node.Line, what)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		found := false
		for _, a := range allowed {
			if key.Value == a {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("line %d: field %s not allowed for %s", key.Line, key.Value, what)
		}
	}
	return nil
}

func checkTypeNames() []string {
	names := make([]string, 0, len(allowedCheckKeys))
	for t := range allowedCheckKeys {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

func (d *checkDoc) toCheck() Check {
	switch d.Type {
	case CheckMustWrap:
		return &MustWrap{Target: d.Target, Wrapper: d.Wrapper}
	case CheckForbidden:
		return &Forbidden{Pattern: d.Pattern}
	case CheckRequiredWith:
		return &RequiredWith{IfPresent: d.IfPresent, MustHave: d.MustHave}
	case CheckRaw:
		engine := d.Engine
		if engine == "" {
			engine = DefaultRawEngine
		}
		return &Raw{Config: d.Config, Engine: engine}
	case CheckPatternDiscovery:
		return &PatternDiscovery{Patterns: d.Patterns, MetavariableRegex: d.MetavariableRegex}
	}
	return nil
}

// checkEncoder turns a Check back into its document form.
type checkEncoder struct {
	doc checkDoc
}

func (e *checkEncoder) VisitMustWrap(c *MustWrap) error {
	e.doc = checkDoc{Type: CheckMustWrap, Target: c.Target, Wrapper: c.Wrapper}
	return nil
}

func (e *checkEncoder) VisitForbidden(c *Forbidden) error {
	e.doc = checkDoc{Type: CheckForbidden, Pattern: c.Pattern}
	return nil
}

func (e *checkEncoder) VisitRequiredWith(c *RequiredWith) error {
	e.doc = checkDoc{Type: CheckRequiredWith, IfPresent: c.IfPresent, MustHave: c.MustHave}
	return nil
}

func (e *checkEncoder) VisitRaw(c *Raw) error {
	e.doc = checkDoc{Type: CheckRaw, Config: c.Config, Engine: c.Engine}
	return nil
}

func (e *checkEncoder) VisitPatternDiscovery(c *PatternDiscovery) error {
	e.doc = checkDoc{Type: CheckPatternDiscovery, Patterns: c.Patterns, MetavariableRegex: c.MetavariableRegex}
	return nil
}

// requiredRuleKeys must all be present under rule, even when empty.
var requiredRuleKeys = []string{
	"id", "title", "description", "rationale", "tier", "category", "severity",
	"languages", "check", "reporting", "examples", "references",
}

// Decode reads one rule document. Unknown fields are rejected at every level
// and every rule field must be present.
func Decode(r io.Reader) (*SpecFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule document: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc specDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty rule document")
		}
		return nil, fmt.Errorf("failed to parse rule document: %w", err)
	}
	if doc.Rule.Check == nil {
		return nil, fmt.Errorf("rule %q: check is required", doc.Rule.ID)
	}
	if missing := missingRuleKeys(data); len(missing) > 0 {
		return nil, fmt.Errorf("rule %q: missing required field(s): %s", doc.Rule.ID, strings.Join(missing, ", "))
	}

	spec := doc.Rule.Spec
	spec.Check = doc.Rule.Check.toCheck()

	version := doc.SchemaVersion
	if version == 0 {
		version = CurrentSchemaVersion
	}
	return &SpecFile{SchemaVersion: version, Rule: spec}, nil
}

// missingRuleKeys lists the required rule keys absent from a document that
// already decoded strictly.
func missingRuleKeys(data []byte) []string {
	var keys struct {
		Rule map[string]yaml.Node `yaml:"rule"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil
	}
	var missing []string
	for _, k := range requiredRuleKeys {
		if _, ok := keys.Rule[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(data []byte) (*SpecFile, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes spec as a rule document.
func Encode(w io.Writer, spec *SpecFile) error {
	doc := specDoc{SchemaVersion: spec.SchemaVersion, Rule: ruleDoc{Spec: spec.Rule}}
	if spec.Rule.Check != nil {
		enc := &checkEncoder{}
		if err := spec.Rule.Check.Accept(enc); err != nil {
			return err
		}
		doc.Rule.Check = &enc.doc
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode rule %q: %w", spec.Rule.ID, err)
	}
	return encoder.Close()
}
