package semgrep

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Serializer encodes a compiled config into the engine's rule file format.
type Serializer interface {
	Marshal(cfg *Config) ([]byte, error)
}

// YAMLSerializer writes semgrep YAML with a fixed key order. Multi-line
// patterns use literal block style so they stay readable in dry runs.
type YAMLSerializer struct {
	Indent int
}

func NewYAMLSerializer() *YAMLSerializer {
	return &YAMLSerializer{Indent: 2}
}

func (s *YAMLSerializer) Marshal(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	list := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range cfg.Rules {
		node, err := ruleNode(r)
		if err != nil {
			return nil, err
		}
		list.Content = append(list.Content, node)
	}
	root := mapping(scalar("rules"), list)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	indent := s.Indent
	if indent <= 0 {
		indent = 2
	}
	enc.SetIndent(indent)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode semgrep config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ruleNode(r Rule) (*yaml.Node, error) {
	if r.Raw != nil {
		return r.Raw, nil
	}

	languages := &yaml.Node{Kind: yaml.SequenceNode}
	for _, l := range r.Languages {
		languages.Content = append(languages.Content, scalar(l))
	}
	patterns, err := operatorList(r.Patterns)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", r.ID, err)
	}

	return mapping(
		scalar("id"), scalar(r.ID),
		scalar("languages"), languages,
		scalar("severity"), scalar(r.Severity),
		scalar("message"), scalar(r.Message),
		scalar("patterns"), patterns,
	), nil
}

func operatorList(ops []Operator) (*yaml.Node, error) {
	list := &yaml.Node{Kind: yaml.SequenceNode}
	for _, op := range ops {
		node, err := operatorNode(op)
		if err != nil {
			return nil, err
		}
		list.Content = append(list.Content, node)
	}
	return list, nil
}

func operatorNode(op Operator) (*yaml.Node, error) {
	switch o := op.(type) {
	case Match:
		return mapping(scalar("pattern"), scalar(o.Pattern)), nil
	case NotInside:
		return mapping(scalar("pattern-not-inside"), scalar(o.Pattern)), nil
	case Either:
		alternatives, err := operatorList(o.Alternatives)
		if err != nil {
			return nil, err
		}
		return mapping(scalar("pattern-either"), alternatives), nil
	case MetavariableRegex:
		return mapping(scalar("metavariable-regex"), mapping(
			scalar("metavariable"), scalar(o.Metavariable),
			scalar("regex"), scalar(o.Regex),
		)), nil
	default:
		return nil, fmt.Errorf("unsupported operator %T", op)
	}
}

func mapping(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: content}
}

func scalar(value string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	if strings.Contains(value, "\n") {
		node.Style = yaml.LiteralStyle
	}
	return node
}
