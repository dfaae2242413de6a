// Package semgrep compiles rule specs into semgrep rule configs and turns
// semgrep's JSON output back into findings.
package semgrep

import "gopkg.in/yaml.v3"

// Config is a compiled semgrep rule file.
type Config struct {
	Rules []Rule
}

// Rule is one semgrep rule. Compiled rules set the typed fields; raw rules
// carry the user's node verbatim in Raw and leave the rest empty.
type Rule struct {
	ID        string
	Languages []string
	Severity  string
	Message   string
	// Patterns is an implicit AND.
	Patterns []Operator

	Raw *yaml.Node
}

// Operator is a node of the semgrep pattern tree.
type Operator interface {
	isOperator()
}

// Match is a plain "pattern".
type Match struct {
	Pattern string
}

// Either matches when any alternative matches ("pattern-either").
type Either struct {
	Alternatives []Operator
}

// NotInside suppresses matches located inside Pattern ("pattern-not-inside").
type NotInside struct {
	Pattern string
}

// MetavariableRegex requires the text bound to Metavariable to match Regex.
type MetavariableRegex struct {
	Metavariable string
	Regex        string
}

func (Match) isOperator()             {}
func (Either) isOperator()            {}
func (NotInside) isOperator()         {}
func (MetavariableRegex) isOperator() {}
