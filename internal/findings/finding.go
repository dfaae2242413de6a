package findings

import "strconv"

// Engine is the name recorded on findings produced by the structural matching engine.
const Engine = "semgrep"

// Finding is one enforcement violation at one location.
type Finding struct {
	GuidelineID string `json:"guideline_id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Message     string `json:"message"`
	Snippet     string `json:"snippet"`
	Engine      string `json:"engine"`
	Tier        int    `json:"tier"`
}

// PatternInstance is one occurrence of a descriptive pattern.
type PatternInstance struct {
	PatternID  string `json:"pattern_id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Snippet    string `json:"snippet"`
	Confidence string `json:"confidence"`
}

// RuleError is a failure reported by the engine for a single rule. The rest of the run is unaffected.
type RuleError struct {
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
	Level   string `json:"level"`
	Type    string `json:"type"`
}

// Location returns "file:line".
func (f Finding) Location() string {
	return location(f.File, f.Line)
}

// Location returns "file:line".
func (p PatternInstance) Location() string {
	return location(p.File, p.Line)
}

func location(file string, line int) string {
	if line <= 0 {
		return file
	}
	return file + ":" + strconv.Itoa(line)
}
