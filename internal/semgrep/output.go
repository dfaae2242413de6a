package semgrep

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Defaults for error fields semgrep leaves out.
const (
	DefaultErrorMessage = "Unknown error"
	DefaultErrorLevel   = "error"
	DefaultErrorType    = "SemgrepError"
)

// OutputError is returned when semgrep's stdout is not the expected JSON document.
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("unable to parse semgrep output: %v", e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// Output is the subset of `semgrep --json` sine consumes.
type Output struct {
	Results []Result     `json:"results"`
	Errors  []ErrorEntry `json:"errors"`
	Version string       `json:"version,omitempty"`
}

type Result struct {
	CheckID string   `json:"check_id"`
	Path    string   `json:"path"`
	Start   Position `json:"start"`
	End     Position `json:"end"`
	Extra   Extra    `json:"extra"`
}

type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

type Extra struct {
	Message string `json:"message"`
	Lines   Lines  `json:"lines"`
}

// Lines is the matched source text. semgrep emits it either as one string
// or as a list of lines; both decode to a single trimmed string.
type Lines string

func (l *Lines) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Lines(strings.TrimSpace(s))
		return nil
	}
	var list []interface{}
	if err := json.Unmarshal(data, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		*l = Lines(strings.TrimSpace(strings.Join(parts, "\n")))
		return nil
	}
	*l = ""
	return nil
}

// ErrorEntry is one element of semgrep's errors array, with defaults applied.
type ErrorEntry struct {
	RuleID  string
	Message string
	Level   string
	Type    string
}

func (e *ErrorEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		RuleID  *string         `json:"rule_id"`
		Message *string         `json:"message"`
		Level   *string         `json:"level"`
		Type    json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = ErrorEntry{
		Message: DefaultErrorMessage,
		Level:   DefaultErrorLevel,
		Type:    errorType(raw.Type),
	}
	if raw.RuleID != nil {
		e.RuleID = *raw.RuleID
	}
	if raw.Message != nil {
		e.Message = *raw.Message
	}
	if raw.Level != nil {
		e.Level = *raw.Level
	}
	return nil
}

// errorType reads a type tag given either as a string or as a list whose first element is the tag.
func errorType(data json.RawMessage) string {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return DefaultErrorType
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
		if err := json.Unmarshal(list[0], &s); err == nil {
			return s
		}
	}
	return DefaultErrorType
}

// ParseOutput decodes semgrep's JSON output.
func ParseOutput(raw []byte) (*Output, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &OutputError{Err: fmt.Errorf("empty output")}
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &OutputError{Err: err}
	}
	return &out, nil
}
