// Package rules holds the typed rule specifications and the code that loads them.
package rules

// CurrentSchemaVersion is assumed when a rule file omits schema_version.
const CurrentSchemaVersion = 1

// Severity values accepted in rule.severity.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Confidence values accepted in rule.reporting.confidence.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// SpecFile is one rule document.
type SpecFile struct {
	SchemaVersion int
	Rule          Spec
	// Source is the file the spec was read from, empty for built-ins.
	Source string
}

// Spec is a single guideline.
type Spec struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Rationale   string    `yaml:"rationale"`
	Tier        int       `yaml:"tier"`
	Category    string    `yaml:"category"`
	Severity    string    `yaml:"severity"`
	Languages   []string  `yaml:"languages"`
	Check       Check     `yaml:"-"`
	Reporting   Reporting `yaml:"reporting"`
	Examples    Examples  `yaml:"examples"`
	References  []string  `yaml:"references"`
}

type Reporting struct {
	DefaultMessage   string `yaml:"default_message"`
	Confidence       string `yaml:"confidence"`
	DocumentationURL string `yaml:"documentation_url,omitempty"`
}

type Examples struct {
	Good []Example `yaml:"good"`
	Bad  []Example `yaml:"bad"`
}

type Example struct {
	Language string `yaml:"language"`
	Code     string `yaml:"code"`
}

// Index maps a spec ID to its spec.
type Index map[string]*SpecFile

// NewIndex indexes specs by ID. Later specs win over earlier ones with the same ID.
func NewIndex(specs []*SpecFile) Index {
	index := make(Index, len(specs))
	for _, s := range specs {
		index[s.Rule.ID] = s
	}
	return index
}

// Lookup returns the spec for id, or nil.
func (i Index) Lookup(id string) *SpecFile {
	return i[id]
}

// FilterByType returns the specs whose check is of type t, preserving order.
func FilterByType(specs []*SpecFile, t CheckType) []*SpecFile {
	var out []*SpecFile
	for _, s := range specs {
		if s.Rule.Check != nil && s.Rule.Check.Type() == t {
			out = append(out, s)
		}
	}
	return out
}

// FindByID returns the spec with the given ID, or nil.
func FindByID(specs []*SpecFile, id string) *SpecFile {
	for _, s := range specs {
		if s.Rule.ID == id {
			return s
		}
	}
	return nil
}
