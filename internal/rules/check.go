package rules

// CheckType is the discriminator stored under check.type.
type CheckType string

const (
	CheckMustWrap         CheckType = "must_wrap"
	CheckForbidden        CheckType = "forbidden"
	CheckRequiredWith     CheckType = "required_with"
	CheckRaw              CheckType = "raw"
	CheckPatternDiscovery CheckType = "pattern_discovery"
)

// DefaultRawEngine is the only engine raw checks can target.
const DefaultRawEngine = "semgrep"

// Check is the closed set of check variants a rule can declare.
// The unexported marker keeps implementations inside this package.
type Check interface {
	Type() CheckType
	Accept(v CheckVisitor) error
	isCheck()
}

// CheckVisitor has one method per Check variant. Every consumer that
// branches on the variant implements it, so a new variant cannot be
// silently ignored.
type CheckVisitor interface {
	VisitMustWrap(c *MustWrap) error
	VisitForbidden(c *Forbidden) error
	VisitRequiredWith(c *RequiredWith) error
	VisitRaw(c *Raw) error
	VisitPatternDiscovery(c *PatternDiscovery) error
}

// MustWrap requires every call to a target to occur inside one of the wrappers.
type MustWrap struct {
	Target  []string
	Wrapper []string
}

// Forbidden disallows a single structural pattern.
type Forbidden struct {
	Pattern string
}

// RequiredWith requires MustHave next to IfPresent, in either order.
type RequiredWith struct {
	IfPresent string
	MustHave  string
}

// Raw carries a literal fragment of the engine's rule language.
type Raw struct {
	Config string
	Engine string
}

// MetavariableRegex constrains the text bound to a metavariable.
type MetavariableRegex struct {
	Metavariable string `yaml:"metavariable"`
	Regex        string `yaml:"regex"`
}

// PatternDiscovery finds instances of a pattern rather than violations.
type PatternDiscovery struct {
	Patterns          []string
	MetavariableRegex []MetavariableRegex
}

func (*MustWrap) Type() CheckType         { return CheckMustWrap }
func (*Forbidden) Type() CheckType        { return CheckForbidden }
func (*RequiredWith) Type() CheckType     { return CheckRequiredWith }
func (*Raw) Type() CheckType              { return CheckRaw }
func (*PatternDiscovery) Type() CheckType { return CheckPatternDiscovery }

func (c *MustWrap) Accept(v CheckVisitor) error         { return v.VisitMustWrap(c) }
func (c *Forbidden) Accept(v CheckVisitor) error        { return v.VisitForbidden(c) }
func (c *RequiredWith) Accept(v CheckVisitor) error     { return v.VisitRequiredWith(c) }
func (c *Raw) Accept(v CheckVisitor) error              { return v.VisitRaw(c) }
func (c *PatternDiscovery) Accept(v CheckVisitor) error { return v.VisitPatternDiscovery(c) }

func (*MustWrap) isCheck()         {}
func (*Forbidden) isCheck()        {}
func (*RequiredWith) isCheck()     {}
func (*Raw) isCheck()              {}
func (*PatternDiscovery) isCheck() {}
