package semgrep

import "strings"

// ruleIDSuffix marks engine rule IDs compiled from a guideline.
const ruleIDSuffix = "-impl"

// RuleID builds the engine rule ID for a guideline ID.
func RuleID(guidelineID string) string {
	return strings.ToLower(guidelineID) + ruleIDSuffix
}

// GuidelineID recovers the guideline ID from an engine check ID.
// The engine prefixes rule IDs with a dotted namespace derived from the
// config file path, e.g. "tmp.sine-123.semgrep.arch-003-impl" -> "ARCH-003".
func GuidelineID(checkID string) string {
	if checkID == "" {
		return ""
	}
	id := strings.TrimSuffix(checkID, ruleIDSuffix)
	if i := strings.LastIndex(id, "."); i >= 0 {
		id = id[i+1:]
	}
	return strings.ToUpper(id)
}
