package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreyt/sine/internal/findings"
	"github.com/coreyt/sine/internal/runner"
)

func TestFindingsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FindingsText(&buf, nil))
	assert.Equal(t, "No violations found.\n", buf.String())

	buf.Reset()
	require.NoError(t, FindingsText(&buf, []findings.Finding{
		{GuidelineID: "ARCH-010", File: "a.py", Line: 7, Message: "Do not call eval."},
		{GuidelineID: "SEC-001", File: "pkg/b.py", Line: 12, Message: "Avoid."},
	}))
	assert.Equal(t, "a.py:7 [ARCH-010] Do not call eval.\npkg/b.py:12 [SEC-001] Avoid.\n", buf.String())
}

func TestFindingsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FindingsJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	fs := []findings.Finding{{GuidelineID: "ARCH-010", File: "a.py", Line: 7, Engine: findings.Engine, Tier: 1}}
	require.NoError(t, FindingsJSON(&buf, fs))
	assert.True(t, strings.HasPrefix(buf.String(), "[\n  {\n    \"guideline_id\": \"ARCH-010\","), buf.String())

	var decoded []findings.Finding
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, fs, decoded)
}

func TestInstancesText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InstancesText(&buf, nil))
	assert.Equal(t, "No patterns discovered.\n", buf.String())

	var instances []findings.PatternInstance
	for i := 1; i <= 7; i++ {
		instances = append(instances, findings.PatternInstance{
			PatternID: "PAT-002", Title: "Repository", Category: "architecture",
			File: fmt.Sprintf("repo_%d.py", i), Line: i,
		})
	}
	instances = append(instances, findings.PatternInstance{
		PatternID: "PAT-001", Title: "Factory", Category: "design", File: "f.py", Line: 3,
	})

	buf.Reset()
	require.NoError(t, InstancesText(&buf, instances))
	want := strings.Join([]string{
		"",
		"Pattern Discovery Results",
		strings.Repeat("=", 60),
		"",
		"PAT-001: Factory",
		"  Category: design",
		"  Instances found: 1",
		"",
		"  - f.py:3",
		"",
		"PAT-002: Repository",
		"  Category: architecture",
		"  Instances found: 7",
		"",
		"  - repo_1.py:1",
		"  - repo_2.py:2",
		"  - repo_3.py:3",
		"  - repo_4.py:4",
		"  - repo_5.py:5",
		"  ... and 2 more",
		"",
		"Total: 8 pattern instances discovered",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestInstancesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InstancesJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, InstancesJSON(&buf, []findings.PatternInstance{{PatternID: "PAT-001", File: "a.py", Line: 1}}))
	assert.Contains(t, buf.String(), `"pattern_id": "PAT-001"`)
}

func TestRuleErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RuleErrors(&buf, nil, ""))
	assert.Empty(t, buf.String())

	errs := []findings.RuleError{{RuleID: "ARCH-010", Message: "Invalid pattern"}}
	require.NoError(t, RuleErrors(&buf, errs, ""))
	assert.Equal(t, "Warning: 1 rules failed to execute:\n  [ARCH-010] Invalid pattern\n\n", buf.String())

	buf.Reset()
	require.NoError(t, RuleErrors(&buf, errs, "discovery"))
	assert.True(t, strings.HasPrefix(buf.String(), "Warning: 1 discovery rules failed to execute:\n"))
}

func TestExampleChecks(t *testing.T) {
	var buf bytes.Buffer
	failed, err := ExampleChecks(&buf, []runner.ExampleCheck{
		{RuleID: "SEC-001", Kind: runner.ExampleBad, Index: 0, Language: "python", Matches: 1, Passed: true},
		{RuleID: "SEC-001", Kind: runner.ExampleGood, Index: 0, Language: "python", Matches: 2, Passed: false},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "PASS  SEC-001 bad example #1 (python): 1 match(es)", lines[0])
	assert.Equal(t, "FAIL  SEC-001 good example #1 (python): 2 match(es)", lines[1])
	assert.Equal(t, "2 examples checked, 1 failed", lines[3])
}
