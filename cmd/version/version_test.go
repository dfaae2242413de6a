package version

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreyt/sine/internal/scanner/scannertest"
	"github.com/coreyt/sine/pkg/shared/config"
)

func TestPrintVersionInfo(t *testing.T) {
	var buf bytes.Buffer
	printVersionInfo(&buf, &Versions{Version: "1.2.0", GolangVersion: "go1.21.5", BuildTime: "today", EngineVersion: "1.50.0"})

	assert.Equal(t, "Sine Version: v1.2.0\nSemgrep Version: 1.50.0\nGo Version: go1.21.5\nBuild Time: today\n", buf.String())
}

func TestVersionCommandReportsEngine(t *testing.T) {
	engine := scannertest.Start(t, scannertest.Options{Version: "1.61.1"})
	cfg := config.Default()
	cfg.Engine.Binary = engine.Binary
	Init(cfg)
	t.Cleanup(func() {
		Init(nil)
		outputJSON = false
	})

	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	require.NoError(t, cmd.Execute())

	var v Versions
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, "1.61.1", v.EngineVersion)
	assert.Equal(t, CoreVersion, v.Version)
}

func TestEngineVersionNotInstalled(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Binary = "/nonexistent/semgrep"
	Init(cfg)
	t.Cleanup(func() { Init(nil) })

	assert.Equal(t, "not installed", engineVersion(nil))
}
