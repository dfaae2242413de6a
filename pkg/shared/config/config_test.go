package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingDefaultFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(ConfigEnvVar, "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadConfigExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "sine.yml"), []byte("format: sarif\n"), 0o644))

	cfg, err := LoadConfig("~/sine.yml")
	require.NoError(t, err)
	assert.Equal(t, "sarif", cfg.Format)
}

func TestLoadConfigRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory, not a file")
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sine.yml")
	content := `logger:
  level: debug
rules_dir: rules
targets: [src, lib]
format: sarif
fail_on_rule_error: true
metrics_file: /var/lib/node_exporter/sine.prom
engine:
  binary: /opt/semgrep
  extra_args: ["--timeout", "30"]
  timeout: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "rules", cfg.RulesDir)
	assert.Equal(t, []string{"src", "lib"}, cfg.Targets)
	assert.Equal(t, "sarif", cfg.Format)
	assert.True(t, cfg.FailOnRuleError)
	assert.Equal(t, DefaultBaselinePath, cfg.BaselinePath)
	assert.Equal(t, "/var/lib/node_exporter/sine.prom", cfg.MetricsFile)
	assert.Equal(t, "/opt/semgrep", cfg.Engine.Binary)
	assert.Equal(t, []string{"--timeout", "30"}, cfg.Engine.ExtraArgs)
	assert.Equal(t, 5*time.Minute, cfg.Engine.Timeout)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sine.yml")
	require.NoError(t, os.WriteFile(path, []byte("rule_dir: typo\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("format: json\n"), 0o644))
	t.Setenv(ConfigEnvVar, path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "bad format", mutate: func(c *Config) { c.Format = "xml" }, wantErr: "unsupported format"},
		{name: "empty binary", mutate: func(c *Config) { c.Engine.Binary = " " }, wantErr: "binary must not be empty"},
		{name: "negative timeout", mutate: func(c *Config) { c.Engine.Timeout = -time.Second }, wantErr: "cannot be negative"},
		{name: "managed flag", mutate: func(c *Config) { c.Engine.ExtraArgs = []string{"--json"} }, wantErr: "managed by sine"},
		{name: "empty baseline", mutate: func(c *Config) { c.BaselinePath = "" }, wantErr: "baseline_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetThen(t *testing.T) {
	assert.Equal(t, "a", SetThen("a", "b"))
	assert.Equal(t, "b", SetThen("", "b"))
	assert.Equal(t, 3, SetThen(0, 3))
}
