package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/coreyt/sine/pkg/shared/files"
)

const (
	// DefaultConfigFile is looked up in the working directory when no path is given.
	DefaultConfigFile = "sine.yml"
	// ConfigEnvVar overrides the config file location.
	ConfigEnvVar = "SINE_CONFIG"

	DefaultRulesDir     = ".sine-rules"
	DefaultBaselinePath = ".sine-baseline.json"
	DefaultEngineBinary = "semgrep"
	DefaultFormat       = "text"
)

type Config struct {
	Logger          Logger   `yaml:"logger"`
	RulesDir        string   `yaml:"rules_dir"`
	Targets         []string `yaml:"targets"`
	Format          string   `yaml:"format"`
	FailOnRuleError bool     `yaml:"fail_on_rule_error"`
	BaselinePath    string   `yaml:"baseline_path"`
	MetricsFile     string   `yaml:"metrics_file"`
	Engine          Engine   `yaml:"engine"`
}

type Logger struct {
	Level string `yaml:"level"`
}

// Engine describes how the external matching engine is invoked.
type Engine struct {
	Binary    string        `yaml:"binary"`
	ExtraArgs []string      `yaml:"extra_args"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		RulesDir:     DefaultRulesDir,
		Targets:      []string{"."},
		Format:       DefaultFormat,
		BaselinePath: DefaultBaselinePath,
		Engine: Engine{
			Binary: DefaultEngineBinary,
		},
	}
}

// LoadYAML strictly decodes the YAML file at configPath into data. A
// leading ~ in configPath is expanded.
func LoadYAML(configPath string, data interface{}) error {
	path, err := files.ResolveFile(configPath)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	d.SetStrict(true)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the config file at configPath on top of the defaults.
// An empty configPath resolves to SINE_CONFIG, then to sine.yml; a missing
// default file is not an error, an explicitly requested one is.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()

	explicit := true
	if configPath == "" {
		configPath = os.Getenv(ConfigEnvVar)
	}
	if configPath == "" {
		configPath = DefaultConfigFile
		explicit = false
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) && !explicit {
		return cfg, nil
	}

	if err := LoadYAML(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
	}
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults restores defaults for keys the file set to empty values.
func applyDefaults(cfg *Config) {
	def := Default()
	cfg.RulesDir = SetThen(cfg.RulesDir, def.RulesDir)
	cfg.Format = SetThen(cfg.Format, def.Format)
	cfg.BaselinePath = SetThen(cfg.BaselinePath, def.BaselinePath)
	cfg.Engine.Binary = SetThen(cfg.Engine.Binary, def.Engine.Binary)
	if len(cfg.Targets) == 0 {
		cfg.Targets = def.Targets
	}
}
