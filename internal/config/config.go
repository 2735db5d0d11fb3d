// Package config loads forge's YAML configuration, grounded on codenerd's
// internal/config/config.go: a single Config struct with per-concern
// sub-structs, a DefaultConfig() baseline, and environment-variable
// overrides layered on top at load time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all forge configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Guardrail GuardrailConfig `yaml:"guardrail"`
	Structure StructureConfig `yaml:"structure"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Execution ExecutionConfig `yaml:"execution"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StructureConfig toggles P2A Validate Structure, the one optional phase
// §4.8's routing rules name explicitly ("P2A MAY be skipped if the
// configuration disables structure validation").
type StructureConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LLMConfig configures the LLM provider used by P2/P3/P4.
type LLMConfig struct {
	Provider       string        `yaml:"provider"` // "gemini" | "openai" | "mock"
	Model          string        `yaml:"model"`
	Timeout        time.Duration `yaml:"timeout"`
	RetryMax       int           `yaml:"retry_max"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
}

// GuardrailMode selects how the P4 middleware reacts to scope violations.
type GuardrailMode string

const (
	GuardrailStrict GuardrailMode = "strict"
	GuardrailSoft   GuardrailMode = "soft"
)

// GuardrailConfig configures the three P4 middleware layers.
type GuardrailConfig struct {
	Enabled bool          `yaml:"enabled"`
	Mode    GuardrailMode `yaml:"mode"`
}

// SandboxConfig configures optional P5 sandbox verification.
type SandboxConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BuildTimeout     time.Duration `yaml:"build_timeout"`
	RunTimeout       time.Duration `yaml:"run_timeout"`
	MaxIterations    int           `yaml:"max_iterations"`
	AutoFixOnBuildError bool       `yaml:"auto_fix_on_build_error"`
}

// ExecutionConfig configures P5's mode and timeouts.
type ExecutionConfig struct {
	Mode            string        `yaml:"mode"` // "dry_run" | "implement"
	CampaignTimeout time.Duration `yaml:"campaign_timeout"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories,omitempty"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns forge's baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			Timeout:     30 * time.Second,
			RetryMax:    3,
			BackoffBase: 5 * time.Second,
			BackoffMax:  5 * time.Minute,
		},
		Guardrail: GuardrailConfig{
			Enabled: true,
			Mode:    GuardrailStrict,
		},
		Structure: StructureConfig{
			Enabled: true,
		},
		Sandbox: SandboxConfig{
			Enabled:       false,
			BuildTimeout:  600 * time.Second,
			RunTimeout:    60 * time.Second,
			MaxIterations: 10,
		},
		Execution: ExecutionConfig{
			Mode:            "dry_run",
			CampaignTimeout: 0,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads .forge/config.yaml under workspace, falling back to defaults
// when the file doesn't exist, then applies environment overrides.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, ".forge", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FORGE_GUARDRAIL_MODE"); v != "" {
		cfg.Guardrail.Mode = GuardrailMode(v)
	}
	if v := os.Getenv("FORGE_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("FORGE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
}
