package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"checkgate/internal/stage"
)

// Load reads and parses a configuration from the given YAML file path, then
// fills builtin defaults for anything the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config found.
// Search order: ./checkgate.yaml, ~/.checkgate/config.yaml. A project with no
// config file gets the builtin npm/TypeScript defaults.
func LoadDefault() (*Config, error) {
	candidates := []string{"checkgate.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".checkgate", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return Default(), nil
}

// Default returns the builtin configuration for an npm/TypeScript project.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// defaultStages holds the builtin command set. Commands assume an npm project
// with the usual script names; anything else needs a config file.
var defaultStages = StagesConfig{
	Install:   StageConfig{Command: "npm install", CICommand: "npm ci", Timeout: "10m"},
	Build:     StageConfig{Command: "npm run build", Timeout: "5m"},
	Lint:      StageConfig{Command: "npm run lint", FixCommand: "npm run lint -- --fix", Timeout: "3m"},
	Typecheck: StageConfig{Command: "npx tsc --noEmit", Timeout: "3m"},
	Test:      StageConfig{Command: "npm test", Timeout: "10m"},
	Docs:      StageConfig{Command: "npm run docs:check", Timeout: "3m"},
}

var defaultUnused = StageConfig{
	Command:    "npx knip --no-progress",
	FixCommand: "npx knip --fix --no-progress",
	Timeout:    "5m",
}

// applyDefaults fills builtin values into entries the file leaves unset. A
// stage with its own command keeps its own variants: a custom linter does not
// inherit the npm fix invocation.
func applyDefaults(cfg *Config) {
	if cfg.Project.Root == "" {
		cfg.Project.Root = "."
	}
	applyStageDefaults(&cfg.Stages.Install, defaultStages.Install)
	applyStageDefaults(&cfg.Stages.Build, defaultStages.Build)
	applyStageDefaults(&cfg.Stages.Lint, defaultStages.Lint)
	applyStageDefaults(&cfg.Stages.Typecheck, defaultStages.Typecheck)
	applyStageDefaults(&cfg.Stages.Test, defaultStages.Test)
	applyStageDefaults(&cfg.Stages.Docs, defaultStages.Docs)
	applyStageDefaults(&cfg.Doctor.Unused, defaultUnused)
}

func applyStageDefaults(sc *StageConfig, def StageConfig) {
	if sc.Command == "" {
		sc.Command = def.Command
		if sc.CICommand == "" {
			sc.CICommand = def.CICommand
		}
		if sc.FixCommand == "" {
			sc.FixCommand = def.FixCommand
		}
	}
	if sc.Timeout == "" {
		sc.Timeout = def.Timeout
	}
}

// Stage returns the configured entry for the named verification stage.
func (c *Config) Stage(name stage.Name) StageConfig {
	switch name {
	case stage.Install:
		return c.Stages.Install
	case stage.Build:
		return c.Stages.Build
	case stage.Lint:
		return c.Stages.Lint
	case stage.Typecheck:
		return c.Stages.Typecheck
	case stage.Test:
		return c.Stages.Test
	case stage.Docs:
		return c.Stages.Docs
	}
	return StageConfig{}
}
