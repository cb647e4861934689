// Package config loads the model-registry file and process environment.
// The surface is deliberately small; the broader configuration of the
// command layer lives outside this module.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/llm"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

// File is the on-disk model-registry shape.
type File struct {
	Models []models.ModelConfig `yaml:"models"`
}

// Load reads a YAML model-registry file. Environment references in the
// file body ($VAR or ${VAR}) are expanded before parsing, so api_key
// fields can point at the environment instead of embedding secrets.
func Load(path string) ([]models.ModelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model registry: %w", err)
	}

	var file File
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &file); err != nil {
		return nil, fmt.Errorf("parse model registry %s: %w", path, err)
	}

	for i, cfg := range file.Models {
		if cfg.ModelID == "" {
			return nil, fmt.Errorf("model registry %s: entry %d has no model_id", path, i)
		}
		if cfg.Provider == "" {
			return nil, fmt.Errorf("model registry %s: model %s has no provider", path, cfg.ModelID)
		}
	}
	return file.Models, nil
}

// LoadEnv applies a .env file from dir to the process environment.
// A missing file is not an error; anything else is reported.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Defaults returns the preset model trio registered by the default
// engine.
func Defaults() []models.ModelConfig {
	return []models.ModelConfig{
		llm.ClaudeOpus45(),
		llm.GPT51Codex(),
		llm.GPT5Turbo(),
	}
}
