package llm

import "github.com/MichaelCrowe11/crowe-logic-cli/internal/models"

// Preset configurations for the models registered by the default engine.
// API keys are resolved from the environment at registration time.

// ClaudeOpus45 is the deep-analysis first-party model.
func ClaudeOpus45() models.ModelConfig {
	return models.ModelConfig{
		ModelID:      "claude-opus-4-5-20251101",
		Provider:     models.ProviderAnthropic,
		DisplayName:  "Claude Opus 4.5",
		MaxTokens:    16384,
		Capabilities: []string{"chat", "code", "reasoning", "vision", "deep-analysis"},
	}
}

// GPT51Codex is the code-execution first-party model.
func GPT51Codex() models.ModelConfig {
	return models.ModelConfig{
		ModelID:      "gpt-5.1-codex",
		Provider:     models.ProviderOpenAI,
		DisplayName:  "GPT-5.1 Codex",
		MaxTokens:    32768,
		Capabilities: []string{"chat", "code", "reasoning", "execution"},
	}
}

// GPT5Turbo is the fast first-party model.
func GPT5Turbo() models.ModelConfig {
	return models.ModelConfig{
		ModelID:      "gpt-5-turbo",
		Provider:     models.ProviderOpenAI,
		DisplayName:  "GPT-5 Turbo",
		MaxTokens:    16384,
		Capabilities: []string{"chat", "code", "reasoning", "fast"},
	}
}
