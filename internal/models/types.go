// Package models holds the provider-agnostic types shared by the completion
// client and its wire-format implementations.
package models

import "os"

// ProviderTag selects which wire-format family a model speaks.
type ProviderTag string

const (
	ProviderAnthropic      ProviderTag = "anthropic"
	ProviderOpenAI         ProviderTag = "openai"
	ProviderAzureAnthropic ProviderTag = "azure_anthropic"
	ProviderAzureOpenAI    ProviderTag = "azure_openai"
)

// Gateway reports whether the tag is an enterprise-gateway variant.
func (p ProviderTag) Gateway() bool {
	return p == ProviderAzureAnthropic || p == ProviderAzureOpenAI
}

// envKey is the environment variable consulted for credentials when a
// configuration carries no explicit key.
func (p ProviderTag) envKey() string {
	switch p {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAzureAnthropic:
		return "AZURE_ANTHROPIC_API_KEY"
	case ProviderAzureOpenAI:
		return "AZURE_OPENAI_API_KEY"
	}
	return ""
}

// ModelConfig is the static descriptor for one registered model. It is
// built once at registration time and never mutated afterward.
type ModelConfig struct {
	ModelID     string      `json:"model_id" yaml:"model_id"`
	Provider    ProviderTag `json:"provider" yaml:"provider"`
	DisplayName string      `json:"display_name" yaml:"display_name"`

	// APIKey and BaseURL override the environment-sourced defaults.
	APIKey  string `json:"-" yaml:"api_key"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url"`

	// Gateway variants address a deployment behind a tenant endpoint.
	APIVersion string `json:"api_version,omitempty" yaml:"api_version"`
	Deployment string `json:"deployment,omitempty" yaml:"deployment"`

	MaxTokens    int      `json:"max_tokens" yaml:"max_tokens"`
	Temperature  float64  `json:"temperature" yaml:"temperature"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities"`
}

// Normalized returns a copy with defaults applied: env-sourced API key,
// 8192 max tokens, 0.7 temperature, and baseline capabilities.
func (c ModelConfig) Normalized() ModelConfig {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(c.Provider.envKey())
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8192
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if len(c.Capabilities) == 0 {
		c.Capabilities = []string{"chat", "code", "reasoning"}
	}
	return c
}

// Turn is one role/content exchange in a chat completion request.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the provider-agnostic request shape. System is kept
// separate from Turns; each wire family folds it in its own way.
type CompletionRequest struct {
	Turns       []Turn
	System      string
	MaxTokens   int
	Temperature float64
}

// Completion is the normalized non-streaming result.
type Completion struct {
	Content      string
	InputTokens  int
	OutputTokens int
	FinishReason string
}
