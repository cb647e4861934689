package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/llm/providers/anthropic"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/llm/providers/openai"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

// defaultTimeout bounds one completion round trip.
const defaultTimeout = 120 * time.Second

// ErrClientClosed is returned by calls made after Close.
var ErrClientClosed = errors.New("completion client is closed")

// UnknownModelError reports a model id that was never registered.
type UnknownModelError struct {
	ModelID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("model %s not registered", e.ModelID)
}

// MultiClient is the unified client for multiple AI providers. It owns the
// model-configuration registry and one HTTP client shared across wire
// families. Register is an ordinary mutation with no locking beyond the
// registry mutex; configurations are immutable once registered.
type MultiClient struct {
	httpClient *http.Client
	logger     *zap.Logger

	anthropic *anthropic.Client
	openai    *openai.Client

	mu     sync.RWMutex
	models map[string]models.ModelConfig
	closed bool
}

// NewMultiClient builds a client with a fresh HTTP transport. A nil logger
// falls back to a no-op logger.
func NewMultiClient(logger *zap.Logger) *MultiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := &http.Client{Timeout: defaultTimeout}
	return &MultiClient{
		httpClient: httpClient,
		logger:     logger,
		anthropic:  anthropic.NewClient(httpClient, logger),
		openai:     openai.NewClient(httpClient, logger),
		models:     make(map[string]models.ModelConfig),
	}
}

// Register adds a model configuration to the registry, applying defaults
// (env-sourced API key, token and temperature baselines).
func (c *MultiClient) Register(cfg models.ModelConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[cfg.ModelID] = cfg.Normalized()
}

// Model returns a registered configuration.
func (c *MultiClient) Model(modelID string) (models.ModelConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.models[modelID]
	if !ok {
		return models.ModelConfig{}, &UnknownModelError{ModelID: modelID}
	}
	return cfg, nil
}

// Models returns the ids of every registered model.
func (c *MultiClient) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	return ids
}

// Complete performs one non-streaming round trip against the model's
// provider and returns the assistant's combined text.
func (c *MultiClient) Complete(ctx context.Context, modelID string, turns []models.Turn, system string) (string, error) {
	cfg, err := c.checkout(modelID)
	if err != nil {
		return "", err
	}

	req := models.CompletionRequest{Turns: turns, System: system}

	var completion *models.Completion
	switch cfg.Provider {
	case models.ProviderAnthropic, models.ProviderAzureAnthropic:
		completion, err = c.anthropic.Complete(ctx, cfg, req)
	case models.ProviderOpenAI, models.ProviderAzureOpenAI:
		completion, err = c.openai.Complete(ctx, cfg, req)
	default:
		return "", fmt.Errorf("unsupported provider %q for model %s", cfg.Provider, modelID)
	}
	if err != nil {
		return "", err
	}

	c.logger.Debug("completion finished",
		zap.String("model", modelID),
		zap.String("finish_reason", completion.FinishReason),
		zap.Int("output_tokens", completion.OutputTokens))
	return completion.Content, nil
}

// Stream performs a streaming round trip. The returned stream yields text
// fragments as the server emits them; a consumer that abandons it early
// must call Close to release the connection.
func (c *MultiClient) Stream(ctx context.Context, modelID string, turns []models.Turn, system string) (*models.Stream, error) {
	cfg, err := c.checkout(modelID)
	if err != nil {
		return nil, err
	}

	req := models.CompletionRequest{Turns: turns, System: system}

	switch cfg.Provider {
	case models.ProviderAnthropic, models.ProviderAzureAnthropic:
		return c.anthropic.Stream(ctx, cfg, req)
	case models.ProviderOpenAI, models.ProviderAzureOpenAI:
		return c.openai.Stream(ctx, cfg, req)
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %s", cfg.Provider, modelID)
	}
}

// Close releases the client's idle connections. Calls made afterward fail
// with ErrClientClosed.
func (c *MultiClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// checkout resolves a model configuration, failing when the client is
// closed or the model was never registered.
func (c *MultiClient) checkout(modelID string) (models.ModelConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return models.ModelConfig{}, ErrClientClosed
	}
	cfg, ok := c.models[modelID]
	if !ok {
		return models.ModelConfig{}, &UnknownModelError{ModelID: modelID}
	}
	return cfg, nil
}
