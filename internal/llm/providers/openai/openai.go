// Package openai speaks the choices wire family: response text lives at
// choices[0].message.content and streaming deltas arrive as partial
// delta.content fragments terminated by a sentinel line. It also covers
// the enterprise-gateway variant, which reuses the same body shape behind
// a deployment URL and an api-key header.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

const (
	// DefaultBaseURL is the first-party chat-completions endpoint.
	DefaultBaseURL = "https://api.openai.com/v1/chat/completions"
	// doneSentinel terminates an event stream.
	doneSentinel = "[DONE]"
)

// Client performs completion calls for models tagged openai or
// azure_openai. It carries no retry logic; callers wrap retries around it.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client sharing the given HTTP client.
func NewClient(httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// Request is the chat-completions request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the chat-completions response body.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is one candidate completion.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamResponse is one streamed chunk.
type StreamResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice carries a partial delta.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Message `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Complete performs one non-streaming round trip.
func (c *Client) Complete(ctx context.Context, cfg models.ModelConfig, req models.CompletionRequest) (*models.Completion, error) {
	resp, err := c.post(ctx, cfg, c.buildRequest(cfg, req, false))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.TransportError{Provider: cfg.Provider, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &models.ProviderError{Provider: cfg.Provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var apiResp Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse openai response: %w", err)
	}

	var content, finish string
	if len(apiResp.Choices) > 0 {
		content = apiResp.Choices[0].Message.Content
		finish = apiResp.Choices[0].FinishReason
	}

	return &models.Completion{
		Content:      content,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
		FinishReason: finish,
	}, nil
}

// Stream performs a streaming round trip, yielding delta.content fragments
// until the sentinel line or connection close. Malformed events are
// skipped; a transport failure mid-body fails the stream via Stream.Err.
func (c *Client) Stream(ctx context.Context, cfg models.ModelConfig, req models.CompletionRequest) (*models.Stream, error) {
	resp, err := c.post(ctx, cfg, c.buildRequest(cfg, req, true))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, &models.ProviderError{Provider: cfg.Provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	fragments := make(chan string)
	stream := models.NewStream(fragments, func() { _ = resp.Body.Close() })

	go func() {
		defer func() { _ = resp.Body.Close() }()
		defer close(fragments)

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err != io.EOF {
					stream.Fail(&models.TransportError{Provider: cfg.Provider, Err: err})
				}
				return
			}

			line = bytes.TrimSpace(line)
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			line = bytes.TrimPrefix(line, []byte("data: "))

			if string(line) == doneSentinel {
				return
			}

			var chunk StreamResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				decodeErr := &models.StreamDecodeError{Provider: cfg.Provider, Line: string(line), Err: err}
				c.logger.Debug("skipping malformed stream event", zap.Error(decodeErr))
				continue
			}

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				select {
				case fragments <- chunk.Choices[0].Delta.Content:
				case <-stream.Done():
					return
				case <-ctx.Done():
					stream.Fail(&models.TransportError{Provider: cfg.Provider, Err: ctx.Err()})
					return
				}
			}
		}
	}()

	return stream, nil
}

func (c *Client) buildRequest(cfg models.ModelConfig, req models.CompletionRequest, stream bool) Request {
	messages := make([]Message, 0, len(req.Turns)+1)

	// The system instruction is folded into the message list.
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	for _, t := range req.Turns {
		messages = append(messages, Message{Role: t.Role, Content: t.Content})
	}

	model := cfg.ModelID
	if cfg.Provider == models.ProviderAzureOpenAI && cfg.Deployment != "" {
		model = cfg.Deployment
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = cfg.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = cfg.Temperature
	}

	return Request{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
}

// endpointURL resolves the chat-completions URL. The gateway variant
// addresses a deployment path with an api-version query parameter.
func endpointURL(cfg models.ModelConfig) string {
	if cfg.Provider == models.ProviderAzureOpenAI {
		endpoint := strings.TrimRight(cfg.BaseURL, "/")
		u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions", endpoint, cfg.Deployment)
		if cfg.APIVersion != "" {
			u += "?api-version=" + url.QueryEscape(cfg.APIVersion)
		}
		return u
	}
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return DefaultBaseURL
}

func (c *Client) post(ctx context.Context, cfg models.ModelConfig, apiReq Request) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL(cfg), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build openai request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if cfg.Provider == models.ProviderAzureOpenAI {
		httpReq.Header.Set("api-key", cfg.APIKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &models.TransportError{Provider: cfg.Provider, Err: err}
	}
	return resp, nil
}
