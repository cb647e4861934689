// Package anthropic speaks the content-blocks wire family: response text
// lives in typed blocks and streaming deltas arrive as typed events. It
// also covers the enterprise-gateway variant, which reuses the same body
// shape behind a tenant endpoint.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

const (
	// DefaultBaseURL is the first-party messages endpoint.
	DefaultBaseURL = "https://api.anthropic.com/v1/messages"
	// APIVersion is the messages API version header value.
	APIVersion = "2023-06-01"
)

// Client performs completion calls for models tagged anthropic or
// azure_anthropic. It carries no retry logic; callers wrap retries around
// it.
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

// Request is the messages API request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentBlock is one typed block of response content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Response is the messages API response body.
type Response struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StreamEvent is one typed server-sent event.
type StreamEvent struct {
	Type  string       `json:"type"`
	Index int          `json:"index,omitempty"`
	Delta *StreamDelta `json:"delta,omitempty"`
}

// StreamDelta carries incremental content.
type StreamDelta struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
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
		return nil, fmt.Errorf("parse anthropic response: %w", err)
	}

	var content strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &models.Completion{
		Content:      content.String(),
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
		FinishReason: apiResp.StopReason,
	}, nil
}

// Stream performs a streaming round trip, yielding text fragments as
// content_block_delta events arrive. Malformed events are skipped; a
// transport failure mid-body fails the stream via Stream.Err.
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

			var event StreamEvent
			if err := json.Unmarshal(line, &event); err != nil {
				decodeErr := &models.StreamDecodeError{Provider: cfg.Provider, Line: string(line), Err: err}
				c.logger.Debug("skipping malformed stream event", zap.Error(decodeErr))
				continue
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta != nil && event.Delta.Text != "" {
					select {
					case fragments <- event.Delta.Text:
					case <-stream.Done():
						return
					case <-ctx.Done():
						stream.Fail(&models.TransportError{Provider: cfg.Provider, Err: ctx.Err()})
						return
					}
				}
			case "message_stop":
				return
			}
		}
	}()

	return stream, nil
}

func (c *Client) buildRequest(cfg models.ModelConfig, req models.CompletionRequest, stream bool) Request {
	messages := make([]Message, 0, len(req.Turns))
	system := req.System
	for _, t := range req.Turns {
		// System turns ride the dedicated top-level field.
		if t.Role == "system" {
			system = t.Content
			continue
		}
		messages = append(messages, Message{Role: t.Role, Content: t.Content})
	}

	model := cfg.ModelID
	if cfg.Provider == models.ProviderAzureAnthropic && cfg.Deployment != "" {
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
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: temperature,
		Stream:      stream,
	}
}

// endpointURL resolves the messages URL. The gateway variant addresses
// {endpoint}/anthropic/v1/messages and rewrites legacy cognitiveservices
// hosts to the services.ai domain.
func endpointURL(cfg models.ModelConfig) string {
	if cfg.Provider == models.ProviderAzureAnthropic {
		endpoint := strings.TrimRight(cfg.BaseURL, "/")
		endpoint = strings.Replace(endpoint, "cognitiveservices.azure.com", "services.ai.azure.com", 1)
		return endpoint + "/anthropic/v1/messages"
	}
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return DefaultBaseURL
}

func (c *Client) post(ctx context.Context, cfg models.ModelConfig, apiReq Request) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL(cfg), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build anthropic request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", cfg.APIKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &models.TransportError{Provider: cfg.Provider, Err: err}
	}
	return resp, nil
}
