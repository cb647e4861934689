package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

func testConfig(baseURL string) models.ModelConfig {
	return models.ModelConfig{
		ModelID:     "gpt-5-turbo",
		Provider:    models.ProviderOpenAI,
		APIKey:      "test-key",
		BaseURL:     baseURL,
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

func TestComplete(t *testing.T) {
	var gotReq Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := Response{
			ID:    "chatcmpl-1",
			Model: "gpt-5-turbo",
			Choices: []Choice{{
				Message:      Message{Role: "assistant", Content: "hello world"},
				FinishReason: "stop",
			}},
			Usage: Usage{PromptTokens: 12, CompletionTokens: 4},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.Client(), nil)
	completion, err := client.Complete(context.Background(), testConfig(server.URL), models.CompletionRequest{
		Turns:  []models.Turn{{Role: "user", Content: "hi"}},
		System: "be brief",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello world", completion.Content)
	assert.Equal(t, "stop", completion.FinishReason)
	assert.Equal(t, 12, completion.InputTokens)
	assert.Equal(t, 4, completion.OutputTokens)

	// The system instruction leads the message list.
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "be brief"}, gotReq.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "hi"}, gotReq.Messages[1])
	assert.Equal(t, "gpt-5-turbo", gotReq.Model)
	assert.Equal(t, 2048, gotReq.MaxTokens)
}

func TestCompleteProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), nil)
	_, err := client.Complete(context.Background(), testConfig(server.URL), models.CompletionRequest{
		Turns: []models.Turn{{Role: "user", Content: "hi"}},
	})

	var provErr *models.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
	assert.Contains(t, provErr.Body, "bad key")
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			"",
			"data: {not json", // skipped, not fatal
			`data: {"choices":[{"delta":{"content":"lo"}}]}`,
			`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
			"data: [DONE]",
		}
		for _, l := range lines {
			_, _ = w.Write([]byte(l + "\n"))
		}
	}))
	defer server.Close()

	client := NewClient(server.Client(), nil)
	stream, err := client.Stream(context.Background(), testConfig(server.URL), models.CompletionRequest{
		Turns: []models.Turn{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	var got string
	for fragment := range stream.C {
		got += fragment
	}
	assert.Equal(t, "Hello", got)
	assert.NoError(t, stream.Err())
}

func TestStreamCloseUnblocksAbandonedProducer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"first"}}]}` + "\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Hold the connection open until the client hangs up.
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.Client(), nil)
	stream, err := client.Stream(context.Background(), testConfig(server.URL), models.CompletionRequest{
		Turns: []models.Turn{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	// Abandon without draining: the producer parks on the fragment send
	// and must be woken by Close alone.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, stream.Close())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-stream.C:
			if !open {
				assert.NoError(t, stream.Err())
				return
			}
		case <-deadline:
			t.Fatal("producer still running after Close")
		}
	}
}

func TestStreamNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.Client(), nil)
	_, err := client.Stream(context.Background(), testConfig(server.URL), models.CompletionRequest{
		Turns: []models.Turn{{Role: "user", Content: "hi"}},
	})

	var provErr *models.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusBadGateway, provErr.StatusCode)
}

func TestGatewayRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-deploy/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-deploy", req.Model)

		_ = json.NewEncoder(w).Encode(Response{
			Choices: []Choice{{Message: Message{Content: "ok"}, FinishReason: "stop"}},
		})
	}))
	defer server.Close()

	cfg := models.ModelConfig{
		ModelID:    "gpt-5-turbo",
		Provider:   models.ProviderAzureOpenAI,
		APIKey:     "test-key",
		BaseURL:    server.URL,
		APIVersion: "2024-06-01",
		Deployment: "gpt-deploy",
		MaxTokens:  1024,
	}

	client := NewClient(server.Client(), nil)
	completion, err := client.Complete(context.Background(), cfg, models.CompletionRequest{
		Turns: []models.Turn{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", completion.Content)
}

func TestDefaultEndpoint(t *testing.T) {
	cfg := models.ModelConfig{Provider: models.ProviderOpenAI}
	assert.Equal(t, DefaultBaseURL, endpointURL(cfg))
}
