package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

// anthropicStub answers the content-blocks wire shape with fixed text.
func anthropicStub(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":` + jsonString(text) + `}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
}

// openaiStub answers the choices wire shape with fixed text.
func openaiStub(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":` + jsonString(text) + `},"finish_reason":"stop"}]}`))
	}))
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func registerTestModel(c *MultiClient, id string, provider models.ProviderTag, baseURL string) {
	c.Register(models.ModelConfig{
		ModelID:  id,
		Provider: provider,
		APIKey:   "test-key",
		BaseURL:  baseURL,
	})
}

func TestCompleteDispatchesByProvider(t *testing.T) {
	anthropicSrv := anthropicStub(t, "from claude")
	defer anthropicSrv.Close()
	openaiSrv := openaiStub(t, "from gpt")
	defer openaiSrv.Close()

	client := NewMultiClient(nil)
	defer client.Close()
	registerTestModel(client, "claude-test", models.ProviderAnthropic, anthropicSrv.URL)
	registerTestModel(client, "gpt-test", models.ProviderOpenAI, openaiSrv.URL)

	turns := []models.Turn{{Role: "user", Content: "hi"}}

	got, err := client.Complete(context.Background(), "claude-test", turns, "")
	require.NoError(t, err)
	assert.Equal(t, "from claude", got)

	got, err = client.Complete(context.Background(), "gpt-test", turns, "")
	require.NoError(t, err)
	assert.Equal(t, "from gpt", got)
}

func TestCompleteUnknownModel(t *testing.T) {
	client := NewMultiClient(nil)
	defer client.Close()

	_, err := client.Complete(context.Background(), "nope", nil, "")
	var unknownErr *UnknownModelError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "nope", unknownErr.ModelID)
}

func TestCompleteAfterClose(t *testing.T) {
	client := NewMultiClient(nil)
	client.Close()
	client.Close() // idempotent

	_, err := client.Complete(context.Background(), "any", nil, "")
	assert.ErrorIs(t, err, ErrClientClosed)

	_, err = client.Stream(context.Background(), "any", nil, "")
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestRegisterAppliesDefaults(t *testing.T) {
	client := NewMultiClient(nil)
	defer client.Close()
	client.Register(models.ModelConfig{ModelID: "m", Provider: models.ProviderAnthropic, APIKey: "k"})

	cfg, err := client.Model("m")
	require.NoError(t, err)
	assert.Equal(t, 8192, cfg.MaxTokens)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.NotEmpty(t, cfg.Capabilities)
}

func TestModelsListsRegisteredIDs(t *testing.T) {
	client := NewMultiClient(nil)
	defer client.Close()
	client.Register(models.ModelConfig{ModelID: "a", Provider: models.ProviderOpenAI, APIKey: "k"})
	client.Register(models.ModelConfig{ModelID: "b", Provider: models.ProviderAnthropic, APIKey: "k"})

	assert.ElementsMatch(t, []string{"a", "b"}, client.Models())
}

func TestStreamDispatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lines := []string{
			`data: {"choices":[{"delta":{"content":"str"}}]}`,
			`data: {"choices":[{"delta":{"content":"eam"}}]}`,
			"data: [DONE]",
		}
		for _, l := range lines {
			_, _ = w.Write([]byte(l + "\n"))
		}
	}))
	defer server.Close()

	client := NewMultiClient(nil)
	defer client.Close()
	registerTestModel(client, "gpt-test", models.ProviderOpenAI, server.URL)

	stream, err := client.Stream(context.Background(), "gpt-test", []models.Turn{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	var got string
	for fragment := range stream.C {
		got += fragment
	}
	assert.Equal(t, "stream", got)
	assert.NoError(t, stream.Err())
}

func TestStreamAbandonedWithoutDraining(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"first"}}]}` + "\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewMultiClient(nil)
	defer client.Close()
	registerTestModel(client, "gpt-test", models.ProviderOpenAI, server.URL)

	stream, err := client.Stream(context.Background(), "gpt-test", []models.Turn{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)

	// Close without reading a single fragment. The goleak TestMain
	// fails this test if the producer goroutine outlives it.
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

func TestExchangeWrapsReply(t *testing.T) {
	server := openaiStub(t, "I concur with the proposal.")
	defer server.Close()

	client := NewMultiClient(nil)
	defer client.Close()
	registerTestModel(client, "gpt-test", models.ProviderOpenAI, server.URL)

	msg := aicl.NewMessage("claude-test", aicl.RoleInitiator, aicl.IntentProposal, "shall we?")
	reply, err := client.Exchange(context.Background(), "claude-test", "gpt-test", msg, "prior context")
	require.NoError(t, err)

	assert.Equal(t, "gpt-test", reply.SenderModel)
	assert.Equal(t, aicl.RoleResponder, reply.SenderRole)
	assert.Equal(t, aicl.IntentResponse, reply.Intent)
	assert.Equal(t, "I concur with the proposal.", reply.Content)
	assert.Equal(t, msg.ID, reply.RefID)
	assert.InDelta(t, 0.8, reply.Confidence, 1e-9)
}

func TestPresets(t *testing.T) {
	opus := ClaudeOpus45()
	assert.Equal(t, models.ProviderAnthropic, opus.Provider)
	assert.Equal(t, "claude-opus-4-5-20251101", opus.ModelID)

	codex := GPT51Codex()
	assert.Equal(t, models.ProviderOpenAI, codex.Provider)
	assert.Equal(t, 32768, codex.MaxTokens)

	turbo := GPT5Turbo()
	assert.Equal(t, models.ProviderOpenAI, turbo.Provider)
	assert.Contains(t, turbo.Capabilities, "fast")
}
