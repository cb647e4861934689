package aicl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := NewMessage("claude-opus-4-5", RoleSynthesizer, IntentSynthesis, "combined view")
	msg.WithConfidence(0.92).WithReasoning("both sides agree on X").WithRef("prior-id")
	msg.QualitySignals = map[string]float64{"coherence": 0.8}
	msg.ArtifactsModified = []string{"draft"}
	msg.CodeBlocks = []CodeBlock{{Language: "python", Code: "print('hi')"}}
	msg.Citations = []Citation{{Title: "paper", URL: "https://example.com"}}

	data, err := EncodeMessage(msg)
	require.NoError(t, err)

	got, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestConversationRoundTrip(t *testing.T) {
	ctx := NewContext("build a parser")
	ctx.Constraints = []string{"no third-party deps"}
	ctx.AddArtifact("grammar", "expr := term", "text")
	ctx.Metadata = map[string]any{"origin": "test"}

	conv := NewConversation(ctx)
	conv.AddModel("model-a", RoleExecutor, "anthropic")
	conv.AddModel("model-b", RoleValidator, "openai")

	conv.Append(NewMessage("model-a", RoleExecutor, IntentProposal, "draft").WithConfidence(0.8))
	conv.Append(NewMessage("model-b", RoleValidator, IntentValidation, "APPROVED").WithConfidence(0.9))
	conv.Complete("draft")

	data, err := EncodeConversation(conv)
	require.NoError(t, err)

	got, err := DecodeConversation(data)
	require.NoError(t, err)

	assert.Equal(t, conv.ID, got.ID)
	assert.True(t, conv.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, conv.Status, got.Status)
	assert.Equal(t, conv.FinalOutput, got.FinalOutput)
	assert.Equal(t, conv.Messages, got.Messages)
	assert.Equal(t, conv.Models, got.Models)
	assert.Equal(t, conv.Context.TaskID, got.Context.TaskID)
	assert.Equal(t, conv.Context.CurrentIteration, got.Context.CurrentIteration)
	assert.Equal(t, conv.Context.Constraints, got.Context.Constraints)
	assert.Equal(t, conv.Context.Metadata, got.Context.Metadata)
	assert.Contains(t, got.Context.Artifacts, "grammar")
}

func TestOutOfRangeConfidenceSurvivesRoundTrip(t *testing.T) {
	// Confidence is not clamped anywhere, including the codec.
	msg := NewMessage("m", RoleResponder, IntentResponse, "x").WithConfidence(2.5)

	data, err := EncodeMessage(msg)
	require.NoError(t, err)

	got, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.Confidence)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := NewContext("task")
	ctx.CurrentIteration = 4
	ctx.ConsensusReached = true

	data, err := EncodeContext(ctx)
	require.NoError(t, err)

	got, err := DecodeContext(data)
	require.NoError(t, err)
	assert.Equal(t, ctx.TaskID, got.TaskID)
	assert.Equal(t, 4, got.CurrentIteration)
	assert.True(t, got.ConsensusReached)
}

func TestDecodeConversationRejectsGarbage(t *testing.T) {
	_, err := DecodeConversation([]byte("not json"))
	assert.Error(t, err)
}
