package llm

import (
	"context"
	"fmt"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

// exchangeSystemPrompt frames a model-to-model AICL handoff.
const exchangeSystemPrompt = `You are participating in an AICL (AI Communication Language) conversation.
You are: %s
You are receiving a message from: %s

Respond using AICL format. Structure your response as:
1. State your INTENT (one of: response, critique, revision, validation, code_review, etc.)
2. Provide your CONFIDENCE (0-100%%)
3. Give your REASONING
4. Provide your CONTENT

Be direct, precise, and constructive. Focus on advancing the conversation toward the objective.`

// Exchange sends an AICL message from one model to another and wraps the
// receiving model's raw reply in a responder message. The reply text is
// not parsed for structured fields; callers wanting intent or confidence
// extraction layer it on top.
func (c *MultiClient) Exchange(ctx context.Context, fromModel, toModel string, msg *aicl.Message, conversationContext string) (*aicl.Message, error) {
	system := fmt.Sprintf(exchangeSystemPrompt, toModel, fromModel)

	turns := []models.Turn{
		{Role: "user", Content: conversationContext + "\n\n" + msg.ToPrompt()},
	}

	text, err := c.Complete(ctx, toModel, turns, system)
	if err != nil {
		return nil, err
	}

	reply := aicl.NewMessage(toModel, aicl.RoleResponder, aicl.IntentResponse, text)
	reply.WithConfidence(0.8).WithRef(msg.ID)
	return reply, nil
}
