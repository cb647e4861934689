package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

const defaultChainInstruction = "Improve and enhance the following"

const chainStepSystem = `You are step %d of %d in a processing chain.
Your task: %s

Build upon the previous output. Add value without losing important information.`

// Chain runs the sequential pipeline pattern: each model transforms the
// prior step's output, grounded by the original prompt. A failing step
// fails the whole run; there is no partial chain result.
type Chain struct {
	client CompletionClient
	logger *zap.Logger
}

// NewChain builds the chain algorithm.
func NewChain(client CompletionClient, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{client: client, logger: logger}
}

func (c *Chain) Run(ctx context.Context, prompt string, modelIDs []string, conv *aicl.Conversation, opts Options) (*Result, error) {
	if len(modelIDs) < 1 {
		return nil, &ValidationError{Mode: ModeChain, Reason: "requires at least 1 model"}
	}
	observer := opts.notify()

	for i, modelID := range modelIDs {
		role := aicl.RoleResponder
		if i == 0 {
			role = aicl.RoleInitiator
		}
		conv.AddModel(modelID, role, fmt.Sprintf("chain_step_%d", i))
	}

	observer.OnProgress("Starting chain execution", 0.0)

	currentOutput := prompt
	instructions := opts.Chain.Instructions

	for i, modelID := range modelIDs {
		progress := float64(i+1) / float64(len(modelIDs))
		observer.OnProgress(fmt.Sprintf("Chain step %d/%d: %s", i+1, len(modelIDs), modelID), progress*0.9)

		instruction := defaultChainInstruction
		if i < len(instructions) {
			instruction = instructions[i]
		}
		system := fmt.Sprintf(chainStepSystem, i+1, len(modelIDs), instruction)

		input := currentOutput
		if i > 0 {
			input = fmt.Sprintf("Previous step output:\n%s\n\nOriginal request:\n%s", currentOutput, prompt)
		}

		response, err := c.client.Complete(ctx, modelID, []models.Turn{
			{Role: "user", Content: input},
		}, system)
		if err != nil {
			return nil, err
		}

		role := aicl.RoleResponder
		if i == 0 {
			role = aicl.RoleInitiator
		}
		record(conv, observer, aicl.NewMessage(modelID, role, aicl.IntentResponse, response).WithConfidence(0.85))

		currentOutput = response
	}

	conv.Complete(currentOutput)
	observer.OnProgress("Chain execution complete", 1.0)

	contributions := make(map[string]int, len(modelIDs))
	for _, modelID := range modelIDs {
		contributions[modelID] = 1
	}

	c.logger.Debug("chain finished",
		zap.String("conversation", conv.ID),
		zap.Int("steps", len(modelIDs)))

	return &Result{
		Conversation:       conv,
		FinalOutput:        currentOutput,
		ConsensusReached:   true,
		Iterations:         len(modelIDs),
		ModelContributions: contributions,
		QualityScore:       0.85,
	}, nil
}
