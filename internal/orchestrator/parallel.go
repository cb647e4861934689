package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

const parallelWorkerSystem = `Provide your best response to this request.
Be thorough, accurate, and well-structured.`

const parallelEvaluatorSystem = `You are an impartial evaluator. Compare the responses and:
1. Identify the best response
2. Explain why it's the best
3. Note any unique strengths from other responses

Output format:
BEST: [model_id]
REASONING: [why it's best]
SYNTHESIS: [optional combined best elements]`

// verdictPattern extracts the winner named on the evaluator's BEST line.
var verdictPattern = regexp.MustCompile(`(?mi)^\s*BEST:\s*\[?([^\]\n]+?)\]?\s*$`)

// Parallel runs the fan-out pattern: every listed model answers the same
// prompt concurrently, then the first model evaluates the set. A single
// failing call aborts the whole run and cancels the sibling calls.
// Responses are recorded in the caller's listed order regardless of
// completion order.
type Parallel struct {
	client CompletionClient
	logger *zap.Logger
}

// NewParallel builds the parallel algorithm.
func NewParallel(client CompletionClient, logger *zap.Logger) *Parallel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parallel{client: client, logger: logger}
}

func (p *Parallel) Run(ctx context.Context, prompt string, modelIDs []string, conv *aicl.Conversation, opts Options) (*Result, error) {
	if len(modelIDs) < 1 {
		return nil, &ValidationError{Mode: ModeParallel, Reason: "requires at least 1 model"}
	}
	observer := opts.notify()

	for _, modelID := range modelIDs {
		conv.AddModel(modelID, aicl.RoleResponder, "parallel_worker")
	}

	observer.OnProgress("Starting parallel execution", 0.0)
	observer.OnProgress("All models working in parallel", 0.3)

	responses := make([]string, len(modelIDs))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, modelID := range modelIDs {
		i, modelID := i, modelID
		group.Go(func() error {
			response, err := p.client.Complete(groupCtx, modelID, []models.Turn{
				{Role: "user", Content: prompt},
			}, parallelWorkerSystem)
			if err != nil {
				return err
			}
			responses[i] = response
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Record in listed order, not completion order.
	for i, modelID := range modelIDs {
		record(conv, observer, aicl.NewMessage(modelID, aicl.RoleResponder, aicl.IntentResponse, responses[i]).WithConfidence(0.8))
	}

	observer.OnProgress("Evaluating responses", 0.7)

	var evalPrompt strings.Builder
	evalPrompt.WriteString("Evaluate these responses and select the best one. Explain your choice:\n\n")
	for i, modelID := range modelIDs {
		fmt.Fprintf(&evalPrompt, "=== %s ===\n%s\n\n", modelID, responses[i])
	}

	evaluation, err := p.client.Complete(ctx, modelIDs[0], []models.Turn{
		{Role: "user", Content: evalPrompt.String()},
	}, parallelEvaluatorSystem)
	if err != nil {
		return nil, err
	}
	record(conv, observer, aicl.NewMessage(modelIDs[0], aicl.RoleSynthesizer, aicl.IntentSynthesis, evaluation).WithConfidence(0.9))

	bestOutput := responses[0]
	if !opts.Parallel.FirstResponseWins {
		if winner, ok := p.pickWinner(evaluation, modelIDs); ok {
			bestOutput = responses[winner]
		}
	}

	conv.Complete(bestOutput)
	observer.OnProgress("Parallel execution complete", 1.0)

	contributions := make(map[string]int, len(modelIDs))
	for _, modelID := range modelIDs {
		contributions[modelID] = 1
	}

	p.logger.Debug("parallel run finished",
		zap.String("conversation", conv.ID),
		zap.Int("workers", len(modelIDs)))

	return &Result{
		Conversation:       conv,
		FinalOutput:        bestOutput,
		ConsensusReached:   true,
		Iterations:         len(modelIDs) + 1,
		ModelContributions: contributions,
		QualityScore:       0.9,
	}, nil
}

// pickWinner resolves the evaluator's BEST line to an index into the
// caller's model list. An absent or unmatched verdict keeps the first
// response.
func (p *Parallel) pickWinner(evaluation string, modelIDs []string) (int, bool) {
	match := verdictPattern.FindStringSubmatch(evaluation)
	if match == nil {
		return 0, false
	}
	verdict := strings.TrimSpace(match[1])
	for i, modelID := range modelIDs {
		if strings.EqualFold(verdict, modelID) {
			return i, true
		}
	}
	p.logger.Debug("evaluator named an unknown model", zap.String("verdict", verdict))
	return 0, false
}
