package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

const defaultDebateRounds = 3

const debateSideSystem = `You are participating in a structured debate about: %s

Your role: ARGUE %s the proposition.
Be persuasive, use evidence, anticipate counterarguments.
Structure your argument clearly with main points and supporting evidence.`

const debateSynthesisSystem = `Synthesize the debate into a balanced conclusion.
Consider the strongest points from both sides.
Provide a nuanced final assessment.`

// Debate runs the argue-and-synthesize pattern: two models open on
// opposing sides, exchange rebuttals for a fixed number of rounds, and
// the first model synthesizes a conclusion. Each rebuttal is conditioned
// only on the immediately preceding opposing statement, not the full
// history.
type Debate struct {
	client CompletionClient
	logger *zap.Logger
}

// NewDebate builds the debate algorithm.
func NewDebate(client CompletionClient, logger *zap.Logger) *Debate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debate{client: client, logger: logger}
}

func (d *Debate) Run(ctx context.Context, prompt string, modelIDs []string, conv *aicl.Conversation, opts Options) (*Result, error) {
	if len(modelIDs) < 2 {
		return nil, &ValidationError{Mode: ModeDebate, Reason: "requires at least 2 models"}
	}

	rounds := opts.Debate.Rounds
	if rounds <= 0 {
		rounds = defaultDebateRounds
	}
	observer := opts.notify()

	forModel, againstModel := modelIDs[0], modelIDs[1]
	conv.AddModel(forModel, aicl.RoleInitiator, "debate_for")
	conv.AddModel(againstModel, aicl.RoleResponder, "debate_against")

	forSystem := fmt.Sprintf(debateSideSystem, prompt, "IN FAVOR OF")
	againstSystem := fmt.Sprintf(debateSideSystem, prompt, "AGAINST")

	observer.OnProgress("Starting debate", 0.0)

	// Opening statements.
	observer.OnProgress(fmt.Sprintf("%s opening argument", forModel), 0.1)
	forOpening, err := d.client.Complete(ctx, forModel, []models.Turn{
		{Role: "user", Content: fmt.Sprintf("Present your opening argument FOR: %s", prompt)},
	}, forSystem)
	if err != nil {
		return nil, err
	}
	record(conv, observer, aicl.NewMessage(forModel, aicl.RoleInitiator, aicl.IntentArgueFor, forOpening).WithConfidence(0.85))

	observer.OnProgress(fmt.Sprintf("%s opening argument", againstModel), 0.2)
	againstOpening, err := d.client.Complete(ctx, againstModel, []models.Turn{
		{Role: "user", Content: fmt.Sprintf("Present your opening argument AGAINST: %s\n\nYou're responding to this FOR argument:\n%s", prompt, forOpening)},
	}, againstSystem)
	if err != nil {
		return nil, err
	}
	record(conv, observer, aicl.NewMessage(againstModel, aicl.RoleResponder, aicl.IntentArgueAgainst, againstOpening).WithConfidence(0.85))

	lastAgainst := againstOpening

	for round := 0; round < rounds; round++ {
		progress := 0.3 + float64(round)/float64(rounds)*0.5
		observer.OnProgress(fmt.Sprintf("Debate round %d/%d", round+1, rounds), progress)

		counterFor, err := d.client.Complete(ctx, forModel, []models.Turn{
			{Role: "user", Content: fmt.Sprintf("Counter this AGAINST argument:\n%s", lastAgainst)},
		}, forSystem)
		if err != nil {
			return nil, err
		}
		record(conv, observer, aicl.NewMessage(forModel, aicl.RoleInitiator, aicl.IntentCounter, counterFor).WithConfidence(0.8))

		counterAgainst, err := d.client.Complete(ctx, againstModel, []models.Turn{
			{Role: "user", Content: fmt.Sprintf("Counter this FOR argument:\n%s", counterFor)},
		}, againstSystem)
		if err != nil {
			return nil, err
		}
		record(conv, observer, aicl.NewMessage(againstModel, aicl.RoleResponder, aicl.IntentCounter, counterAgainst).WithConfidence(0.8))

		lastAgainst = counterAgainst
	}

	// Synthesis by the FOR model over the whole transcript.
	observer.OnProgress("Synthesizing conclusions", 0.9)
	contents := make([]string, 0, conv.Len())
	for _, m := range conv.Messages {
		contents = append(contents, m.Content)
	}
	synthesis, err := d.client.Complete(ctx, forModel, []models.Turn{
		{Role: "user", Content: fmt.Sprintf("Synthesize this debate:\n%s", strings.Join(contents, "\n\n"))},
	}, debateSynthesisSystem)
	if err != nil {
		return nil, err
	}
	record(conv, observer, aicl.NewMessage(forModel, aicl.RoleSynthesizer, aicl.IntentSynthesis, synthesis).WithConfidence(0.9))

	conv.Complete(synthesis)
	observer.OnProgress("Debate complete", 1.0)

	d.logger.Debug("debate finished",
		zap.String("conversation", conv.ID),
		zap.Int("rounds", rounds),
		zap.Int("messages", conv.Len()))

	return &Result{
		Conversation:     conv,
		FinalOutput:      synthesis,
		ConsensusReached: true,
		Iterations:       conv.Len(),
		ModelContributions: map[string]int{
			forModel:     len(conv.MessagesByModel(forModel)),
			againstModel: len(conv.MessagesByModel(againstModel)),
		},
		QualityScore: 0.85,
	}, nil
}
