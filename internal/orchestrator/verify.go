package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

const defaultVerifyIterations = 3

// approvalToken classifies a validation turn. Matching is a plain
// case-insensitive substring check; no structured field is consulted.
const approvalToken = "APPROVED"

const verifyCreatorSystem = `You are a code/content creator. Your job is to produce high-quality output.
When you receive feedback, incorporate it thoughtfully and explain your changes.`

const verifyValidatorSystem = `You are a critical validator. Your job is to review work for:
- Correctness and accuracy
- Security vulnerabilities
- Code quality and best practices
- Edge cases and error handling
- Performance considerations

Be specific in your feedback. If the work is acceptable, say "APPROVED" and explain why.
If it needs changes, list specific issues that must be addressed.`

// Verify runs the create-and-validate pattern: the first model produces,
// the second reviews, and the first revises until the reviewer approves
// or the iteration budget runs out.
type Verify struct {
	client CompletionClient
	logger *zap.Logger
}

// NewVerify builds the verify algorithm.
func NewVerify(client CompletionClient, logger *zap.Logger) *Verify {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verify{client: client, logger: logger}
}

func (v *Verify) Run(ctx context.Context, prompt string, modelIDs []string, conv *aicl.Conversation, opts Options) (*Result, error) {
	if len(modelIDs) < 2 {
		return nil, &ValidationError{Mode: ModeVerify, Reason: "requires at least 2 models"}
	}

	maxIterations := opts.Verify.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultVerifyIterations
	}
	observer := opts.notify()

	creator, validator := modelIDs[0], modelIDs[1]
	conv.AddModel(creator, aicl.RoleExecutor, "creator")
	conv.AddModel(validator, aicl.RoleValidator, "validator")

	observer.OnProgress("Starting verification workflow", 0.0)

	observer.OnProgress(fmt.Sprintf("%s creating initial output", creator), 0.1)
	creation, err := v.client.Complete(ctx, creator, []models.Turn{
		{Role: "user", Content: prompt},
	}, verifyCreatorSystem)
	if err != nil {
		return nil, err
	}

	createIntent := aicl.IntentProposal
	if strings.Contains(strings.ToLower(prompt), "code") {
		createIntent = aicl.IntentCodeGenerate
	}
	record(conv, observer, aicl.NewMessage(creator, aicl.RoleExecutor, createIntent, creation).WithConfidence(0.8))

	currentOutput := creation
	approved := false

	for iteration := 0; iteration < maxIterations; iteration++ {
		progress := 0.2 + float64(iteration)/float64(maxIterations)*0.7
		observer.OnProgress(fmt.Sprintf("Validation iteration %d/%d", iteration+1, maxIterations), progress)

		validation, err := v.client.Complete(ctx, validator, []models.Turn{
			{Role: "user", Content: fmt.Sprintf("Review this work:\n\n%s", currentOutput)},
		}, verifyValidatorSystem)
		if err != nil {
			return nil, err
		}

		isApproved := strings.Contains(strings.ToUpper(validation), approvalToken)

		validateIntent := aicl.IntentCritique
		validateConfidence := 0.7
		if isApproved {
			validateIntent = aicl.IntentValidation
			validateConfidence = 0.9
		}
		record(conv, observer, aicl.NewMessage(validator, aicl.RoleValidator, validateIntent, validation).WithConfidence(validateConfidence))

		if isApproved {
			approved = true
			break
		}

		revision, err := v.client.Complete(ctx, creator, []models.Turn{
			{Role: "user", Content: fmt.Sprintf("Revise based on this feedback:\n%s\n\nOriginal:\n%s", validation, currentOutput)},
		}, verifyCreatorSystem)
		if err != nil {
			return nil, err
		}
		record(conv, observer, aicl.NewMessage(creator, aicl.RoleExecutor, aicl.IntentRevision, revision).WithConfidence(0.85))

		currentOutput = revision
	}

	conv.Complete(currentOutput)
	observer.OnProgress("Verification complete", 1.0)

	quality := 0.7
	if approved {
		quality = 0.95
	}

	v.logger.Debug("verification finished",
		zap.String("conversation", conv.ID),
		zap.Bool("approved", approved),
		zap.Int("messages", conv.Len()))

	return &Result{
		Conversation:     conv,
		FinalOutput:      currentOutput,
		ConsensusReached: approved,
		Iterations:       conv.Len(),
		ModelContributions: map[string]int{
			creator:   len(conv.MessagesByModel(creator)),
			validator: len(conv.MessagesByModel(validator)),
		},
		QualityScore: quality,
	}, nil
}
