// Package orchestrator coordinates multi-model collaboration runs. An
// Engine owns a registry of mode algorithms and dispatches each run to
// one of them; the algorithms drive turn-taking through the completion
// client and record every turn in an AICL conversation.
package orchestrator

import (
	"context"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/events"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

// Mode names one collaboration algorithm. The set is closed; new modes
// are added here and registered explicitly, never discovered.
type Mode string

const (
	ModeDebate   Mode = "debate"   // models argue opposing perspectives
	ModeVerify   Mode = "verify"   // one creates, one validates
	ModeParallel Mode = "parallel" // simultaneous work, best wins
	ModeChain    Mode = "chain"    // sequential pipeline
)

// CompletionClient is the slice of the completion client the algorithms
// consume. *llm.MultiClient satisfies it.
type CompletionClient interface {
	Complete(ctx context.Context, modelID string, turns []models.Turn, system string) (string, error)
}

// Algorithm runs one collaboration pattern. Implementations must
// validate their model-count precondition before any network I/O,
// append every turn to the conversation in chronological order, and
// complete the conversation exactly once on success. On a mid-run error
// they return it raw and leave the conversation un-completed.
type Algorithm interface {
	Run(ctx context.Context, prompt string, modelIDs []string, conv *aicl.Conversation, opts Options) (*Result, error)
}

// DebateOptions tunes debate mode.
type DebateOptions struct {
	// Rounds is the number of rebuttal pairs after the openings.
	// Zero means 3.
	Rounds int
}

// VerifyOptions tunes verify mode.
type VerifyOptions struct {
	// MaxIterations bounds the validate/revise cycles. Zero means 3.
	MaxIterations int
}

// ParallelOptions tunes parallel mode.
type ParallelOptions struct {
	// FirstResponseWins skips parsing the evaluator's verdict and
	// returns the first listed model's response unconditionally. The
	// default parses the evaluator's BEST line and falls back to the
	// first response only when no verdict can be matched.
	FirstResponseWins bool
}

// ChainOptions tunes chain mode.
type ChainOptions struct {
	// Instructions supplies a per-step instruction by position. Steps
	// beyond its length use a generic improve-and-enhance instruction.
	Instructions []string
}

// Options carries run-wide and per-mode settings. The zero value means
// defaults throughout.
type Options struct {
	// MaxIterations seeds the context's iteration budget. Zero means 5.
	MaxIterations int

	Debate   DebateOptions
	Verify   VerifyOptions
	Parallel ParallelOptions
	Chain    ChainOptions

	// observer receives message and progress callbacks. The engine
	// fills it in before dispatch; algorithms treat it as always set.
	observer events.Observer
}

// notify returns the effective observer.
func (o Options) notify() events.Observer {
	if o.observer == nil {
		return events.NopObserver{}
	}
	return o.observer
}

// Result is the outcome of one completed run. It is never mutated after
// return.
type Result struct {
	Conversation       *aicl.Conversation `json:"conversation"`
	FinalOutput        string             `json:"final_output"`
	ConsensusReached   bool               `json:"consensus_reached"`
	Iterations         int                `json:"iterations"`
	ModelContributions map[string]int     `json:"model_contributions"`
	QualityScore       float64            `json:"quality_score"`
}

// record appends a message to the conversation and notifies the
// observer, keeping the two in lockstep.
func record(conv *aicl.Conversation, observer events.Observer, msg *aicl.Message) {
	conv.Append(msg)
	observer.OnMessage(msg)
}
