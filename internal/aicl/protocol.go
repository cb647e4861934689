// Package aicl defines the structured message protocol for AI-to-AI
// communication. It lets independently hosted models exchange context,
// reasoning, critiques, and synthesis inside one shared conversation.
package aicl

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies what part an agent plays in a conversation.
type Role string

const (
	RoleInitiator    Role = "initiator"    // starts the task
	RoleResponder    Role = "responder"    // responds to the initiator
	RoleReviewer     Role = "reviewer"     // reviews/critiques work
	RoleSynthesizer  Role = "synthesizer"  // combines multiple perspectives
	RoleValidator    Role = "validator"    // fact-checks and validates
	RoleExecutor     Role = "executor"     // executes code/actions
	RoleOrchestrator Role = "orchestrator" // human or system coordinator
)

// Intent describes what action a message performs.
type Intent string

const (
	// Primary intents.
	IntentQuery      Intent = "query"
	IntentResponse   Intent = "response"
	IntentProposal   Intent = "proposal"
	IntentCritique   Intent = "critique"
	IntentRevision   Intent = "revision"
	IntentSynthesis  Intent = "synthesis"
	IntentValidation Intent = "validation"
	IntentRejection  Intent = "rejection"

	// Code-specific intents.
	IntentCodeGenerate Intent = "code_generate"
	IntentCodeReview   Intent = "code_review"
	IntentCodeFix      Intent = "code_fix"
	IntentCodeOptimize Intent = "code_optimize"
	IntentCodeExplain  Intent = "code_explain"

	// Research intents.
	IntentResearch    Intent = "research"
	IntentFactCheck   Intent = "fact_check"
	IntentCiteSources Intent = "cite_sources"

	// Debate intents.
	IntentArgueFor     Intent = "argue_for"
	IntentArgueAgainst Intent = "argue_against"
	IntentConcede      Intent = "concede"
	IntentCounter      Intent = "counter"

	// Meta intents.
	IntentClarify  Intent = "clarify"
	IntentDelegate Intent = "delegate"
	IntentComplete Intent = "complete"
	IntentError    Intent = "error"
)

// CodeBlock is a fenced code attachment on a message.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Citation references an external source backing a claim.
type Citation struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Message is a single turn in an AICL conversation.
//
// Confidence is a real number intended to lie in [0,1] but it is never
// clamped here; callers own the bound.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	SenderModel string `json:"sender_model"`
	SenderRole  Role   `json:"sender_role"`

	Intent    Intent `json:"intent"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`

	Confidence     float64            `json:"confidence"`
	QualitySignals map[string]float64 `json:"quality_signals,omitempty"`

	// RefID points at the message this one replies to, when any.
	RefID             string   `json:"references_message_id,omitempty"`
	ArtifactsModified []string `json:"artifacts_modified,omitempty"`

	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`
	Citations  []Citation  `json:"citations,omitempty"`
}

// NewMessage builds a message with a fresh ID and timestamp.
func NewMessage(sender string, role Role, intent Intent, content string) *Message {
	return &Message{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		SenderModel: sender,
		SenderRole:  role,
		Intent:      intent,
		Content:     content,
	}
}

// WithConfidence sets the confidence and returns the message. The value is
// stored as given; out-of-range values are the caller's responsibility.
func (m *Message) WithConfidence(c float64) *Message {
	m.Confidence = c
	return m
}

// WithReasoning attaches chain-of-thought text and returns the message.
func (m *Message) WithReasoning(r string) *Message {
	m.Reasoning = r
	return m
}

// WithRef marks the message as a reply to a prior message id.
func (m *Message) WithRef(id string) *Message {
	m.RefID = id
	return m
}

// Artifact is a named piece of shared state with a type tag.
type Artifact struct {
	Value   any       `json:"value"`
	Type    string    `json:"type"`
	AddedAt time.Time `json:"added_at"`
}

// Context is the shared task state visible to every participant in a run.
type Context struct {
	TaskID             string              `json:"task_id"`
	OriginalPrompt     string              `json:"original_prompt"`
	CurrentObjective   string              `json:"current_objective"`
	Constraints        []string            `json:"constraints,omitempty"`
	Artifacts          map[string]Artifact `json:"artifacts,omitempty"`
	ConfidenceRequired float64             `json:"confidence_required"`
	MaxIterations      int                 `json:"max_iterations"`
	CurrentIteration   int                 `json:"current_iteration"`
	ConsensusReached   bool                `json:"consensus_reached"`
	Metadata           map[string]any      `json:"metadata,omitempty"`
}

// NewContext seeds a context for one task. The prompt doubles as the
// initial objective, matching how the engine starts every run.
func NewContext(prompt string) *Context {
	return &Context{
		TaskID:             uuid.New().String(),
		OriginalPrompt:     prompt,
		CurrentObjective:   prompt,
		Artifacts:          make(map[string]Artifact),
		ConfidenceRequired: 0.8,
		MaxIterations:      5,
	}
}

// AddArtifact stores a named artifact. An empty artifactType defaults to
// "text".
func (c *Context) AddArtifact(key string, value any, artifactType string) {
	if artifactType == "" {
		artifactType = "text"
	}
	if c.Artifacts == nil {
		c.Artifacts = make(map[string]Artifact)
	}
	c.Artifacts[key] = Artifact{Value: value, Type: artifactType, AddedAt: time.Now().UTC()}
}

// Artifact returns a stored artifact value, or nil when absent.
func (c *Context) Artifact(key string) any {
	if a, ok := c.Artifacts[key]; ok {
		return a.Value
	}
	return nil
}

// Status of a conversation.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Participant is the registration record for one model in a conversation.
type Participant struct {
	Role         Role      `json:"role"`
	Provider     string    `json:"provider"`
	JoinedAt     time.Time `json:"joined_at"`
	MessageCount int       `json:"message_count"`
}

// Conversation is the complete record of one orchestration run: the shared
// context, every message in append order, and the participating models.
type Conversation struct {
	mu sync.Mutex

	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Context  *Context   `json:"context"`
	Messages []*Message `json:"messages"`

	Models map[string]*Participant `json:"models"`

	Status      Status `json:"status"`
	FinalOutput string `json:"final_output,omitempty"`
}

// NewConversation starts an active conversation owning the given context.
func NewConversation(ctx *Context) *Conversation {
	if ctx == nil {
		ctx = NewContext("")
	}
	return &Conversation{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Context:   ctx,
		Models:    make(map[string]*Participant),
		Status:    StatusActive,
	}
}

// AddModel registers a participating model.
func (c *Conversation) AddModel(modelID string, role Role, provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Models[modelID] = &Participant{
		Role:     role,
		Provider: provider,
		JoinedAt: time.Now().UTC(),
	}
}

// Append adds a message. It increments the context iteration counter by
// exactly one and, when the sender is registered, that model's message
// count by exactly one. Messages are never reordered or removed.
func (c *Conversation) Append(msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = append(c.Messages, msg)
	if p, ok := c.Models[msg.SenderModel]; ok {
		p.MessageCount++
	}
	c.Context.CurrentIteration++
}

// Complete transitions the conversation to completed and records the final
// output. It is a no-op after the first call.
func (c *Conversation) Complete(final string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Status == StatusCompleted {
		return
	}
	c.Status = StatusCompleted
	c.FinalOutput = final
}

// MessagesByModel returns every message sent by one model, in append order.
func (c *Conversation) MessagesByModel(modelID string) []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Message
	for _, m := range c.Messages {
		if m.SenderModel == modelID {
			out = append(out, m)
		}
	}
	return out
}

// MessagesByIntent returns every message carrying the given intent.
func (c *Conversation) MessagesByIntent(intent Intent) []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Message
	for _, m := range c.Messages {
		if m.Intent == intent {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of appended messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Messages)
}
