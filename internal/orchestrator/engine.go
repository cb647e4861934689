package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/events"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/llm"
	"github.com/MichaelCrowe11/crowe-logic-cli/internal/models"
)

// defaultMaxIterations seeds the context iteration budget when the
// caller leaves Options.MaxIterations zero.
const defaultMaxIterations = 5

// ModelRegistry is the slice of the completion client the engine uses
// for model registration. *llm.MultiClient satisfies it together with
// CompletionClient.
type ModelRegistry interface {
	Register(cfg models.ModelConfig)
}

// Engine owns the mode registry and dispatches runs. One engine, one
// event bus, one completion client. RegisterMode and RegisterModel are
// ordinary mutations with no locking; an engine must not be shared
// across concurrently starting runs without external synchronization.
type Engine struct {
	client CompletionClient
	logger *zap.Logger
	bus    *events.Bus

	modes         map[Mode]Algorithm
	conversations map[string]*aicl.Conversation
	closed        bool
}

// New builds an engine around a completion client. A nil logger falls
// back to a no-op logger.
func New(client CompletionClient, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		client:        client,
		logger:        logger,
		bus:           events.NewBus(nil),
		modes:         make(map[Mode]Algorithm),
		conversations: make(map[string]*aicl.Conversation),
	}
}

// NewDefault builds an engine with all four modes and the preset models
// registered.
func NewDefault(logger *zap.Logger) *Engine {
	client := llm.NewMultiClient(logger)
	engine := New(client, logger)

	engine.RegisterMode(ModeDebate, NewDebate(client, logger))
	engine.RegisterMode(ModeVerify, NewVerify(client, logger))
	engine.RegisterMode(ModeParallel, NewParallel(client, logger))
	engine.RegisterMode(ModeChain, NewChain(client, logger))

	client.Register(llm.ClaudeOpus45())
	client.Register(llm.GPT51Codex())
	client.Register(llm.GPT5Turbo())

	return engine
}

// RegisterMode binds an algorithm to a mode name.
func (e *Engine) RegisterMode(mode Mode, algo Algorithm) {
	e.modes[mode] = algo
}

// RegisterModel registers a model configuration when the underlying
// client supports registration.
func (e *Engine) RegisterModel(cfg models.ModelConfig) {
	if registry, ok := e.client.(ModelRegistry); ok {
		registry.Register(cfg)
	}
}

// Bus exposes the engine's event bus for the display layer to drain.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Orchestrate executes one collaboration run. The observer, when non-nil,
// receives message and progress callbacks synchronously and must not
// block; run events are mirrored onto the engine's bus either way. The
// completed conversation is retained and can be fetched by id afterward.
func (e *Engine) Orchestrate(ctx context.Context, prompt string, mode Mode, modelIDs []string, opts Options, observer events.Observer) (*Result, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	algo, ok := e.modes[mode]
	if !ok {
		return nil, &UnregisteredModeError{Mode: mode}
	}

	convCtx := aicl.NewContext(prompt)
	if opts.MaxIterations > 0 {
		convCtx.MaxIterations = opts.MaxIterations
	} else {
		convCtx.MaxIterations = defaultMaxIterations
	}
	conv := aicl.NewConversation(convCtx)

	opts.observer = e.composeObserver(observer, conv.ID)

	e.logger.Info("orchestration starting",
		zap.String("mode", string(mode)),
		zap.Strings("models", modelIDs),
		zap.String("conversation", conv.ID))
	e.bus.Publish(events.NewEvent(events.EventRunStarted, conv.ID, convCtx.TaskID))

	result, err := algo.Run(ctx, prompt, modelIDs, conv, opts)
	if err != nil {
		e.logger.Warn("orchestration failed",
			zap.String("mode", string(mode)),
			zap.String("conversation", conv.ID),
			zap.Error(err))
		e.bus.Publish(events.NewEvent(events.EventRunFailed, conv.ID, convCtx.TaskID))
		return nil, err
	}

	e.conversations[result.Conversation.ID] = result.Conversation
	e.bus.Publish(events.NewEvent(events.EventRunCompleted, conv.ID, convCtx.TaskID))
	return result, nil
}

// Conversation fetches a retained conversation by id.
func (e *Engine) Conversation(id string) (*aicl.Conversation, bool) {
	conv, ok := e.conversations[id]
	return conv, ok
}

// Close releases the engine's resources. Further Orchestrate calls fail
// with ErrEngineClosed. Calling Close again is a no-op.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.bus.Close()
	if closer, ok := e.client.(interface{ Close() }); ok {
		closer.Close()
	}
}

// composeObserver stacks the caller's observer (when given) on top of
// the bus bridge so both surfaces see every message and progress update.
func (e *Engine) composeObserver(observer events.Observer, source string) events.Observer {
	bridge := events.NewBusObserver(e.bus, source)
	if observer == nil {
		return bridge
	}
	return fanout{observer, bridge}
}

// fanout relays callbacks to every wrapped observer in order.
type fanout []events.Observer

func (f fanout) OnMessage(msg *aicl.Message) {
	for _, o := range f {
		o.OnMessage(msg)
	}
}

func (f fanout) OnProgress(stage string, fraction float64) {
	for _, o := range f {
		o.OnProgress(stage, fraction)
	}
}
