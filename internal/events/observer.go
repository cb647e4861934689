package events

import "github.com/MichaelCrowe11/crowe-logic-cli/internal/aicl"

// Observer receives orchestration callbacks. Implementations must be
// cheap or internally buffered; modes invoke them inline.
type Observer interface {
	// OnMessage fires after a message is appended to the conversation.
	OnMessage(msg *aicl.Message)
	// OnProgress fires as a run advances. fraction runs 0 to 1.
	OnProgress(stage string, fraction float64)
}

// BusObserver bridges Observer callbacks onto a bus as
// EventMessageAppended and EventProgressUpdated events.
type BusObserver struct {
	bus    *Bus
	source string
}

// NewBusObserver builds the bridge. source labels the emitting run.
func NewBusObserver(bus *Bus, source string) *BusObserver {
	return &BusObserver{bus: bus, source: source}
}

func (o *BusObserver) OnMessage(msg *aicl.Message) {
	o.bus.Publish(NewEvent(EventMessageAppended, o.source, msg))
}

func (o *BusObserver) OnProgress(stage string, fraction float64) {
	o.bus.Publish(NewEvent(EventProgressUpdated, o.source, Progress{Stage: stage, Fraction: fraction}))
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) OnMessage(*aicl.Message)    {}
func (NopObserver) OnProgress(string, float64) {}
