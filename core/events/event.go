package events

import "lendledger/core/types"

// Emitter broadcasts ledger events to downstream subscribers (e.g. RPC,
// indexers, webhooks).
type Emitter interface {
	Emit(*types.Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(*types.Event) {}

// Fanout forwards every event to each of the wrapped emitters in order.
func Fanout(emitters ...Emitter) Emitter {
	return fanout(emitters)
}

type fanout []Emitter

func (f fanout) Emit(evt *types.Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(evt)
		}
	}
}
