package events

import (
	"testing"

	"lendledger/core/types"
)

type capture struct {
	seen []string
}

func (c *capture) Emit(evt *types.Event) {
	c.seen = append(c.seen, evt.Type)
}

func TestFanoutForwardsInOrder(t *testing.T) {
	first := &capture{}
	second := &capture{}
	emitter := Fanout(first, nil, second)

	emitter.Emit(&types.Event{Type: "ledger.deposited"})
	emitter.Emit(&types.Event{Type: "ledger.borrowed"})

	for _, c := range []*capture{first, second} {
		if len(c.seen) != 2 || c.seen[0] != "ledger.deposited" || c.seen[1] != "ledger.borrowed" {
			t.Fatalf("events: got %v", c.seen)
		}
	}
}
