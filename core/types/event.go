package types

// Event represents a typed notification emitted by the ledger after a
// committed state transition.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
