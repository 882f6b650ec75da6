package pause

import "errors"

// ErrPaused is returned when an operation is attempted while its switch is
// engaged.
var ErrPaused = errors.New("operation paused")

// View reports whether a named ledger operation is currently paused.
type View interface {
	IsPaused(operation string) bool
}

// Guard rejects the operation when the supplied view reports it as paused. A
// nil view never pauses anything.
func Guard(v View, operation string) error {
	if v == nil || operation == "" {
		return nil
	}
	if v.IsPaused(operation) {
		return ErrPaused
	}
	return nil
}

// Switches is a static View with one flag per ledger operation.
type Switches struct {
	Deposit   bool
	Withdraw  bool
	Borrow    bool
	Repay     bool
	Liquidate bool
}

// IsPaused implements the View interface.
func (s Switches) IsPaused(operation string) bool {
	switch operation {
	case "deposit":
		return s.Deposit
	case "withdraw":
		return s.Withdraw
	case "borrow":
		return s.Borrow
	case "repay":
		return s.Repay
	case "liquidate":
		return s.Liquidate
	}
	return false
}
