package journal

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lendledger/core/types"
)

// recordTimeout bounds how long an event write may stall the emitting
// operation's goroutine.
const recordTimeout = 5 * time.Second

// Recorder adapts the Store to the ledger's event emitter interface, turning
// position events into journal entries. Registry events are skipped; they are
// configuration changes, not value movements. Failures are logged and
// swallowed so a full disk never blocks the ledger.
type Recorder struct {
	store *Store
	log   *slog.Logger
}

// NewRecorder wraps the store.
func NewRecorder(store *Store, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{store: store, log: log}
}

// Emit implements the events.Emitter interface.
func (r *Recorder) Emit(evt *types.Event) {
	if r == nil || r.store == nil || evt == nil {
		return
	}
	if !strings.HasPrefix(evt.Type, "ledger.") {
		return
	}
	entry := Entry{
		Type:       strings.TrimPrefix(evt.Type, "ledger."),
		User:       evt.Attributes["user"],
		Liquidator: evt.Attributes["liquidator"],
		Symbol:     evt.Attributes["symbol"],
		Amount:     evt.Attributes["amount"],
		Deposited:  evt.Attributes["deposited"],
		Borrowed:   evt.Attributes["borrowed"],
		Seized:     evt.Attributes["seized"],
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.store.Record(ctx, entry); err != nil {
		r.log.Warn("journal write failed", "type", entry.Type, "user", entry.User, "err", err)
	}
}
