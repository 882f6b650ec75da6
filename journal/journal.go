// Package journal keeps an append-only history of committed ledger
// operations in SQLite. The history is advisory: recording happens after the
// ledger has committed and a journal failure never rolls the operation back.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one committed operation.
type Entry struct {
	ID         string
	Type       string
	User       string
	Liquidator string
	Symbol     string
	Amount     string
	Deposited  string
	Borrowed   string
	Seized     string
	OccurredAt time.Time
}

// Store persists journal entries.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	schema := `CREATE TABLE IF NOT EXISTS operations (
            id TEXT PRIMARY KEY,
            op_type TEXT NOT NULL,
            user TEXT NOT NULL,
            liquidator TEXT,
            symbol TEXT NOT NULL,
            amount TEXT NOT NULL,
            deposited TEXT,
            borrowed TEXT,
            seized TEXT,
            occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("journal: init schema: %w", err)
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_operations_user ON operations(user, occurred_at);`); err != nil {
		return fmt.Errorf("journal: init index: %w", err)
	}
	return nil
}

// Record appends an entry, assigning an identifier and timestamp when the
// caller left them empty.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (id, op_type, user, liquidator, symbol, amount, deposited, borrowed, seized, occurred_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.User, e.Liquidator, e.Symbol, e.Amount, e.Deposited, e.Borrowed, e.Seized, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", e.Type, err)
	}
	return nil
}

// ListByUser returns the user's most recent entries, newest first.
func (s *Store) ListByUser(ctx context.Context, user string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, op_type, user, liquidator, symbol, amount, deposited, borrowed, seized, occurred_at
         FROM operations WHERE user = ? ORDER BY occurred_at DESC LIMIT ?`, user, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list for %s: %w", user, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Type, &e.User, &e.Liquidator, &e.Symbol,
			&e.Amount, &e.Deposited, &e.Borrowed, &e.Seized, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
