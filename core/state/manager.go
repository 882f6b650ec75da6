// Package state persists ledger records in a key-value database. Records are
// kept in the KV namespace under typed prefixes with a JSON codec; the
// registration-order symbol list is a single key so enumeration stays cheap.
package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"lendledger/ledger"
	"lendledger/storage"
)

var (
	assetPrefix    = []byte("ledger/asset/")
	positionPrefix = []byte("ledger/position/")
	symbolsKey     = []byte("ledger/symbols")
)

// Manager implements the ledger's State contract over a storage.Database.
// Every Get unmarshals a fresh value, so callers can mutate the result freely
// before committing it with the matching Put.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func assetKey(symbol string) []byte {
	return append(append([]byte(nil), assetPrefix...), symbol...)
}

// Position keys are namespaced per asset so a prefix walk visits exactly one
// asset's positions. The user identity follows the separator verbatim.
func positionKey(user, symbol string) []byte {
	key := append(append([]byte(nil), positionPrefix...), symbol...)
	key = append(key, '/')
	return append(key, user...)
}

// GetAsset loads a registered asset, returning nil when the symbol is
// unknown.
func (m *Manager) GetAsset(symbol string) (*ledger.Asset, error) {
	raw, err := m.db.Get(assetKey(symbol))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load asset %s: %w", symbol, err)
	}
	var asset ledger.Asset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return nil, fmt.Errorf("state: decode asset %s: %w", symbol, err)
	}
	return &asset, nil
}

// PutAsset stores the asset record.
func (m *Manager) PutAsset(asset *ledger.Asset) error {
	raw, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("state: encode asset %s: %w", asset.Symbol, err)
	}
	return m.db.Put(assetKey(asset.Symbol), raw)
}

// GetPosition loads a position, returning nil when the pair has never been
// stored.
func (m *Manager) GetPosition(user, symbol string) (*ledger.Position, error) {
	raw, err := m.db.Get(positionKey(user, symbol))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load position %s/%s: %w", user, symbol, err)
	}
	var pos ledger.Position
	if err := json.Unmarshal(raw, &pos); err != nil {
		return nil, fmt.Errorf("state: decode position %s/%s: %w", user, symbol, err)
	}
	return &pos, nil
}

// PutPosition stores the position record.
func (m *Manager) PutPosition(pos *ledger.Position) error {
	raw, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("state: encode position %s/%s: %w", pos.User, pos.Symbol, err)
	}
	return m.db.Put(positionKey(pos.User, pos.Symbol), raw)
}

// Symbols returns the registered symbols in registration order.
func (m *Manager) Symbols() ([]string, error) {
	raw, err := m.db.Get(symbolsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load symbols: %w", err)
	}
	var symbols []string
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, fmt.Errorf("state: decode symbols: %w", err)
	}
	return symbols, nil
}

// AppendSymbol records a newly registered symbol at the end of the list.
func (m *Manager) AppendSymbol(symbol string) error {
	symbols, err := m.Symbols()
	if err != nil {
		return err
	}
	symbols = append(symbols, symbol)
	raw, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("state: encode symbols: %w", err)
	}
	return m.db.Put(symbolsKey, raw)
}

// ForEachPosition walks every stored position of the asset.
func (m *Manager) ForEachPosition(symbol string, fn func(*ledger.Position) error) error {
	prefix := append(append([]byte(nil), positionPrefix...), symbol...)
	prefix = append(prefix, '/')
	return m.db.Iterate(prefix, func(_, value []byte) error {
		var pos ledger.Position
		if err := json.Unmarshal(value, &pos); err != nil {
			return fmt.Errorf("state: decode position under %s: %w", symbol, err)
		}
		return fn(&pos)
	})
}
