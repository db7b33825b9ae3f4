// Package store holds the persistence backends for finished and in-flight games.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// Event is one entry of a game's event log.
type Event struct {
	GameID    game.GameID    `json:"game_id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store is a game.Persistence that can also list a game's events.
type Store interface {
	game.Persistence
	Events(ctx context.Context, gameID game.GameID) ([]Event, error)
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the store for the given driver.
func Open(ctx context.Context, driver string, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn)
	case DriverSQLite:
		return NewSQLiteStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver '%s'", driver)
	}
}

func encodeSnapshot(snapshot *game.Snapshot) ([]byte, error) {
	if snapshot == nil || !snapshot.GameID.Valid() {
		return nil, fmt.Errorf("%w: snapshot needs a game ID", game.ErrInvalidGame)
	}
	return json.Marshal(snapshot)
}

func decodeSnapshot(encoded []byte) (*game.Snapshot, error) {
	var snapshot game.Snapshot
	if err := json.Unmarshal(encoded, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func decodeEventData(encoded []byte) (map[string]any, error) {
	if len(encoded) == 0 {
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal(encoded, &data); err != nil {
		return nil, err
	}
	return data, nil
}
