package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jrh3k5/forest-and-wolves/game"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	chat_id INTEGER NOT NULL,
	phase TEXT NOT NULL,
	snapshot TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS game_events (
	game_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	data TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS game_events_game_id_idx ON game_events (game_id);
`

// SQLiteStore persists games to a single SQLite file, for hosts without a database server.
type SQLiteStore struct {
	db *sqlx.DB
}

type eventRow struct {
	EventType string         `db:"event_type"`
	Data      sql.NullString `db:"data"`
	CreatedAt time.Time      `db:"created_at"`
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, wrapError("open sqlite", err)
	}
	// a single writer avoids "database is locked" under concurrent ticks
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, wrapError("migrate sqlite", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveGame(ctx context.Context, snapshot *game.Snapshot) error {
	encoded, err := encodeSnapshot(snapshot)
	if err != nil {
		return wrapError("save game", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (game_id, chat_id, phase, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (game_id) DO UPDATE
		SET chat_id = excluded.chat_id, phase = excluded.phase, snapshot = excluded.snapshot, updated_at = excluded.updated_at
	`, string(snapshot.GameID), int64(snapshot.ChatID), string(snapshot.Phase), string(encoded), time.Now().UTC())
	return wrapError("save game", err)
}

func (s *SQLiteStore) LoadGame(ctx context.Context, gameID game.GameID) (*game.Snapshot, error) {
	var encoded string
	err := s.db.GetContext(ctx, &encoded, "SELECT snapshot FROM games WHERE game_id = ?", string(gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, wrapError("load game", err)
	}

	snapshot, err := decodeSnapshot([]byte(encoded))
	return snapshot, wrapError("load game", err)
}

func (s *SQLiteStore) LogEvent(ctx context.Context, gameID game.GameID, eventType string, data map[string]any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return wrapError("log event", err)
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO game_events (game_id, event_type, data, created_at) VALUES (?, ?, ?, ?)",
		string(gameID), eventType, string(encoded), time.Now().UTC())
	return wrapError("log event", err)
}

func (s *SQLiteStore) Events(ctx context.Context, gameID game.GameID) ([]Event, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT event_type, data, created_at
		FROM game_events
		WHERE game_id = ?
		ORDER BY rowid
	`, string(gameID))
	if err != nil {
		return nil, wrapError("list events", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		data, err := decodeEventData([]byte(row.Data.String))
		if err != nil {
			return nil, wrapError("list events", err)
		}
		events = append(events, Event{GameID: gameID, Type: row.EventType, Data: data, CreatedAt: row.CreatedAt})
	}
	return events, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
