package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jrh3k5/forest-and-wolves/game"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		game_id TEXT PRIMARY KEY,
		chat_id BIGINT NOT NULL,
		phase TEXT NOT NULL,
		snapshot JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS game_events (
		id BIGSERIAL PRIMARY KEY,
		game_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		data JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS game_events_game_id_idx ON game_events (game_id, id)`,
}

// PostgresStore persists games as JSONB documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, wrapError("parse postgres config", err)
	}

	cpus := int32(runtime.NumCPU())
	poolConfig.MaxConns = cpus * 2
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapError("create postgres pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapError("ping postgres", err)
	}

	for _, statement := range postgresSchema {
		if _, err := pool.Exec(ctx, statement); err != nil {
			pool.Close()
			return nil, wrapError("migrate postgres", err)
		}
	}

	slog.Info("connected to postgres", "maxConns", poolConfig.MaxConns)
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) SaveGame(ctx context.Context, snapshot *game.Snapshot) error {
	encoded, err := encodeSnapshot(snapshot)
	if err != nil {
		return wrapError("save game", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO games (game_id, chat_id, phase, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (game_id) DO UPDATE
		SET chat_id = EXCLUDED.chat_id, phase = EXCLUDED.phase, snapshot = EXCLUDED.snapshot, updated_at = NOW()
	`, string(snapshot.GameID), int64(snapshot.ChatID), string(snapshot.Phase), encoded)
	return wrapError("save game", err)
}

func (p *PostgresStore) LoadGame(ctx context.Context, gameID game.GameID) (*game.Snapshot, error) {
	var encoded []byte
	err := p.pool.QueryRow(ctx, `SELECT snapshot FROM games WHERE game_id = $1`, string(gameID)).Scan(&encoded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, wrapError("load game", err)
	}

	snapshot, err := decodeSnapshot(encoded)
	if err != nil {
		return nil, wrapError("load game", fmt.Errorf("failed to decode snapshot for '%s': %w", gameID, err))
	}
	return snapshot, nil
}

func (p *PostgresStore) LogEvent(ctx context.Context, gameID game.GameID, eventType string, data map[string]any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return wrapError("log event", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO game_events (game_id, event_type, data)
		VALUES ($1, $2, $3)
	`, string(gameID), eventType, encoded)
	return wrapError("log event", err)
}

func (p *PostgresStore) Events(ctx context.Context, gameID game.GameID) ([]Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT event_type, data, created_at
		FROM game_events
		WHERE game_id = $1
		ORDER BY id
	`, string(gameID))
	if err != nil {
		return nil, wrapError("list events", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event := Event{GameID: gameID}
		var encoded []byte
		if err := rows.Scan(&event.Type, &encoded, &event.CreatedAt); err != nil {
			return nil, wrapError("list events", err)
		}
		if event.Data, err = decodeEventData(encoded); err != nil {
			return nil, wrapError("list events", err)
		}
		events = append(events, event)
	}

	return events, wrapError("list events", rows.Err())
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
