package store

import (
	"context"
	"sync"
	"time"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// MemoryStore keeps snapshots and events for the life of the process.
type MemoryStore struct {
	mutex     sync.RWMutex
	snapshots map[game.GameID][]byte
	events    map[game.GameID][]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[game.GameID][]byte),
		events:    make(map[game.GameID][]Event),
	}
}

// SaveGame stores the snapshot encoded so later changes by the caller cannot leak in.
func (m *MemoryStore) SaveGame(_ context.Context, snapshot *game.Snapshot) error {
	encoded, err := encodeSnapshot(snapshot)
	if err != nil {
		return wrapError("save game", err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.snapshots[snapshot.GameID] = encoded
	return nil
}

func (m *MemoryStore) LoadGame(_ context.Context, gameID game.GameID) (*game.Snapshot, error) {
	m.mutex.RLock()
	encoded, hasSnapshot := m.snapshots[gameID]
	m.mutex.RUnlock()

	if !hasSnapshot {
		return nil, nil
	}

	snapshot, err := decodeSnapshot(encoded)
	if err != nil {
		return nil, wrapError("load game", err)
	}
	return snapshot, nil
}

func (m *MemoryStore) LogEvent(_ context.Context, gameID game.GameID, eventType string, data map[string]any) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.events[gameID] = append(m.events[gameID], Event{
		GameID:    gameID,
		Type:      eventType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *MemoryStore) Events(_ context.Context, gameID game.GameID) ([]Event, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]Event(nil), m.events[gameID]...), nil
}

func (m *MemoryStore) Close() error {
	return nil
}
