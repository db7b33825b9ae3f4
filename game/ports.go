package game

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Persistence stores snapshots and the event log. Implementations live in the store package.
type Persistence interface {
	SaveGame(ctx context.Context, snapshot *Snapshot) error
	// LoadGame returns nil without an error when no game is stored under the ID.
	LoadGame(ctx context.Context, gameID GameID) (*Snapshot, error)
	LogEvent(ctx context.Context, gameID GameID, eventType string, data map[string]any) error
}

// Notifier delivers messages to chats and players. Messages are opaque to the engine.
type Notifier interface {
	Announce(ctx context.Context, chatID ChatID, text string, keyboard *Keyboard) error
	DM(ctx context.Context, userID UserID, text string, keyboard *Keyboard) error
}

type Keyboard struct {
	Rows [][]Button `json:"rows"`
}

type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (c ClockFunc) Now() time.Time {
	return c()
}

func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// Random shuffles the role multiset at game start.
type Random interface {
	Shuffle(roles []Role) []Role
}

type mathRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Random backed by math/rand with the given seed.
func NewRandom(seed int64) Random {
	return &mathRandom{rng: rand.New(rand.NewSource(seed))}
}

func (m *mathRandom) Shuffle(roles []Role) []Role {
	m.mu.Lock()
	defer m.mu.Unlock()

	shuffled := make([]Role, len(roles))
	copy(shuffled, roles)
	m.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

type nopPersistence struct{}

func (nopPersistence) SaveGame(context.Context, *Snapshot) error { return nil }

func (nopPersistence) LoadGame(context.Context, GameID) (*Snapshot, error) { return nil, nil }

func (nopPersistence) LogEvent(context.Context, GameID, string, map[string]any) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Announce(context.Context, ChatID, string, *Keyboard) error { return nil }

func (nopNotifier) DM(context.Context, UserID, string, *Keyboard) error { return nil }
