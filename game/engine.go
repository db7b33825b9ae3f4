package game

import (
	"context"
	"time"
)

// Engine is the host-facing surface of the game engine. Validation faults come back as an
// ActionResult with Success false; errors are reserved for unknown games, finished games and
// invariant violations.
type Engine interface {
	AddPlayer(ctx context.Context, gameID GameID, userID UserID, username Username) (ActionResult, error)
	Advance(ctx context.Context, gameID GameID) (*PhaseReport, error)
	AvailableTargets(ctx context.Context, gameID GameID, userID UserID) ([]*Player, ActionResult, error)
	Cancel(ctx context.Context, gameID GameID) error
	CreateGame(ctx context.Context, request CreateGameRequest) (GameID, error)
	GameForChat(ctx context.Context, chatID ChatID) (GameID, bool)
	GetSnapshot(ctx context.Context, gameID GameID) (*Snapshot, error)
	GrantExtraLives(ctx context.Context, gameID GameID, userID UserID, lives int) (ActionResult, error)
	PurgeStaleLobbies(ctx context.Context, maxAge time.Duration) int
	RemovePlayer(ctx context.Context, gameID GameID, userID UserID) (ActionResult, error)
	Restore(ctx context.Context, snapshot *Snapshot) error
	StartGame(ctx context.Context, gameID GameID) (ActionResult, error)
	SubmitNightAction(ctx context.Context, gameID GameID, userID UserID, targetID *UserID) (ActionResult, error)
	SubmitVote(ctx context.Context, gameID GameID, voterID UserID, targetID *UserID) (ActionResult, error)
	Tick(ctx context.Context, gameID GameID) (*PhaseReport, error)
	TickAll(ctx context.Context) error
}

type CreateGameRequest struct {
	ChatID   ChatID
	ThreadID *int64
	TestMode bool
	// Settings overrides the engine defaults for this chat when set.
	Settings *Settings
}

// Event types written to the persistence event log.
const (
	EventGameCreated   = "game_created"
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventGameStarted   = "game_started"
	EventNightAction   = "night_action"
	EventVote          = "vote"
	EventPhaseChanged  = "phase_changed"
	EventPlayerDied    = "player_died"
	EventExtraLives    = "extra_lives"
	EventExtraLifeUsed = "extra_life_used"
	EventGameOver      = "game_over"
	EventGameCancelled = "game_cancelled"
)
