package game

import (
	"fmt"
	"time"
)

// Snapshot is the complete serialisable view of a game, enough to resume it deterministically.
type Snapshot struct {
	GameID         GameID                 `json:"game_id"`
	ChatID         ChatID                 `json:"chat_id"`
	ThreadID       *int64                 `json:"thread_id,omitempty"`
	IsTestMode     bool                   `json:"is_test_mode"`
	Settings       Settings               `json:"settings"`
	Phase          Phase                  `json:"phase"`
	CurrentRound   int                    `json:"current_round"`
	Players        []PlayerSnapshot       `json:"players"`
	NightActions   map[UserID]NightAction `json:"night_actions"`
	Votes          map[UserID]*UserID     `json:"votes"`
	GameDuration   GameDuration           `json:"game_duration"`
	PhaseEndTime   *time.Time             `json:"phase_end_time,omitempty"`
	Statistics     Statistics             `json:"statistics"`
	Winner         *Team                  `json:"winner,omitempty"`
	Cancelled      bool                   `json:"cancelled"`
	CreatedAt      time.Time              `json:"created_at"`
	ActionSequence int                    `json:"action_sequence"`
}

type PlayerSnapshot struct {
	UserID                    UserID      `json:"user_id"`
	Username                  Username    `json:"username"`
	Role                      Role        `json:"role"`
	Team                      Team        `json:"team"`
	Supplies                  Supplies    `json:"supplies"`
	IsAlive                   bool        `json:"is_alive"`
	DeathReason               DeathReason `json:"death_reason,omitempty"`
	ExtraLives                int         `json:"extra_lives"`
	IsBeaverProtected         bool        `json:"is_beaver_protected"`
	StolenSupplies            int         `json:"stolen_supplies"`
	ConsecutiveNightsSurvived int         `json:"consecutive_nights_survived"`
}

// normalizeTime drops the monotonic reading and location so snapshots compare by value.
func normalizeTime(t time.Time) time.Time {
	return t.Round(0).UTC()
}

func normalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	normalized := normalizeTime(*t)
	return &normalized
}

// Snapshot returns a deep copy of the game's state.
func (g *Game) Snapshot() *Snapshot {
	snapshot := &Snapshot{
		GameID:       g.ID,
		ChatID:       g.ChatID,
		IsTestMode:   g.IsTestMode,
		Settings:     g.Settings,
		Phase:        g.Phase,
		CurrentRound: g.CurrentRound,
		Players:      make([]PlayerSnapshot, 0, len(g.playerOrder)),
		NightActions: make(map[UserID]NightAction, len(g.NightActions)),
		Votes:        make(map[UserID]*UserID, len(g.Votes)),
		GameDuration: GameDuration{
			StartTime: normalizeTimePtr(g.Duration.StartTime),
			EndTime:   normalizeTimePtr(g.Duration.EndTime),
		},
		PhaseEndTime:   normalizeTimePtr(g.PhaseEndTime),
		Statistics:     g.Statistics,
		Cancelled:      g.Cancelled,
		CreatedAt:      normalizeTime(g.CreatedAt),
		ActionSequence: g.actionSequence,
	}

	if g.ThreadID != nil {
		threadID := *g.ThreadID
		snapshot.ThreadID = &threadID
	}

	if g.Winner != nil {
		winner := *g.Winner
		snapshot.Winner = &winner
	}

	for _, player := range g.orderedPlayers() {
		snapshot.Players = append(snapshot.Players, PlayerSnapshot{
			UserID:                    player.UserID,
			Username:                  player.Username,
			Role:                      player.Role,
			Team:                      player.Team,
			Supplies:                  player.Supplies,
			IsAlive:                   player.IsAlive,
			DeathReason:               player.DeathReason,
			ExtraLives:                player.ExtraLives,
			IsBeaverProtected:         player.IsBeaverProtected,
			StolenSupplies:            player.StolenSupplies,
			ConsecutiveNightsSurvived: player.ConsecutiveNightsSurvived,
		})
	}

	for actorID, action := range g.NightActions {
		if action.Target != nil {
			target := *action.Target
			action.Target = &target
		}
		snapshot.NightActions[actorID] = action
	}

	for voterID, targetID := range g.Votes {
		if targetID == nil {
			snapshot.Votes[voterID] = nil
			continue
		}
		target := *targetID
		snapshot.Votes[voterID] = &target
	}

	return snapshot
}

// Restore rebuilds a game from a snapshot and verifies its invariants.
func Restore(snapshot *Snapshot) (*Game, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidGame)
	} else if !snapshot.GameID.Valid() || !snapshot.ChatID.Valid() {
		return nil, fmt.Errorf("%w: snapshot needs a game ID and chat ID", ErrInvalidGame)
	}

	// Settings are copied verbatim so a restored game snapshots identically.
	g := NewGame(snapshot.GameID, snapshot.ChatID, nil, snapshot.IsTestMode, snapshot.Settings, snapshot.CreatedAt)
	g.Settings = snapshot.Settings
	g.Phase = snapshot.Phase
	g.CurrentRound = snapshot.CurrentRound
	g.Statistics = snapshot.Statistics
	g.Cancelled = snapshot.Cancelled
	g.actionSequence = snapshot.ActionSequence
	g.Duration = GameDuration{
		StartTime: normalizeTimePtr(snapshot.GameDuration.StartTime),
		EndTime:   normalizeTimePtr(snapshot.GameDuration.EndTime),
	}
	g.PhaseEndTime = normalizeTimePtr(snapshot.PhaseEndTime)
	g.CreatedAt = normalizeTime(snapshot.CreatedAt)

	if snapshot.ThreadID != nil {
		threadID := *snapshot.ThreadID
		g.ThreadID = &threadID
	}

	if snapshot.Winner != nil {
		winner := *snapshot.Winner
		g.Winner = &winner
	}

	for _, playerSnapshot := range snapshot.Players {
		if !playerSnapshot.UserID.Valid() || !playerSnapshot.Role.Valid() {
			return nil, fmt.Errorf("%w: invalid player %d with role %q", ErrInvalidGame, playerSnapshot.UserID, playerSnapshot.Role)
		}
		if _, duplicate := g.players[playerSnapshot.UserID]; duplicate {
			return nil, fmt.Errorf("%w: duplicate player %d", ErrInvalidGame, playerSnapshot.UserID)
		}

		g.players[playerSnapshot.UserID] = &Player{
			UserID:                    playerSnapshot.UserID,
			Username:                  playerSnapshot.Username,
			Role:                      playerSnapshot.Role,
			Team:                      playerSnapshot.Team,
			Supplies:                  playerSnapshot.Supplies,
			IsAlive:                   playerSnapshot.IsAlive,
			DeathReason:               playerSnapshot.DeathReason,
			ExtraLives:                playerSnapshot.ExtraLives,
			IsBeaverProtected:         playerSnapshot.IsBeaverProtected,
			StolenSupplies:            playerSnapshot.StolenSupplies,
			ConsecutiveNightsSurvived: playerSnapshot.ConsecutiveNightsSurvived,
		}
		g.playerOrder = append(g.playerOrder, playerSnapshot.UserID)
	}

	for actorID, action := range snapshot.NightActions {
		if action.Target != nil {
			target := *action.Target
			action.Target = &target
		}
		g.NightActions[actorID] = action
	}

	for voterID, targetID := range snapshot.Votes {
		if targetID == nil {
			g.Votes[voterID] = nil
			continue
		}
		target := *targetID
		g.Votes[voterID] = &target
	}

	if err := g.CheckInvariants(); err != nil {
		return nil, err
	}

	return g, nil
}
