package game

import (
	"errors"
	"fmt"
	"time"
)

// UserID identifies a participant. Valid identifiers are positive.
type UserID int64

func (u UserID) Valid() bool {
	return u > 0
}

// ChatID identifies the chat hosting a game. Valid identifiers are non-zero.
type ChatID int64

func (c ChatID) Valid() bool {
	return c != 0
}

// GameID identifies a game. Valid identifiers are non-empty.
type GameID string

func (g GameID) Valid() bool {
	return g != ""
}

// Username is the display name a player joined with.
type Username string

func (u Username) Valid() bool {
	return u != ""
}

type Team string

const TeamPredators Team = "predators"
const TeamHerbivores Team = "herbivores"

type Role string

const RoleWolf Role = "wolf"
const RoleFox Role = "fox"
const RoleHare Role = "hare"
const RoleMole Role = "mole"
const RoleBeaver Role = "beaver"

// Team returns the team a role always belongs to.
func (r Role) Team() Team {
	switch r {
	case RoleWolf, RoleFox:
		return TeamPredators
	default:
		return TeamHerbivores
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleWolf, RoleFox, RoleHare, RoleMole, RoleBeaver:
		return true
	}
	return false
}

type Phase string

const PhaseWaiting Phase = "waiting"
const PhaseNight Phase = "night"
const PhaseDay Phase = "day"
const PhaseVoting Phase = "voting"
const PhaseGameOver Phase = "game_over"

type DeathReason string

const DeathReasonKilled DeathReason = "killed"
const DeathReasonVotedOut DeathReason = "voted_out"
const DeathReasonStarvation DeathReason = "starvation"
const DeathReasonCancelled DeathReason = "cancelled"

// Supplies is an immutable (current, maximum) pair with 0 <= current <= maximum and maximum >= 1.
type Supplies struct {
	Current int `json:"current"`
	Maximum int `json:"maximum"`
}

var errInvalidSupplies = errors.New("invalid supplies")

func NewSupplies(current int, maximum int) (Supplies, error) {
	if maximum < 1 || current < 0 || current > maximum {
		return Supplies{}, fmt.Errorf("%w: %d/%d", errInvalidSupplies, current, maximum)
	}

	return Supplies{Current: current, Maximum: maximum}, nil
}

// FullSupplies returns a full store of the given size.
func FullSupplies(maximum int) Supplies {
	if maximum < 1 {
		maximum = 1
	}
	return Supplies{Current: maximum, Maximum: maximum}
}

func (s Supplies) Valid() bool {
	return s.Maximum >= 1 && s.Current >= 0 && s.Current <= s.Maximum
}

// IsCritical reports whether the player is one unit or less from starving.
func (s Supplies) IsCritical() bool {
	return s.Current <= 1
}

func (s Supplies) CanConsume(n int) bool {
	return n >= 0 && s.Current >= n
}

func (s Supplies) Consume(n int) (Supplies, error) {
	if !s.CanConsume(n) {
		return s, fmt.Errorf("%w: cannot consume %d of %d", errInvalidSupplies, n, s.Current)
	}

	return Supplies{Current: s.Current - n, Maximum: s.Maximum}, nil
}

// Add returns the new supplies and how much was actually added, saturating at the maximum.
func (s Supplies) Add(n int) (Supplies, int) {
	if n <= 0 {
		return s, 0
	}

	added := min(n, s.Maximum-s.Current)
	return Supplies{Current: s.Current + added, Maximum: s.Maximum}, added
}

// GameDuration records when a game started and ended.
type GameDuration struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Statistics are the per-game counters reported at game end.
type Statistics struct {
	PredatorKills      int `json:"predator_kills"`
	HerbivoreSurvivals int `json:"herbivore_survivals"`
	FoxThefts          int `json:"fox_thefts"`
	BeaverProtections  int `json:"beaver_protections"`
}
