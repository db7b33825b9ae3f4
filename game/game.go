package game

import (
	"errors"
	"fmt"
	"time"
)

// NightAction is a staged night choice. Sequence orders submissions within a night.
type NightAction struct {
	Role     Role    `json:"role"`
	Target   *UserID `json:"target,omitempty"`
	Sequence int     `json:"sequence"`
}

// Death records a player leaving the alive set.
type Death struct {
	UserID   UserID      `json:"user_id"`
	Username Username    `json:"username"`
	Role     Role        `json:"role"`
	Team     Team        `json:"team"`
	Reason   DeathReason `json:"reason"`
}

func deathOf(p *Player) Death {
	return Death{UserID: p.UserID, Username: p.Username, Role: p.Role, Team: p.Team, Reason: p.DeathReason}
}

// applyLethal spends one of the player's extra lives, or kills the player when none are left.
// It reports whether the player died.
func applyLethal(p *Player, reason DeathReason) bool {
	if p.ExtraLives > 0 {
		p.ExtraLives--
		return false
	}
	p.Die(reason)
	return true
}

// Game is the aggregate for one match. It is not safe for concurrent use; the engine
// serialises access per game.
type Game struct {
	ID           GameID
	ChatID       ChatID
	ThreadID     *int64
	IsTestMode   bool
	Settings     Settings
	Phase        Phase
	CurrentRound int
	NightActions map[UserID]NightAction
	Votes        map[UserID]*UserID
	Duration     GameDuration
	PhaseEndTime *time.Time
	Statistics   Statistics
	Winner       *Team
	Cancelled    bool
	CreatedAt    time.Time

	players        map[UserID]*Player
	playerOrder    []UserID
	actionSequence int
}

func NewGame(id GameID, chatID ChatID, threadID *int64, testMode bool, settings Settings, now time.Time) *Game {
	return &Game{
		ID:           id,
		ChatID:       chatID,
		ThreadID:     threadID,
		IsTestMode:   testMode,
		Settings:     settings.withDefaults(),
		Phase:        PhaseWaiting,
		NightActions: make(map[UserID]NightAction),
		Votes:        make(map[UserID]*UserID),
		CreatedAt:    now,
		players:      make(map[UserID]*Player),
	}
}

// Player returns a copy of the player's state.
func (g *Game) Player(userID UserID) (*Player, bool) {
	player, hasPlayer := g.players[userID]
	if !hasPlayer {
		return nil, false
	}
	return copyPlayer(player), true
}

// Players returns copies of all players in join order.
func (g *Game) Players() []*Player {
	players := make([]*Player, 0, len(g.playerOrder))
	for _, player := range g.orderedPlayers() {
		players = append(players, copyPlayer(player))
	}
	return players
}

func (g *Game) PlayerCount() int {
	return len(g.players)
}

func (g *Game) orderedPlayers() []*Player {
	players := make([]*Player, 0, len(g.playerOrder))
	for _, userID := range g.playerOrder {
		players = append(players, g.players[userID])
	}
	return players
}

// AliveCounts returns the number of living predators and herbivores.
func (g *Game) AliveCounts() (predators int, herbivores int) {
	for _, player := range g.players {
		if !player.IsAlive {
			continue
		}

		switch player.Team {
		case TeamPredators:
			predators++
		case TeamHerbivores:
			herbivores++
		}
	}
	return predators, herbivores
}

func (g *Game) MinPlayers() int {
	if g.IsTestMode {
		return g.Settings.TestMinPlayers
	}
	return g.Settings.MinPlayers
}

func (g *Game) AddPlayer(userID UserID, username Username) ActionResult {
	if g.Phase != PhaseWaiting {
		return fail("players can only join before the game starts")
	} else if !userID.Valid() || !username.Valid() {
		return fail("a player needs an ID and a name")
	} else if _, hasPlayer := g.players[userID]; hasPlayer {
		return fail("the player has already joined")
	} else if len(g.players) >= g.Settings.MaxPlayers {
		return fail("the game is full")
	}

	g.players[userID] = newPlayer(userID, username, FullSupplies(g.Settings.InitialSupplies))
	g.playerOrder = append(g.playerOrder, userID)

	return succeed("joined", map[string]any{"players": len(g.players)})
}

func (g *Game) RemovePlayer(userID UserID) ActionResult {
	if g.Phase != PhaseWaiting {
		return fail("players can only leave before the game starts")
	} else if _, hasPlayer := g.players[userID]; !hasPlayer {
		return fail("the player is not in this game")
	}

	delete(g.players, userID)
	for orderIndex, orderedID := range g.playerOrder {
		if orderedID == userID {
			g.playerOrder = append(g.playerOrder[:orderIndex], g.playerOrder[orderIndex+1:]...)
			break
		}
	}

	return succeed("left", map[string]any{"players": len(g.players)})
}

func (g *Game) CanStartGame() bool {
	return g.Phase == PhaseWaiting && len(g.players) >= g.MinPlayers() && len(g.players) <= g.Settings.MaxPlayers
}

// StartGame assigns roles and opens the first night.
func (g *Game) StartGame(now time.Time, random Random) (ActionResult, error) {
	if g.Phase != PhaseWaiting {
		return fail("the game has already started"), nil
	} else if !g.CanStartGame() {
		return fail(fmt.Sprintf("at least %d players are needed to start", g.MinPlayers())), nil
	}

	counts, err := AssignRoles(g.orderedPlayers(), random)
	if errors.Is(err, ErrInvalidPlayerCount) {
		return fail(fmt.Sprintf("games need %d to %d players", MinRosterSize, MaxRosterSize)), nil
	} else if err != nil {
		return ActionResult{}, err
	}

	startTime := now
	g.Duration.StartTime = &startTime
	g.CurrentRound = 1
	g.NightActions = make(map[UserID]NightAction)
	g.Votes = make(map[UserID]*UserID)
	g.setPhase(PhaseNight, now, g.Settings.FirstNightDuration)

	return succeed("the game has started", map[string]any{
		"wolves":  counts.Wolves,
		"foxes":   counts.Foxes,
		"moles":   counts.Moles,
		"beavers": counts.Beavers,
		"hares":   counts.Hares,
	}), nil
}

func (g *Game) setPhase(phase Phase, now time.Time, duration time.Duration) {
	g.Phase = phase
	phaseEnd := now.Add(duration)
	g.PhaseEndTime = &phaseEnd
}

// StartDay opens the discussion window. Every survivor forages at dawn.
func (g *Game) StartDay(now time.Time) {
	for _, player := range g.orderedPlayers() {
		if player.IsAlive {
			player.AddSupplies(g.Settings.DailyForage)
		}
	}
	g.setPhase(PhaseDay, now, g.Settings.DayDuration)
}

func (g *Game) StartVoting(now time.Time) {
	g.Votes = make(map[UserID]*UserID)
	g.setPhase(PhaseVoting, now, g.Settings.VotingDuration)
}

func (g *Game) StartNight(now time.Time) {
	g.CurrentRound++
	g.NightActions = make(map[UserID]NightAction)
	g.Votes = make(map[UserID]*UserID)
	for _, player := range g.orderedPlayers() {
		if !player.IsAlive {
			continue
		}
		player.ResetProtection()
		player.SurviveNight()
	}
	g.setPhase(PhaseNight, now, g.Settings.NightDuration)
}

// acceptsEvents reports whether the current phase is open for submissions at now.
func (g *Game) acceptsEvents(phase Phase, now time.Time) (ActionResult, bool) {
	if g.Phase == PhaseGameOver {
		return fail("the game is over"), false
	} else if g.Phase != phase {
		return fail(fmt.Sprintf("this can only be done during the %s phase", phase)), false
	} else if g.PhaseEndTime != nil && !now.Before(*g.PhaseEndTime) {
		return fail("the phase has already ended"), false
	}
	return ActionResult{}, true
}

func (g *Game) Vote(voterID UserID, targetID *UserID, now time.Time) ActionResult {
	if result, ok := g.acceptsEvents(PhaseVoting, now); !ok {
		return result
	}

	voter, hasVoter := g.players[voterID]
	if !hasVoter {
		return fail("the voter is not in this game")
	} else if !voter.IsAlive {
		return fail("dead players cannot vote")
	}

	if targetID != nil {
		target, hasTarget := g.players[*targetID]
		if !hasTarget {
			return fail("the target is not in this game")
		} else if !target.IsAlive {
			return fail("the target is already dead")
		} else if target.UserID == voterID {
			return fail("players cannot vote for themselves")
		}

		chosen := *targetID
		g.Votes[voterID] = &chosen
		return succeed("vote recorded", map[string]any{"target": int64(chosen)})
	}

	g.Votes[voterID] = nil
	return succeed("skip recorded", map[string]any{"skip": true})
}

// AvailableTargets lists the players the actor may choose tonight.
func (g *Game) AvailableTargets(actorID UserID) ([]*Player, ActionResult) {
	actor, hasActor := g.players[actorID]
	if !hasActor {
		return nil, fail("the player is not in this game")
	}

	capability, hasCapability := CapabilityFor(actor.Role)
	if !hasCapability || !capability.CanAct(actor) {
		return nil, fail("the player has no night action")
	}

	var targets []*Player
	for _, target := range capability.AvailableTargets(g, actor) {
		targets = append(targets, copyPlayer(target))
	}
	return targets, succeed("targets listed", map[string]any{"count": len(targets)})
}

// SubmitNightAction stages an actor's choice for resolution at the end of the night.
// A later submission by the same actor replaces the earlier one.
func (g *Game) SubmitNightAction(actorID UserID, targetID *UserID, now time.Time) ActionResult {
	if result, ok := g.acceptsEvents(PhaseNight, now); !ok {
		return result
	}

	actor, hasActor := g.players[actorID]
	if !hasActor {
		return fail("the player is not in this game")
	} else if !actor.IsAlive {
		return fail("dead players cannot act")
	}

	capability, hasCapability := CapabilityFor(actor.Role)
	if !hasCapability || !capability.CanAct(actor) {
		return fail(fmt.Sprintf("a %s has no night action", actor.Role))
	} else if targetID == nil {
		return fail("choose a target")
	}

	target, hasTarget := g.players[*targetID]
	if !hasTarget {
		return fail("the target is not in this game")
	}

	var allowed bool
	for _, candidate := range capability.AvailableTargets(g, actor) {
		if candidate.UserID == target.UserID {
			allowed = true
			break
		}
	}
	if !allowed {
		return fail("that target cannot be chosen")
	}

	g.actionSequence++
	chosen := *targetID
	g.NightActions[actorID] = NightAction{Role: actor.Role, Target: &chosen, Sequence: g.actionSequence}

	return succeed("action recorded", map[string]any{"role": string(actor.Role), "target": int64(chosen)})
}

// CheckGameEnd returns the winning team, if any. It depends only on alive counts per team.
func (g *Game) CheckGameEnd() *Team {
	predators, herbivores := g.AliveCounts()
	return winnerFor(predators, herbivores)
}

func winnerFor(predators int, herbivores int) *Team {
	var winner Team
	switch {
	case predators == 0:
		winner = TeamHerbivores
	case predators >= herbivores:
		winner = TeamPredators
	default:
		return nil
	}
	return &winner
}

func (g *Game) endGame(winner *Team, now time.Time) {
	endTime := now
	g.Duration.EndTime = &endTime
	g.Phase = PhaseGameOver
	g.PhaseEndTime = nil
	g.NightActions = make(map[UserID]NightAction)
	g.Votes = make(map[UserID]*UserID)
	if winner != nil {
		won := *winner
		g.Winner = &won
	}
}

// Cancel ends the game without a winner. It returns false if the game was already over.
func (g *Game) Cancel(now time.Time) bool {
	if g.Phase == PhaseGameOver {
		return false
	}

	g.Cancelled = true
	g.endGame(nil, now)
	return true
}

// GrantExtraLives applies an item effect to a living player.
func (g *Game) GrantExtraLives(userID UserID, lives int) ActionResult {
	if g.Phase == PhaseGameOver {
		return fail("the game is over")
	} else if lives <= 0 {
		return fail("the number of lives must be positive")
	}

	player, hasPlayer := g.players[userID]
	if !hasPlayer {
		return fail("the player is not in this game")
	} else if !player.IsAlive {
		return fail("dead players cannot receive lives")
	}

	player.ApplyExtraLives(lives)
	return succeed("extra lives granted", map[string]any{"extra_lives": player.ExtraLives})
}

// CheckInvariants verifies the aggregate's structural rules.
func (g *Game) CheckInvariants() error {
	if g.CurrentRound < 0 {
		return fmt.Errorf("%w: negative round %d", ErrInvariantViolation, g.CurrentRound)
	}

	if len(g.players) != len(g.playerOrder) {
		return fmt.Errorf("%w: roster index holds %d of %d players", ErrInvariantViolation, len(g.playerOrder), len(g.players))
	}

	for _, player := range g.players {
		if player.Team != player.Role.Team() {
			return fmt.Errorf("%w: player %d is a %s on team %s", ErrInvariantViolation, player.UserID, player.Role, player.Team)
		}
		if !player.Supplies.Valid() {
			return fmt.Errorf("%w: player %d has supplies %d/%d", ErrInvariantViolation, player.UserID, player.Supplies.Current, player.Supplies.Maximum)
		}
		if player.ExtraLives < 0 {
			return fmt.Errorf("%w: player %d has negative extra lives", ErrInvariantViolation, player.UserID)
		}
	}

	for voterID, targetID := range g.Votes {
		voter, hasVoter := g.players[voterID]
		if !hasVoter || !voter.IsAlive {
			return fmt.Errorf("%w: vote from absent or dead player %d", ErrInvariantViolation, voterID)
		}
		if targetID == nil {
			continue
		}
		target, hasTarget := g.players[*targetID]
		if !hasTarget || !target.IsAlive || *targetID == voterID {
			return fmt.Errorf("%w: vote by %d for invalid target %d", ErrInvariantViolation, voterID, *targetID)
		}
	}

	for actorID, action := range g.NightActions {
		actor, hasActor := g.players[actorID]
		if !hasActor || !actor.IsAlive {
			return fmt.Errorf("%w: night action from absent or dead player %d", ErrInvariantViolation, actorID)
		}
		if !HasNightAction(actor.Role) || action.Role != actor.Role {
			return fmt.Errorf("%w: night action from %d whose role %s cannot act", ErrInvariantViolation, actorID, actor.Role)
		}
	}

	switch g.Phase {
	case PhaseWaiting:
		if g.PhaseEndTime != nil {
			return fmt.Errorf("%w: waiting game has a phase deadline", ErrInvariantViolation)
		}
	case PhaseNight, PhaseDay, PhaseVoting:
		if g.PhaseEndTime == nil {
			return fmt.Errorf("%w: %s phase has no deadline", ErrInvariantViolation, g.Phase)
		}
	case PhaseGameOver:
		if g.Duration.EndTime == nil {
			return fmt.Errorf("%w: finished game has no end time", ErrInvariantViolation)
		}
	default:
		return fmt.Errorf("%w: unknown phase %q", ErrInvariantViolation, g.Phase)
	}

	return nil
}
