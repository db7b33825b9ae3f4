package game

import (
	"fmt"
	"sort"
	"time"
)

// PhaseReport describes one phase transition.
type PhaseReport struct {
	GameID  GameID                  `json:"game_id"`
	From    Phase                   `json:"from"`
	To      Phase                   `json:"to"`
	Round   int                     `json:"round"`
	Results map[UserID]ActionResult `json:"results,omitempty"`
	Deaths  []Death                 `json:"deaths,omitempty"`
	Tally   *TallyResult            `json:"tally,omitempty"`
	Winner  *Team                   `json:"winner,omitempty"`

	// ExtraLivesUsed lists players who would have starved but spent an extra life.
	ExtraLivesUsed []UserID `json:"extra_lives_used,omitempty"`
}

// IsDue reports whether the current phase deadline has passed.
func (g *Game) IsDue(now time.Time) bool {
	switch g.Phase {
	case PhaseNight, PhaseDay, PhaseVoting:
		return g.PhaseEndTime != nil && !now.Before(*g.PhaseEndTime)
	default:
		return false
	}
}

// Advance performs the transition out of the current phase regardless of its deadline.
// Waiting games only leave that phase through StartGame.
func (g *Game) Advance(now time.Time) (*PhaseReport, error) {
	report := &PhaseReport{GameID: g.ID, From: g.Phase, Round: g.CurrentRound}

	switch g.Phase {
	case PhaseGameOver:
		return nil, fmt.Errorf("%w: cannot advance game %s", ErrGameOver, g.ID)
	case PhaseWaiting:
		report.To = PhaseWaiting
		return report, nil
	case PhaseNight:
		report.Results, report.Deaths = g.ResolveNight()
		starved, livesSpent := g.ApplySupplyConsumption()
		report.Deaths = append(report.Deaths, starved...)
		report.ExtraLivesUsed = livesSpent
		_, herbivores := g.AliveCounts()
		g.Statistics.HerbivoreSurvivals += herbivores

		if winner := g.CheckGameEnd(); winner != nil {
			g.endGame(winner, now)
			report.Winner = winner
		} else {
			g.StartDay(now)
		}
	case PhaseDay:
		g.StartVoting(now)
	case PhaseVoting:
		tally, exiled := g.ResolveVoting()
		report.Tally = &tally
		if exiled != nil {
			report.Deaths = append(report.Deaths, *exiled)
		}

		if winner := g.CheckGameEnd(); winner != nil {
			g.endGame(winner, now)
			report.Winner = winner
		} else {
			g.StartNight(now)
		}
	default:
		return nil, fmt.Errorf("%w: unknown phase %q", ErrInvariantViolation, g.Phase)
	}

	report.To = g.Phase
	return report, nil
}

// ResolveNight applies every staged action in resolution order and clears the stage.
// Wolves hunt as a pack: the most recently submitted wolf action is the only attack.
func (g *Game) ResolveNight() (map[UserID]ActionResult, []Death) {
	results := make(map[UserID]ActionResult)
	aliveBefore := make(map[UserID]bool)
	for _, player := range g.players {
		aliveBefore[player.UserID] = player.IsAlive
	}

	byRole := make(map[Role][]UserID)
	for actorID, action := range g.NightActions {
		byRole[action.Role] = append(byRole[action.Role], actorID)
	}
	for _, actorIDs := range byRole {
		sort.Slice(actorIDs, func(i, j int) bool {
			return g.NightActions[actorIDs[i]].Sequence < g.NightActions[actorIDs[j]].Sequence
		})
	}

	for _, role := range resolutionOrder {
		actorIDs := byRole[role]
		if len(actorIDs) == 0 {
			continue
		}

		capability, _ := CapabilityFor(role)
		if role == RoleWolf {
			leaderID := actorIDs[len(actorIDs)-1]
			packResult := g.applyNightAction(capability, leaderID)
			for _, actorID := range actorIDs {
				results[actorID] = packResult
			}
			continue
		}

		for _, actorID := range actorIDs {
			results[actorID] = g.applyNightAction(capability, actorID)
		}
	}

	g.NightActions = make(map[UserID]NightAction)

	var deaths []Death
	for _, player := range g.orderedPlayers() {
		if aliveBefore[player.UserID] && !player.IsAlive {
			deaths = append(deaths, deathOf(player))
		}
	}
	return results, deaths
}

func (g *Game) applyNightAction(capability Capability, actorID UserID) ActionResult {
	actor := g.players[actorID]
	action := g.NightActions[actorID]

	var target *Player
	if action.Target != nil {
		target = g.players[*action.Target]
	}

	return capability.Apply(g, actor, target)
}

// ApplySupplyConsumption makes every survivor eat one unit. A player with nothing left to
// eat starves unless they spend an extra life. Starvation is not credited to either team's
// statistics.
func (g *Game) ApplySupplyConsumption() (deaths []Death, livesSpent []UserID) {
	for _, player := range g.orderedPlayers() {
		if !player.IsAlive || player.ConsumeSupplies(1) {
			continue
		}

		if applyLethal(player, DeathReasonStarvation) {
			deaths = append(deaths, deathOf(player))
		} else {
			livesSpent = append(livesSpent, player.UserID)
		}
	}
	return deaths, livesSpent
}
