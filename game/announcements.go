package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Callback data prefixes used on keyboard buttons.
const (
	NightCallbackPrefix = "night"
	VoteCallbackPrefix  = "vote"
	SkipCallbackValue   = "skip"
)

// outboundMessage is a notification composed while a game is locked and sent after the
// lock is released. A valid userID makes it a direct message.
type outboundMessage struct {
	chatID   ChatID
	userID   UserID
	text     string
	keyboard *Keyboard
}

func announcement(chatID ChatID, text string, keyboard *Keyboard) outboundMessage {
	return outboundMessage{chatID: chatID, text: text, keyboard: keyboard}
}

func directMessage(userID UserID, text string, keyboard *Keyboard) outboundMessage {
	return outboundMessage{userID: userID, text: text, keyboard: keyboard}
}

func (m outboundMessage) send(ctx context.Context, notifier Notifier) error {
	if m.userID.Valid() {
		return notifier.DM(ctx, m.userID, m.text, m.keyboard)
	}
	return notifier.Announce(ctx, m.chatID, m.text, m.keyboard)
}

func callbackData(prefix string, gameID GameID, value string) string {
	return prefix + ":" + string(gameID) + ":" + value
}

func cancelledMessages(g *Game) []outboundMessage {
	return []outboundMessage{announcement(g.ChatID, "The game was cancelled.", nil)}
}

func startMessages(g *Game) []outboundMessage {
	messages := []outboundMessage{
		announcement(g.ChatID, fmt.Sprintf("The game has started with %d players. Night 1 falls over the forest.", g.PlayerCount()), nil),
	}

	for _, player := range g.orderedPlayers() {
		messages = append(messages, directMessage(player.UserID, fmt.Sprintf("You are a %s (%s).", player.Role, player.Team), nil))
	}

	return append(messages, nightPrompts(g)...)
}

func nightPrompts(g *Game) []outboundMessage {
	var messages []outboundMessage
	for _, player := range g.orderedPlayers() {
		capability, hasCapability := CapabilityFor(player.Role)
		if !hasCapability || !capability.CanAct(player) {
			continue
		}

		keyboard := &Keyboard{}
		for _, target := range capability.AvailableTargets(g, player) {
			keyboard.Rows = append(keyboard.Rows, []Button{{
				Label: string(target.Username),
				Data:  callbackData(NightCallbackPrefix, g.ID, fmt.Sprint(int64(target.UserID))),
			}})
		}

		messages = append(messages, directMessage(player.UserID, fmt.Sprintf("Night %d: choose your target.", g.CurrentRound), keyboard))
	}
	return messages
}

func votingKeyboard(g *Game) *Keyboard {
	keyboard := &Keyboard{}
	for _, player := range g.orderedPlayers() {
		if !player.IsAlive {
			continue
		}
		keyboard.Rows = append(keyboard.Rows, []Button{{
			Label: string(player.Username),
			Data:  callbackData(VoteCallbackPrefix, g.ID, fmt.Sprint(int64(player.UserID))),
		}})
	}
	keyboard.Rows = append(keyboard.Rows, []Button{{
		Label: "Skip",
		Data:  callbackData(VoteCallbackPrefix, g.ID, SkipCallbackValue),
	}})
	return keyboard
}

func reportMessages(g *Game, report *PhaseReport) []outboundMessage {
	var messages []outboundMessage
	var lines []string
	for _, death := range report.Deaths {
		lines = append(lines, deathLine(death))
	}

	switch report.From {
	case PhaseNight:
		messages = append(messages, investigationMessages(g, report)...)
		for _, userID := range report.ExtraLivesUsed {
			if player, hasPlayer := g.players[userID]; hasPlayer {
				lines = append(lines, fmt.Sprintf("%s ran out of food but spent an extra life.", player.Username))
			}
		}
		if len(report.Deaths) == 0 {
			lines = append(lines, "Everyone survived the night.")
		}
	case PhaseVoting:
		if report.Tally != nil && report.Tally.ExtraLifeUsed && report.Tally.Exiled != nil {
			if player, hasPlayer := g.players[*report.Tally.Exiled]; hasPlayer {
				lines = append(lines, fmt.Sprintf("%s was voted out but spent an extra life to stay.", player.Username))
			}
		} else if report.Tally != nil && report.Tally.Exiled == nil {
			lines = append(lines, fmt.Sprintf("Nobody was exiled (%s).", strings.ReplaceAll(string(report.Tally.Outcome), "_", " ")))
		}
	}

	var keyboard *Keyboard
	switch report.To {
	case PhaseDay:
		lines = append(lines, fmt.Sprintf("Day %d begins. Discuss.", g.CurrentRound))
	case PhaseVoting:
		lines = append(lines, "Voting has begun.")
		keyboard = votingKeyboard(g)
	case PhaseNight:
		lines = append(lines, fmt.Sprintf("Night %d falls over the forest.", g.CurrentRound))
	case PhaseGameOver:
		lines = append(lines, gameOverLines(g)...)
	}

	messages = append(messages, announcement(g.ChatID, strings.Join(lines, "\n"), keyboard))

	if report.To == PhaseNight {
		messages = append(messages, nightPrompts(g)...)
	}
	return messages
}

func investigationMessages(g *Game, report *PhaseReport) []outboundMessage {
	actorIDs := make([]UserID, 0, len(report.Results))
	for actorID := range report.Results {
		actorIDs = append(actorIDs, actorID)
	}
	sort.Slice(actorIDs, func(a, b int) bool { return actorIDs[a] < actorIDs[b] })

	var messages []outboundMessage
	for _, actorID := range actorIDs {
		actor, hasActor := g.players[actorID]
		result := report.Results[actorID]
		if !hasActor || actor.Role != RoleMole {
			continue
		}

		text := result.Message
		if result.Success {
			text = fmt.Sprintf("Your digging reveals a %v of the %v.", result.Data["role"], result.Data["team"])
		}
		messages = append(messages, directMessage(actorID, text, nil))
	}
	return messages
}

func deathLine(death Death) string {
	switch death.Reason {
	case DeathReasonKilled:
		return fmt.Sprintf("%s was found dead in the forest.", death.Username)
	case DeathReasonStarvation:
		return fmt.Sprintf("%s starved.", death.Username)
	case DeathReasonVotedOut:
		return fmt.Sprintf("%s was exiled. They were a %s.", death.Username, death.Role)
	default:
		return fmt.Sprintf("%s is gone.", death.Username)
	}
}

func gameOverLines(g *Game) []string {
	lines := []string{fmt.Sprintf("Game over: the %s win.", teamName(g.Winner))}
	for _, player := range g.orderedPlayers() {
		status := "alive"
		if !player.IsAlive {
			status = string(player.DeathReason)
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", player.Username, player.Role, status))
	}
	lines = append(lines, fmt.Sprintf("Kills %d, thefts %d, protections %d, herbivore survivals %d.",
		g.Statistics.PredatorKills, g.Statistics.FoxThefts, g.Statistics.BeaverProtections, g.Statistics.HerbivoreSurvivals))
	return lines
}
