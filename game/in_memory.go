package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryEngine hosts any number of games. Each game is only ever mutated while its own
// mutex is held, so games are isolated from each other and see no concurrent writers.
type InMemoryEngine struct {
	gameStatesMutex sync.RWMutex
	gameStates      map[GameID]*gameState
	chatGames       map[ChatID]GameID

	persistence Persistence
	notifier    Notifier
	clock       Clock
	random      Random
	settings    Settings
	newGameID   func() GameID
}

type EngineOption func(*InMemoryEngine)

func WithPersistence(persistence Persistence) EngineOption {
	return func(i *InMemoryEngine) { i.persistence = persistence }
}

func WithNotifier(notifier Notifier) EngineOption {
	return func(i *InMemoryEngine) { i.notifier = notifier }
}

func WithClock(clock Clock) EngineOption {
	return func(i *InMemoryEngine) { i.clock = clock }
}

func WithRandom(random Random) EngineOption {
	return func(i *InMemoryEngine) { i.random = random }
}

// WithSettings sets the defaults for games created without per-chat settings.
func WithSettings(settings Settings) EngineOption {
	return func(i *InMemoryEngine) { i.settings = settings.withDefaults() }
}

func WithGameIDGenerator(newGameID func() GameID) EngineOption {
	return func(i *InMemoryEngine) { i.newGameID = newGameID }
}

func NewInMemoryGameEngine(options ...EngineOption) *InMemoryEngine {
	engine := &InMemoryEngine{
		gameStates:  make(map[GameID]*gameState),
		chatGames:   make(map[ChatID]GameID),
		persistence: nopPersistence{},
		notifier:    nopNotifier{},
		clock:       SystemClock(),
		random:      NewRandom(time.Now().UnixNano()),
		settings:    DefaultSettings(),
		newGameID: func() GameID {
			return GameID(uuid.NewString())
		},
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

type gameState struct {
	mutex sync.Mutex
	game  *Game
	// persisted is false while a finished game's final snapshot has not been saved.
	persisted bool
}

func (i *InMemoryEngine) AddPlayer(ctx context.Context, gameID GameID, userID UserID, username Username) (ActionResult, error) {
	return i.mutate(ctx, gameID, func(g *Game) ActionResult {
		return g.AddPlayer(userID, username)
	}, EventPlayerJoined, map[string]any{"user_id": int64(userID), "username": string(username)})
}

func (i *InMemoryEngine) RemovePlayer(ctx context.Context, gameID GameID, userID UserID) (ActionResult, error) {
	return i.mutate(ctx, gameID, func(g *Game) ActionResult {
		return g.RemovePlayer(userID)
	}, EventPlayerLeft, map[string]any{"user_id": int64(userID)})
}

func (i *InMemoryEngine) SubmitNightAction(ctx context.Context, gameID GameID, userID UserID, targetID *UserID) (ActionResult, error) {
	return i.mutate(ctx, gameID, func(g *Game) ActionResult {
		return g.SubmitNightAction(userID, targetID, i.clock.Now())
	}, EventNightAction, map[string]any{"user_id": int64(userID), "target": optionalUserID(targetID)})
}

func (i *InMemoryEngine) SubmitVote(ctx context.Context, gameID GameID, voterID UserID, targetID *UserID) (ActionResult, error) {
	return i.mutate(ctx, gameID, func(g *Game) ActionResult {
		return g.Vote(voterID, targetID, i.clock.Now())
	}, EventVote, map[string]any{"user_id": int64(voterID), "target": optionalUserID(targetID)})
}

func (i *InMemoryEngine) GrantExtraLives(ctx context.Context, gameID GameID, userID UserID, lives int) (ActionResult, error) {
	return i.mutate(ctx, gameID, func(g *Game) ActionResult {
		return g.GrantExtraLives(userID, lives)
	}, EventExtraLives, map[string]any{"user_id": int64(userID), "lives": lives})
}

func (i *InMemoryEngine) AvailableTargets(_ context.Context, gameID GameID, userID UserID) ([]*Player, ActionResult, error) {
	state, hasGameState := i.getGameState(gameID)
	if !hasGameState {
		return nil, ActionResult{}, fmt.Errorf("%w: '%s'", ErrGameNotFound, gameID)
	}

	state.mutex.Lock()
	defer state.mutex.Unlock()

	if state.game.Phase != PhaseNight {
		return nil, fail("targets are only chosen at night"), nil
	}

	targets, result := state.game.AvailableTargets(userID)
	return targets, result, nil
}

func (i *InMemoryEngine) CreateGame(ctx context.Context, request CreateGameRequest) (GameID, error) {
	if !request.ChatID.Valid() {
		return "", fmt.Errorf("%w: chat ID must be non-zero", ErrInvalidGame)
	}

	settings := i.settings
	if request.Settings != nil {
		settings = *request.Settings
	}

	i.gameStatesMutex.Lock()
	if existingID, hasGame := i.chatGames[request.ChatID]; hasGame {
		i.gameStatesMutex.Unlock()
		return "", fmt.Errorf("%w: chat %d is playing '%s'", ErrChatHasGame, request.ChatID, existingID)
	}

	gameID := i.newGameID()
	if _, hasGame := i.gameStates[gameID]; hasGame {
		i.gameStatesMutex.Unlock()
		return "", fmt.Errorf("%w: duplicate game ID '%s'", ErrInvalidGame, gameID)
	}

	created := NewGame(gameID, request.ChatID, request.ThreadID, request.TestMode, settings, i.clock.Now())
	i.gameStates[gameID] = &gameState{game: created, persisted: true}
	i.chatGames[request.ChatID] = gameID
	i.gameStatesMutex.Unlock()

	slog.Info("game created", "gameId", gameID, "chatId", request.ChatID, "testMode", request.TestMode)
	i.logEvent(ctx, gameID, EventGameCreated, map[string]any{"chat_id": int64(request.ChatID), "test_mode": request.TestMode})

	return gameID, nil
}

func (i *InMemoryEngine) StartGame(ctx context.Context, gameID GameID) (ActionResult, error) {
	result, messages, err := i.startGame(ctx, gameID)
	i.deliver(ctx, messages)
	return result, err
}

func (i *InMemoryEngine) startGame(ctx context.Context, gameID GameID) (ActionResult, []outboundMessage, error) {
	state, hasGameState := i.getGameState(gameID)
	if !hasGameState {
		return ActionResult{}, nil, fmt.Errorf("%w: '%s'", ErrGameNotFound, gameID)
	}

	state.mutex.Lock()
	defer state.mutex.Unlock()

	result, err := state.game.StartGame(i.clock.Now(), i.random)
	if err != nil {
		return ActionResult{}, nil, i.forceEnd(ctx, state, err)
	}
	if err := state.game.CheckInvariants(); err != nil {
		return ActionResult{}, nil, i.forceEnd(ctx, state, err)
	}
	if !result.Success {
		return result, nil, nil
	}

	slog.Info("game started", "gameId", gameID, "players", state.game.PlayerCount())
	i.logEvent(ctx, gameID, EventGameStarted, result.Data)
	i.save(ctx, state.game)

	return result, startMessages(state.game), nil
}

func (i *InMemoryEngine) Tick(ctx context.Context, gameID GameID) (*PhaseReport, error) {
	report, messages, err := i.advance(ctx, gameID, false)
	i.deliver(ctx, messages)
	return report, err
}

func (i *InMemoryEngine) Advance(ctx context.Context, gameID GameID) (*PhaseReport, error) {
	report, messages, err := i.advance(ctx, gameID, true)
	i.deliver(ctx, messages)
	return report, err
}

// TickAll advances every game whose deadline has passed and retries saving finished games.
// Notifications are sent once every due game has moved on.
func (i *InMemoryEngine) TickAll(ctx context.Context) error {
	var tickErrs []error
	var outbox []outboundMessage
	for _, state := range i.getGameStates() {
		state.mutex.Lock()
		gameID := state.game.ID
		isOver := state.game.Phase == PhaseGameOver
		state.mutex.Unlock()

		if isOver {
			i.retryFinish(ctx, state)
			continue
		}

		_, messages, err := i.advance(ctx, gameID, false)
		outbox = append(outbox, messages...)
		if err != nil && !errors.Is(err, ErrGameOver) && !errors.Is(err, ErrGameNotFound) {
			slog.Error("failed to tick game", "gameId", gameID, "error", err)
			tickErrs = append(tickErrs, err)
		}
	}

	i.deliver(ctx, outbox)
	return errors.Join(tickErrs...)
}

func (i *InMemoryEngine) Cancel(ctx context.Context, gameID GameID) error {
	_, messages, err := i.cancel(ctx, gameID, false)
	i.deliver(ctx, messages)
	return err
}

// cancel ends the game under its lock. With onlyWaiting set, a game that has already
// started is left alone and cancelled comes back false.
func (i *InMemoryEngine) cancel(ctx context.Context, gameID GameID, onlyWaiting bool) (bool, []outboundMessage, error) {
	state, hasGameState := i.getGameState(gameID)
	if !hasGameState {
		return false, nil, fmt.Errorf("%w: '%s'", ErrGameNotFound, gameID)
	}

	state.mutex.Lock()
	defer state.mutex.Unlock()

	if onlyWaiting && state.game.Phase != PhaseWaiting {
		return false, nil, nil
	}

	if !state.game.Cancel(i.clock.Now()) {
		return false, nil, fmt.Errorf("%w: '%s' cannot be cancelled", ErrGameOver, gameID)
	}

	slog.Info("game cancelled", "gameId", gameID, "chatId", state.game.ChatID)
	i.logEvent(ctx, gameID, EventGameCancelled, nil)
	messages := cancelledMessages(state.game)
	i.finish(ctx, state)

	return true, messages, nil
}

func (i *InMemoryEngine) GetSnapshot(ctx context.Context, gameID GameID) (*Snapshot, error) {
	if state, hasGameState := i.getGameState(gameID); hasGameState {
		state.mutex.Lock()
		defer state.mutex.Unlock()

		return state.game.Snapshot(), nil
	}

	snapshot, err := i.persistence.LoadGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game '%s': %w", gameID, err)
	} else if snapshot == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrGameNotFound, gameID)
	}

	return snapshot, nil
}

func (i *InMemoryEngine) Restore(ctx context.Context, snapshot *Snapshot) error {
	restored, err := Restore(snapshot)
	if err != nil {
		return err
	}

	if restored.Phase == PhaseGameOver {
		return i.persistence.SaveGame(ctx, restored.Snapshot())
	}

	i.gameStatesMutex.Lock()
	defer i.gameStatesMutex.Unlock()

	if existingID, hasGame := i.chatGames[restored.ChatID]; hasGame && existingID != restored.ID {
		return fmt.Errorf("%w: chat %d is playing '%s'", ErrChatHasGame, restored.ChatID, existingID)
	}

	i.gameStates[restored.ID] = &gameState{game: restored, persisted: true}
	i.chatGames[restored.ChatID] = restored.ID

	slog.Info("game restored", "gameId", restored.ID, "phase", restored.Phase, "round", restored.CurrentRound)
	return nil
}

func (i *InMemoryEngine) GameForChat(_ context.Context, chatID ChatID) (GameID, bool) {
	i.gameStatesMutex.RLock()
	defer i.gameStatesMutex.RUnlock()

	gameID, hasGame := i.chatGames[chatID]
	return gameID, hasGame
}

// PurgeStaleLobbies cancels games that have been waiting for players longer than maxAge.
func (i *InMemoryEngine) PurgeStaleLobbies(ctx context.Context, maxAge time.Duration) int {
	cutoff := i.clock.Now().Add(-maxAge)

	var purged int
	for _, state := range i.getGameStates() {
		state.mutex.Lock()
		isStale := state.game.Phase == PhaseWaiting && state.game.CreatedAt.Before(cutoff)
		gameID := state.game.ID
		state.mutex.Unlock()

		if !isStale {
			continue
		}

		cancelled, messages, err := i.cancel(ctx, gameID, true)
		if err != nil {
			slog.Warn("failed to purge stale lobby", "gameId", gameID, "error", err)
			continue
		}
		i.deliver(ctx, messages)
		if cancelled {
			purged++
		}
	}

	if purged > 0 {
		slog.Info("purged stale lobbies", "count", purged)
	}
	return purged
}

func (i *InMemoryEngine) mutate(ctx context.Context, gameID GameID, apply func(*Game) ActionResult, eventType string, eventData map[string]any) (ActionResult, error) {
	state, hasGameState := i.getGameState(gameID)
	if !hasGameState {
		return ActionResult{}, fmt.Errorf("%w: '%s'", ErrGameNotFound, gameID)
	}

	state.mutex.Lock()
	defer state.mutex.Unlock()

	result := apply(state.game)
	if err := state.game.CheckInvariants(); err != nil {
		return ActionResult{}, i.forceEnd(ctx, state, err)
	}

	if result.Success {
		i.logEvent(ctx, gameID, eventType, eventData)
	}

	return result, nil
}

// advance moves the game on under its lock and returns the notifications to send once
// the lock is released.
func (i *InMemoryEngine) advance(ctx context.Context, gameID GameID, force bool) (*PhaseReport, []outboundMessage, error) {
	state, hasGameState := i.getGameState(gameID)
	if !hasGameState {
		return nil, nil, fmt.Errorf("%w: '%s'", ErrGameNotFound, gameID)
	}

	state.mutex.Lock()
	defer state.mutex.Unlock()

	now := i.clock.Now()
	if state.game.Phase == PhaseGameOver {
		return nil, nil, fmt.Errorf("%w: '%s'", ErrGameOver, gameID)
	} else if !force && !state.game.IsDue(now) {
		return nil, nil, nil
	}

	report, err := state.game.Advance(now)
	if err != nil {
		return nil, nil, i.forceEnd(ctx, state, err)
	}
	if err := state.game.CheckInvariants(); err != nil {
		return nil, nil, i.forceEnd(ctx, state, err)
	}

	if report.From == report.To {
		return report, nil, nil
	}

	slog.Info("phase changed", "gameId", gameID, "from", report.From, "to", report.To, "round", state.game.CurrentRound, "deaths", len(report.Deaths))
	i.logEvent(ctx, gameID, EventPhaseChanged, map[string]any{"from": string(report.From), "to": string(report.To), "round": state.game.CurrentRound})
	for _, death := range report.Deaths {
		i.logEvent(ctx, gameID, EventPlayerDied, map[string]any{"user_id": int64(death.UserID), "role": string(death.Role), "reason": string(death.Reason)})
	}

	for _, userID := range report.ExtraLivesUsed {
		i.logEvent(ctx, gameID, EventExtraLifeUsed, map[string]any{"user_id": int64(userID), "reason": string(DeathReasonStarvation)})
	}
	if report.Tally != nil && report.Tally.ExtraLifeUsed && report.Tally.Exiled != nil {
		i.logEvent(ctx, gameID, EventExtraLifeUsed, map[string]any{"user_id": int64(*report.Tally.Exiled), "reason": string(DeathReasonVotedOut)})
	}

	messages := reportMessages(state.game, report)

	if state.game.Phase == PhaseGameOver {
		i.logEvent(ctx, gameID, EventGameOver, map[string]any{"winner": teamName(report.Winner), "round": state.game.CurrentRound})
		i.finish(ctx, state)
	} else {
		i.save(ctx, state.game)
	}

	return report, messages, nil
}

// forceEnd handles an invariant violation: the game is ended without a winner and the error
// is returned for the host to report.
func (i *InMemoryEngine) forceEnd(ctx context.Context, state *gameState, cause error) error {
	slog.Error("forcing game over", "gameId", state.game.ID, "error", cause)
	state.game.Cancel(i.clock.Now())
	i.logEvent(ctx, state.game.ID, EventGameCancelled, map[string]any{"error": cause.Error()})
	i.finish(ctx, state)
	return cause
}

// finish persists a finished game and drops it from the registry once saved.
func (i *InMemoryEngine) finish(ctx context.Context, state *gameState) {
	state.persisted = false
	if err := i.persistence.SaveGame(ctx, state.game.Snapshot()); err != nil {
		slog.Error("failed to save finished game; will retry", "gameId", state.game.ID, "error", err)
		i.releaseChat(state.game)
		return
	}
	state.persisted = true
	i.removeGameState(state.game)
}

func (i *InMemoryEngine) retryFinish(ctx context.Context, state *gameState) {
	state.mutex.Lock()
	defer state.mutex.Unlock()

	if state.persisted {
		i.removeGameState(state.game)
		return
	}
	i.finish(ctx, state)
}

func (i *InMemoryEngine) save(ctx context.Context, g *Game) {
	if err := i.persistence.SaveGame(ctx, g.Snapshot()); err != nil {
		slog.Error("failed to save game", "gameId", g.ID, "phase", g.Phase, "error", err)
	}
}

func (i *InMemoryEngine) logEvent(ctx context.Context, gameID GameID, eventType string, data map[string]any) {
	if err := i.persistence.LogEvent(ctx, gameID, eventType, data); err != nil {
		slog.Error("failed to log game event", "gameId", gameID, "event", eventType, "error", err)
	}
}

// deliver sends notifications in order. It must not be called while a game mutex is held.
func (i *InMemoryEngine) deliver(ctx context.Context, messages []outboundMessage) {
	for _, message := range messages {
		if err := message.send(ctx, i.notifier); err != nil {
			slog.Warn("failed to deliver notification", "chatId", message.chatID, "userId", message.userID, "error", err)
		}
	}
}

func (i *InMemoryEngine) getGameState(gameID GameID) (*gameState, bool) {
	i.gameStatesMutex.RLock()
	defer i.gameStatesMutex.RUnlock()

	state, hasGameState := i.gameStates[gameID]
	return state, hasGameState
}

func (i *InMemoryEngine) getGameStates() []*gameState {
	i.gameStatesMutex.RLock()
	defer i.gameStatesMutex.RUnlock()

	states := make([]*gameState, 0, len(i.gameStates))
	for _, state := range i.gameStates {
		states = append(states, state)
	}
	return states
}

func (i *InMemoryEngine) removeGameState(g *Game) {
	i.gameStatesMutex.Lock()
	defer i.gameStatesMutex.Unlock()

	delete(i.gameStates, g.ID)
	if i.chatGames[g.ChatID] == g.ID {
		delete(i.chatGames, g.ChatID)
	}
}

// releaseChat frees the chat for a new game while the finished one waits to be saved.
func (i *InMemoryEngine) releaseChat(g *Game) {
	i.gameStatesMutex.Lock()
	defer i.gameStatesMutex.Unlock()

	if i.chatGames[g.ChatID] == g.ID {
		delete(i.chatGames, g.ChatID)
	}
}

func optionalUserID(userID *UserID) any {
	if userID == nil {
		return nil
	}
	return int64(*userID)
}

func teamName(team *Team) string {
	if team == nil {
		return ""
	}
	return string(*team)
}
