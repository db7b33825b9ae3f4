package game

import "errors"

var ErrGameNotFound = errors.New("game not found")

// ErrGameOver is returned when a finished game is asked to advance.
var ErrGameOver = errors.New("game is over")

var ErrInvalidPlayerCount = errors.New("invalid player count")

// ErrInvariantViolation signals an internal bug; the game is force-ended when it is raised.
var ErrInvariantViolation = errors.New("game invariant violated")

var ErrInvalidGame = errors.New("invalid game parameters")

var ErrChatHasGame = errors.New("chat already has an active game")
