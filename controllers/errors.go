package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// abortWithEngineError maps engine errors onto HTTP statuses.
func abortWithEngineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrGameOver), errors.Is(err, game.ErrChatHasGame):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInvalidGame), errors.Is(err, game.ErrInvalidPlayerCount):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error("engine request failed", "path", c.FullPath(), "error", err)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// respondWithResult writes the action result, signalling a rejected action with 422.
func respondWithResult(c *gin.Context, result game.ActionResult) {
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func abortBadRequest(c *gin.Context, message string) {
	_ = c.Error(errors.New(message))
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

func gameIDParam(c *gin.Context) (game.GameID, bool) {
	gameID := game.GameID(c.Param("gameID"))
	if !gameID.Valid() {
		abortBadRequest(c, "gameID must be supplied")
		return "", false
	}
	return gameID, true
}

func userIDParam(c *gin.Context, raw string, name string) (game.UserID, bool) {
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !game.UserID(parsed).Valid() {
		abortBadRequest(c, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return game.UserID(parsed), true
}
