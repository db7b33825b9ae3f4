package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewGetGameHandler returns the public view of a game: roles stay hidden until it is over
func NewGetGameHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		snapshot, err := gameEngine.GetSnapshot(c.Request.Context(), gameID)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		revealRoles := snapshot.Phase == game.PhaseGameOver
		returnedPlayers := make([]*playerResponse, len(snapshot.Players))
		for playerIndex, player := range snapshot.Players {
			returnedPlayers[playerIndex] = &playerResponse{
				UserID:      player.UserID,
				Username:    player.Username,
				IsAlive:     player.IsAlive,
				DeathReason: player.DeathReason,
			}
			if revealRoles {
				role := player.Role
				returnedPlayers[playerIndex].Role = &role
			}
		}

		c.JSON(http.StatusOK, &gameResponse{
			GameID:       snapshot.GameID,
			ChatID:       snapshot.ChatID,
			Phase:        snapshot.Phase,
			Round:        snapshot.CurrentRound,
			PhaseEndTime: snapshot.PhaseEndTime,
			Players:      returnedPlayers,
			Statistics:   snapshot.Statistics,
			Winner:       snapshot.Winner,
			Cancelled:    snapshot.Cancelled,
		})
	}
}

// NewGetSnapshotHandler returns the complete snapshot, roles included
func NewGetSnapshotHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		snapshot, err := gameEngine.GetSnapshot(c.Request.Context(), gameID)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		c.JSON(http.StatusOK, snapshot)
	}
}

// NewGetTargetsHandler lists who a player may choose tonight
func NewGetTargetsHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		userID, ok := userIDParam(c, c.Param("userID"), "userID")
		if !ok {
			return
		}

		targets, result, err := gameEngine.AvailableTargets(c.Request.Context(), gameID, userID)
		if err != nil {
			abortWithEngineError(c, err)
			return
		} else if !result.Success {
			respondWithResult(c, result)
			return
		}

		returnedTargets := make([]*playerResponse, len(targets))
		for targetIndex, target := range targets {
			returnedTargets[targetIndex] = &playerResponse{
				UserID:   target.UserID,
				Username: target.Username,
				IsAlive:  target.IsAlive,
				// deliberately leave out the role to not leak information
			}
		}

		c.JSON(http.StatusOK, returnedTargets)
	}
}

type gameResponse struct {
	GameID       game.GameID       `json:"gameId"`
	ChatID       game.ChatID       `json:"chatId"`
	Phase        game.Phase        `json:"phase"`
	Round        int               `json:"round"`
	PhaseEndTime *time.Time        `json:"phaseEndTime,omitempty"`
	Players      []*playerResponse `json:"players"`
	Statistics   game.Statistics   `json:"statistics"`
	Winner       *game.Team        `json:"winner,omitempty"`
	Cancelled    bool              `json:"cancelled"`
}

type playerResponse struct {
	UserID      game.UserID      `json:"userId"`
	Username    game.Username    `json:"username"`
	IsAlive     bool             `json:"isAlive"`
	DeathReason game.DeathReason `json:"deathReason,omitempty"`
	Role        *game.Role       `json:"role,omitempty"`
}
