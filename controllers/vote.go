package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewPlayerActionHandler routes a player's night action or ballot. An empty target or
// "skip" casts a skip vote.
func NewPlayerActionHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		action := c.Param("action")
		switch action {
		case game.NightCallbackPrefix:
			handleNightAction(c, gameEngine)
		case game.VoteCallbackPrefix:
			handleVote(c, gameEngine)
		default:
			c.AbortWithStatus(http.StatusNotFound)
		}
	}
}

func handleNightAction(c *gin.Context, gameEngine game.Engine) {
	gameID, ok := gameIDParam(c)
	if !ok {
		return
	}

	actorID, ok := userIDParam(c, c.Param("userID"), "userID")
	if !ok {
		return
	}

	targetID, ok := userIDParam(c, c.Query("target"), "target")
	if !ok {
		return
	}

	result, err := gameEngine.SubmitNightAction(c.Request.Context(), gameID, actorID, &targetID)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}

	respondWithResult(c, result)
}

func handleVote(c *gin.Context, gameEngine game.Engine) {
	gameID, ok := gameIDParam(c)
	if !ok {
		return
	}

	voterID, ok := userIDParam(c, c.Param("userID"), "userID")
	if !ok {
		return
	}

	var targetID *game.UserID
	if rawTarget := c.Query("target"); rawTarget != "" && rawTarget != game.SkipCallbackValue {
		parsedTarget, ok := userIDParam(c, rawTarget, "target")
		if !ok {
			return
		}
		targetID = &parsedTarget
	}

	result, err := gameEngine.SubmitVote(c.Request.Context(), gameID, voterID, targetID)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}

	respondWithResult(c, result)
}
