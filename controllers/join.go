package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewJoinHandler creates a handler used to join a game that is still in its lobby
func NewJoinHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		userID, ok := userIDParam(c, c.Query("userId"), "userId")
		if !ok {
			return
		}

		username := game.Username(c.Query("username"))
		if !username.Valid() {
			abortBadRequest(c, "username must be supplied")
			return
		}

		result, err := gameEngine.AddPlayer(c.Request.Context(), gameID, userID, username)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		respondWithResult(c, result)
	}
}

// NewLeaveHandler removes a player from a game's lobby
func NewLeaveHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		userID, ok := userIDParam(c, c.Param("userID"), "userID")
		if !ok {
			return
		}

		result, err := gameEngine.RemovePlayer(c.Request.Context(), gameID, userID)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		respondWithResult(c, result)
	}
}
