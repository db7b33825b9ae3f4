package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewGrantLivesHandler applies an extra-lives item to a living player
func NewGrantLivesHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		userID, ok := userIDParam(c, c.Param("userID"), "userID")
		if !ok {
			return
		}

		lives := 1
		if rawCount := c.Query("count"); rawCount != "" {
			parsedCount, err := strconv.Atoi(rawCount)
			if err != nil {
				abortBadRequest(c, "count must be an integer")
				return
			}
			lives = parsedCount
		}

		result, err := gameEngine.GrantExtraLives(c.Request.Context(), gameID, userID, lives)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		respondWithResult(c, result)
	}
}
