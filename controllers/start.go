package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewStartGameHandler builds a handler to deal roles and open the first night
func NewStartGameHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		result, err := gameEngine.StartGame(c.Request.Context(), gameID)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		respondWithResult(c, result)
	}
}
