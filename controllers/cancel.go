package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewCancelGameHandler builds a handler for handling the cancellation of games
func NewCancelGameHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		if err := gameEngine.Cancel(c.Request.Context(), gameID); err != nil {
			abortWithEngineError(c, err)
			return
		}

		c.Status(http.StatusOK)
	}
}
