package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewTickHandler advances the game only if its phase deadline has passed
func NewTickHandler(gameEngine game.Engine) gin.HandlerFunc {
	return newPhaseHandler(gameEngine.Tick)
}

// NewAdvanceHandler ends the current phase regardless of its deadline
func NewAdvanceHandler(gameEngine game.Engine) gin.HandlerFunc {
	return newPhaseHandler(gameEngine.Advance)
}

func newPhaseHandler(transition func(context.Context, game.GameID) (*game.PhaseReport, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		report, err := transition(c.Request.Context(), gameID)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		if report == nil {
			c.Status(http.StatusNoContent)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}
