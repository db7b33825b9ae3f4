package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewInitializeGameHandler creates a new handler to open a lobby in a chat
func NewInitializeGameHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID, err := strconv.ParseInt(c.Query("chatId"), 10, 64)
		if err != nil || !game.ChatID(chatID).Valid() {
			abortBadRequest(c, "chatId must be a non-zero integer")
			return
		}

		request := game.CreateGameRequest{ChatID: game.ChatID(chatID)}

		if rawThreadID := c.Query("threadId"); rawThreadID != "" {
			threadID, err := strconv.ParseInt(rawThreadID, 10, 64)
			if err != nil {
				abortBadRequest(c, "threadId must be an integer")
				return
			}
			request.ThreadID = &threadID
		}

		if rawTestMode := c.Query("testMode"); rawTestMode != "" {
			testMode, err := strconv.ParseBool(rawTestMode)
			if err != nil {
				abortBadRequest(c, "testMode must be a boolean")
				return
			}
			request.TestMode = testMode
		}

		gameID, err := gameEngine.CreateGame(c.Request.Context(), request)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		c.JSON(http.StatusCreated, &createGameResponse{GameID: gameID})
	}
}

// NewRestoreGameHandler re-registers a game from a snapshot in the request body
func NewRestoreGameHandler(gameEngine game.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var snapshot game.Snapshot
		if err := c.ShouldBindJSON(&snapshot); err != nil {
			abortBadRequest(c, "the body must be a game snapshot: "+err.Error())
			return
		}

		if err := gameEngine.Restore(c.Request.Context(), &snapshot); err != nil {
			abortWithEngineError(c, err)
			return
		}

		c.JSON(http.StatusOK, &createGameResponse{GameID: snapshot.GameID})
	}
}

type createGameResponse struct {
	GameID game.GameID `json:"gameId"`
}
