package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/game"
	"github.com/jrh3k5/forest-and-wolves/store"
)

// FeedServer streams a chat's announcements over an upgraded connection.
type FeedServer interface {
	ServeFeed(w http.ResponseWriter, r *http.Request, chatID game.ChatID)
}

// EventLister reads a game's event log.
type EventLister interface {
	Events(ctx context.Context, gameID game.GameID) ([]store.Event, error)
}

// NewFeedHandler upgrades the request into a spectator feed for the game's chat
func NewFeedHandler(gameEngine game.Engine, feedServer FeedServer) gin.HandlerFunc {
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

		feedServer.ServeFeed(c.Writer, c.Request, snapshot.ChatID)
	}
}

// NewGetEventsHandler returns the game's event log
func NewGetEventsHandler(eventLister EventLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := gameIDParam(c)
		if !ok {
			return
		}

		events, err := eventLister.Events(c.Request.Context(), gameID)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}

		if events == nil {
			events = []store.Event{}
		}
		c.JSON(http.StatusOK, events)
	}
}
