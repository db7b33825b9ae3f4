package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/controllers"
	"github.com/jrh3k5/forest-and-wolves/game"
)

// NewServer builds the HTTP API over the game engine. The event log and spectator feed
// routes are only registered when their dependencies are supplied.
func NewServer(gameEngine game.Engine, eventLister controllers.EventLister, feedServer controllers.FeedServer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.Use(func(c *gin.Context) {
		// allow everything
		c.Writer.Header().Add("Access-Control-Allow-Origin", "*")

		c.Next()
	})

	r.POST("/games", controllers.NewInitializeGameHandler(gameEngine))
	r.POST("/games/restore", controllers.NewRestoreGameHandler(gameEngine))
	r.GET("/games/:gameID", controllers.NewGetGameHandler(gameEngine))
	r.DELETE("/games/:gameID", controllers.NewCancelGameHandler(gameEngine))
	r.OPTIONS("/games/:gameID", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Methods", http.MethodDelete)
		c.Status(http.StatusOK)
	})
	r.GET("/games/:gameID/snapshot", controllers.NewGetSnapshotHandler(gameEngine))
	r.POST("/games/:gameID/join", controllers.NewJoinHandler(gameEngine))
	r.POST("/games/:gameID/start", controllers.NewStartGameHandler(gameEngine))
	r.POST("/games/:gameID/tick", controllers.NewTickHandler(gameEngine))
	r.POST("/games/:gameID/advance", controllers.NewAdvanceHandler(gameEngine))
	r.DELETE("/games/:gameID/players/:userID", controllers.NewLeaveHandler(gameEngine))
	r.GET("/games/:gameID/players/:userID/targets", controllers.NewGetTargetsHandler(gameEngine))
	r.POST("/games/:gameID/players/:userID/lives", controllers.NewGrantLivesHandler(gameEngine))
	r.POST("/games/:gameID/players/:userID/actions/:action", controllers.NewPlayerActionHandler(gameEngine))

	if eventLister != nil {
		r.GET("/games/:gameID/events", controllers.NewGetEventsHandler(eventLister))
	}
	if feedServer != nil {
		r.GET("/games/:gameID/feed", controllers.NewFeedHandler(gameEngine, feedServer))
	}

	return r
}
