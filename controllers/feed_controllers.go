package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/forms-api/feed"
	"github.com/yeremiapane/forms-api/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced by the router, and the feed requires a token when admin auth is on.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type FeedController struct {
	Hub *feed.Hub
}

func NewFeedController(hub *feed.Hub) *FeedController {
	return &FeedController{Hub: hub}
}

// Subscribe upgrades to a websocket and streams submission_created events
// until the client goes away.
func (fc *FeedController) Subscribe(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.InfoLogger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	fc.Hub.Register(ws)
	utils.InfoLogger.WithField("clients", fc.Hub.ClientCount()).Info("feed client connected")

	// drain reads so close frames and pings are processed
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	fc.Hub.Unregister(ws)
}
