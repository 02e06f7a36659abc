package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"parking-service/internal/hub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub        *hub.Hub
	bufferSize int
}

func NewWSHandler(h *hub.Hub, bufferSize int) *WSHandler {
	return &WSHandler{hub: h, bufferSize: bufferSize}
}

// serve upgrades the connection and subscribes it to the lot event feed.
// The read loop exists only to detect the client going away.
func (h *WSHandler) serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := hub.NewClient(conn, h.bufferSize)
	h.hub.Register(client)

	go client.WritePump()

	go func() {
		defer h.hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
