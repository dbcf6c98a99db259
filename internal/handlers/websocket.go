package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/thereayou/converse/internal/middleware"
	"github.com/thereayou/converse/internal/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth happens in middleware; origins are not restricted here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub *websocket.Hub
}

func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect upgrades the request and hands the connection to the hub. The
// socket ID is returned in the first frame so the client can send it back as
// X-Socket-ID for sender exclusion.
func (h *WSHandler) Connect(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := websocket.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	client.SendJSON(gin.H{"type": "connected", "socket_id": client.ID})

	go client.WritePump()
	go client.ReadPump()
}

// Online reports presence for the people picker.
func (h *WSHandler) Online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.hub.OnlineUsers()})
}
