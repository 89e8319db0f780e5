package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealdesk/internal/realtime"
)

// WSHandler attaches clients to the view-invalidation feed.
type WSHandler struct {
	Hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{Hub: hub}
}

func (h *WSHandler) Subscribe(c *gin.Context) {
	if _, ok := currentOwner(c); !ok {
		return
	}
	conn, err := realtime.Upgrade(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.Hub.Register(conn)

	// the read side only exists to notice the client going away
	go func() {
		_ = conn.Drain()
		h.Hub.Unregister(conn)
	}()
}
