package progress

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"kundenportal/internal/middleware"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts websocket upgrades from the given origins.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.OriginChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes expects a group carrying the PortalSession middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/angebot/:token/progress", middleware.RequireSession(), h.Stream)
}

// Stream upgrades to a websocket that receives the session's progress events.
func (h *Handler) Stream(c *gin.Context) {
	sessionID := middleware.SessionID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("progress_ws_upgrade_failed session_id=%s error=%v", sessionID, err)
		return
	}
	log.Printf("progress_ws_connected session_id=%s", sessionID)
	h.hub.ServeWS(conn, sessionID)
	log.Printf("progress_ws_disconnected session_id=%s", sessionID)
}
