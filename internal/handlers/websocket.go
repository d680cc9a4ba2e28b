package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	ws "simucrise/internal/websocket"
)

// WebSocketHandler upgrades HTTP requests to realtime connections. There
// is no authentication on this surface: a connection earns its room
// context through the join command, nothing before that.
type WebSocketHandler struct {
	hub      *ws.Hub
	gateway  *Gateway
	upgrader websocket.Upgrader

	log *logrus.Entry
}

func NewWebSocketHandler(hub *ws.Hub, gateway *Gateway) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the frontend domain is fixed
				return true
			},
		},
		log: logrus.WithField("component", "ws_handler"),
	}
}

// HandleWebSocket upgrades the request and starts the connection pumps.
// The client stays unjoined until its first join command succeeds.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.gateway)
}
