package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vn-signal-engine/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 5 * time.Second

// handleWebSocket upgrades the connection and streams every events.Envelope
// published on the bus to this client, replaying the cached system status
// and latest per-symbol signal_check snapshots on connect (handled inside
// events.Bus.Subscribe) and dropping the client if it falls behind.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.WebSocketContext("", "events").WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()
	ch, unsubscribe := s.bus.Subscribe(clientID)
	defer unsubscribe()

	log := logging.WebSocketContext("", "events").WithField("client_id", clientID)
	log.Info("client connected")
	defer log.Info("client disconnected")

	// Drain and discard any client-initiated frames; this endpoint is
	// publish-only, but reading keeps the connection's close frame handling
	// working and detects client-side disconnects promptly.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	for env := range ch {
		data, err := json.Marshal(env)
		if err != nil {
			log.WithError(err).Error("failed to marshal event")
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
