package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server upgrades HTTP requests on /ws to channel transports and hands
// them to the hub.
type Server struct {
	Hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a websocket server around the given hub.
func NewServer(hub *Hub) *Server {
	return &Server{
		Hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The dashboard is served from arbitrary dev hosts.
				return true
			},
		},
	}
}

// HandleWebSocket handles connection upgrades on /ws.
func (s *Server) HandleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, s.Hub, generateClientID())
	s.Hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleStats returns hub statistics.
func (s *Server) HandleStats(c *gin.Context) {
	stats := s.Hub.GetStats()
	stats.ActiveConnections = s.Hub.ClientCount()
	stats.LastUpdate = time.Now()

	c.JSON(http.StatusOK, stats)
}

// Stop shuts the hub down.
func (s *Server) Stop() {
	s.Hub.Stop()
	logrus.Info("WebSocket server stopped")
}

// RegisterRoutes registers websocket routes with the gin router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws", s.HandleWebSocket)
	router.GET("/ws/stats", s.HandleStats)
}

// generateClientID generates a unique client ID
func generateClientID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
