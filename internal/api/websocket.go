package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/thereceipt/escpos-driver/internal/status"
)

// WebSocket message types
const (
	EventStatus = "status"
)

const writeWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string          `json:"event"`
	Data  status.Snapshot `json:"data"`
}

// wsClient is one connected status listener
type wsClient struct {
	conn *websocket.Conn
	done chan struct{}
}

// handleWebSocket streams the current status, then every change
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		done: make(chan struct{}),
	}

	// subscribe before taking the snapshot so no change falls in between
	updates, cancel := s.feed.Subscribe()
	first := s.feed.Snapshot()

	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")

	go client.readPump()
	go client.writePump(first, updates, cancel)
}

// readPump discards client messages and notices the disconnect
func (c *wsClient) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
		log.Info().Msg("websocket client disconnected")
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
	}
}

func (c *wsClient) writePump(first status.Snapshot, updates <-chan status.Snapshot, cancel func()) {
	defer func() {
		cancel()
		c.conn.Close()
	}()

	if err := c.send(first); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := c.send(snap); err != nil {
				log.Warn().Err(err).Msg("websocket write failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) send(snap status.Snapshot) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(WSMessage{Event: EventStatus, Data: snap})
}
