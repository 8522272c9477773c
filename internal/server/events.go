package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TheBeachLab/mods-mcp/internal/eventbus"
)

// eventClient streams bus envelopes to one websocket connection. The feed is
// one-directional: inbound frames are drained only to notice the close.
type eventClient struct {
	id   string
	conn *websocket.Conn
	sub  *eventbus.Subscription
}

var eventsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Only the locally served mods page connects here.
		return true
	},
}

// handleEvents upgrades the request and forwards every bus envelope as a
// JSON text frame until the client hangs up.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Events] upgrade error: %v", err)
		return
	}

	client := &eventClient{
		id:   uuid.NewString(),
		conn: conn,
		sub:  s.bus.Subscribe(eventbus.AllTopics()...),
	}
	log.Printf("[Events] client %s connected", client.id)

	go client.writePump()
	go client.readPump()
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case envelope, ok := <-c.sub.C():
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(envelope)
			if err != nil {
				log.Printf("[Events] client %s encode error: %v", c.id, err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; its job is to detect the close and
// release the bus subscription.
func (c *eventClient) readPump() {
	defer func() {
		c.sub.Close()
		c.conn.Close()
		log.Printf("[Events] client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(1024)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
