package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// AllAuctions is the room of clients watching every auction
const AllAuctions = "*"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Manager manages all WebSocket connections grouped by auction id
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	broadcast chan *BroadcastMessage
	log       *logrus.Entry
}

// Client represents a WebSocket client connection
type Client struct {
	ID        string
	AuctionID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// BroadcastMessage is an update for the clients watching one auction
type BroadcastMessage struct {
	AuctionID string
	Payload   []byte
}

// NewManager creates a new WebSocket manager
func NewManager(log *logrus.Entry) *Manager {
	return &Manager{
		rooms:     make(map[string]map[*Client]struct{}),
		broadcast: make(chan *BroadcastMessage, sendBuffer),
		log:       log,
	}
}

// Run delivers queued broadcasts until ctx is done
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-m.broadcast:
			m.broadcastToAuction(message.AuctionID, message.Payload)
		}
	}
}

// Broadcast queues payload for the clients watching auctionID and for the
// clients watching all auctions
func (m *Manager) Broadcast(auctionID string, payload []byte) {
	m.broadcast <- &BroadcastMessage{AuctionID: auctionID, Payload: payload}
}

// RegisterClient adds a client to its room and starts its writer
func (m *Manager) RegisterClient(client *Client) {
	m.mu.Lock()
	room, ok := m.rooms[client.AuctionID]
	if !ok {
		room = make(map[*Client]struct{})
		m.rooms[client.AuctionID] = room
	}
	room[client] = struct{}{}
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"client_id":  client.ID,
		"auction_id": client.AuctionID,
	}).Info("Client subscribed")

	go client.writePump()
}

// UnregisterClient removes a client and stops its writer. Calling it more
// than once is a no-op.
func (m *Manager) UnregisterClient(client *Client) {
	m.mu.Lock()
	room, ok := m.rooms[client.AuctionID]
	if ok {
		_, ok = room[client]
	}
	if ok {
		delete(room, client)
		if len(room) == 0 {
			delete(m.rooms, client.AuctionID)
		}
		close(client.Send)
	}
	m.mu.Unlock()

	if ok {
		m.log.WithFields(logrus.Fields{
			"client_id":  client.ID,
			"auction_id": client.AuctionID,
		}).Info("Client unsubscribed")
	}
}

// broadcastToAuction sends payload to every interested client. Clients whose
// send buffer is full are dropped so one slow reader cannot stall the rest.
func (m *Manager) broadcastToAuction(auctionID string, payload []byte) {
	var slow []*Client
	delivered := 0

	m.mu.RLock()
	for _, key := range []string{auctionID, AllAuctions} {
		for client := range m.rooms[key] {
			select {
			case client.Send <- payload:
				delivered++
			default:
				slow = append(slow, client)
			}
		}
	}
	m.mu.RUnlock()

	for _, client := range slow {
		m.log.WithField("client_id", client.ID).Warn("Dropping slow client")
		m.UnregisterClient(client)
	}

	m.log.WithFields(logrus.Fields{
		"auction_id": auctionID,
		"clients":    delivered,
	}).Debug("Broadcast update")
}

// GetSubscriberCount returns the number of clients watching an auction
func (m *Manager) GetSubscriberCount(auctionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[auctionID])
}

// writePump pumps messages from the Send channel to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so pongs and close frames are processed.
// Clients have nothing to send, so any payload is ignored.
func (c *Client) readPump(m *Manager) {
	defer m.UnregisterClient(c)

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.log.WithError(err).Warn("WebSocket error")
			}
			return
		}
	}
}

// StartReadPump starts the read pump for this client
func (c *Client) StartReadPump(m *Manager) {
	go c.readPump(m)
}
