package web

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// WSMessage is the push-channel message shape. Polling stays canonical;
// the hub just nudges screens to re-poll when something changed.
type WSMessage struct {
	Type   string      `json:"type"`
	ShowID int64       `json:"show_id,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// Client is one connected websocket screen.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	showIDs map[int64]bool // show filter; empty = all shows
}

// Hub fans WSMessages out to connected clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *WSMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister/broadcast events.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Client registered. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Client unregistered. Total clients: %d", len(h.clients))

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if !client.shouldReceive(message) {
					continue
				}
				select {
				case client.send <- h.marshalMessage(message):
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast implements services.StateBroadcaster.
func (h *Hub) Broadcast(message interface{}) {
	if wsMsg, ok := message.(*WSMessage); ok {
		h.broadcast <- wsMsg
		return
	}

	if msgMap, ok := message.(map[string]interface{}); ok {
		wsMsg := &WSMessage{}
		if v, ok := msgMap["type"].(string); ok {
			wsMsg.Type = v
		}
		if v, ok := msgMap["show_id"].(int64); ok {
			wsMsg.ShowID = v
		}
		if v, ok := msgMap["data"]; ok {
			wsMsg.Data = v
		}
		h.broadcast <- wsMsg
	}
}

func (h *Hub) marshalMessage(message *WSMessage) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return []byte("{}")
	}
	return data
}

func (c *Client) shouldReceive(message *WSMessage) bool {
	if len(c.showIDs) == 0 {
		return true
	}
	if message.ShowID == 0 {
		return false
	}
	return c.showIDs[message.ShowID]
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// handleMessage lets a client narrow its pushes to specific shows.
func (c *Client) handleMessage(message []byte) {
	var msg struct {
		Type    string  `json:"type"`
		ShowIDs []int64 `json:"show_ids"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Failed to unmarshal client message: %v", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.showIDs = make(map[int64]bool)
		for _, id := range msg.ShowIDs {
			c.showIDs[id] = true
		}
	case "unsubscribe":
		c.showIDs = make(map[int64]bool)
	}
}
