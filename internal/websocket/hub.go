package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MessageToSend defines the structure for sending a message to a specific user.
type MessageToSend struct {
	TargetUsername string
	Payload        []byte
}

// Hub maintains the set of active clients and delivers notifications to them.
type Hub struct {
	// Registered clients. Maps username to a set of active client connections.
	Clients map[string]map[*Client]bool

	// Channel for sending messages to specific users.
	SendDirect chan *MessageToSend

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		SendDirect: make(chan *MessageToSend),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	logrus.Info("WebSocket Hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			logrus.Info("WebSocket Hub stopped")
			return

		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.Username]; !ok {
				h.Clients[client.Username] = make(map[*Client]bool)
			}
			h.Clients[client.Username][client] = true
			logrus.WithFields(logrus.Fields{
				"username":    client.Username,
				"connections": len(h.Clients[client.Username]),
			}).Info("WebSocket client registered")
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if userClients, ok := h.Clients[client.Username]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					close(client.Send)
					if len(userClients) == 0 {
						delete(h.Clients, client.Username)
					}
					logrus.WithFields(logrus.Fields{
						"username":    client.Username,
						"connections": len(userClients),
					}).Info("WebSocket client unregistered")
				}
			}
			h.mu.Unlock()

		case directMessage := <-h.SendDirect:
			h.mu.RLock()
			userClients := h.Clients[directMessage.TargetUsername]
			if len(userClients) == 0 {
				logrus.WithField("username", directMessage.TargetUsername).Debug("User not connected, notification dropped")
			}
			for client := range userClients {
				h.deliver(client, directMessage.Payload)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		logrus.WithField("username", client.Username).Warn("Send buffer full, message dropped for client")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for username, userClients := range h.Clients {
		for client := range userClients {
			close(client.Send)
		}
		delete(h.Clients, username)
	}
}

// SendToUser queues payload for every connection of username. It gives up after a
// second if the hub is not draining.
func (h *Hub) SendToUser(username string, payload []byte) {
	message := &MessageToSend{
		TargetUsername: username,
		Payload:        payload,
	}
	select {
	case h.SendDirect <- message:
	case <-h.done:
	case <-time.After(1 * time.Second):
		logrus.WithField("username", username).Warn("Timeout queuing message in hub")
	}
}

// ConnectedUsers is the number of users with at least one live connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

// AddClient registers client with the hub. It reports false once the hub has
// stopped.
func (h *Hub) AddClient(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}
