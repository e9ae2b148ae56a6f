package websocket

import "github.com/rs/zerolog/log"

type delivery struct {
	username string
	data     []byte
}

// Hub maintains the set of active clients and routes notifications to the
// clients of a single user.
type Hub struct {
	// Registered clients, grouped by the principal they authenticated as.
	users map[string]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	deliver chan delivery
	done    chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.users[client.Username] == nil {
				h.users[client.Username] = make(map[*Client]bool)
			}
			h.users[client.Username][client] = true
			log.Info().Str("username", client.Username).Int("user_clients", len(h.users[client.Username])).Msg("Client connected")
		case client := <-h.Unregister:
			if h.remove(client) {
				log.Info().Str("username", client.Username).Msg("Client disconnected")
			}
		case d := <-h.deliver:
			for client := range h.users[d.username] {
				select {
				case client.Send <- d.data:
				default:
					// slow consumer
					h.remove(client)
				}
			}
		case <-h.done:
			for _, clients := range h.users {
				for client := range clients {
					close(client.Send)
				}
			}
			h.users = make(map[string]map[*Client]bool)
			return
		}
	}
}

// Stop shuts the hub down and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Attach registers a client unless the hub has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Detach unregisters a client. It is safe to call after Stop.
func (h *Hub) Detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Notify queues a notification for every client of username. It never blocks
// the caller; when the queue is full the notification is dropped.
func (h *Hub) Notify(username, action string, payload interface{}) {
	select {
	case h.deliver <- delivery{username: username, data: Encode(action, payload)}:
	default:
		log.Warn().Str("username", username).Str("action", action).Msg("Notification queue full, dropping")
	}
}

func (h *Hub) remove(client *Client) bool {
	clients, ok := h.users[client.Username]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.users, client.Username)
	}
	return true
}
