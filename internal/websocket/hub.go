// Package websocket streams account lifecycle events to connected
// administrators.
package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/dom/account-api/internal/domain"
)

const broadcastBuffer = 256

// Hub fans account events out to every registered presence client.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
				client.sendMessage(MessageTypeConnected, ConnectedPayload{
					UserID:      client.userID.String(),
					Subscribers: len(h.clients),
				})
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Slow consumer
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop closes every client and blocks until Run has returned.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues event for every subscriber. It never blocks the caller; when
// the queue is full the event is dropped.
func (h *Hub) Publish(event domain.AccountEvent) {
	msg, err := NewMessage(MessageTypeAccountEvent, event)
	if err != nil {
		log.Printf("ERROR [websocket.Hub.Publish] failed to encode %s: %v", event.Type, err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ERROR [websocket.Hub.Publish] failed to encode %s: %v", event.Type, err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Printf("ERROR [websocket.Hub.Publish] broadcast queue full, dropping %s for %s", event.Type, event.UserID)
	}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
