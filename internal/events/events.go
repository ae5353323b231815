// file: internal/events/events.go
// version: 2.0.0
// guid: 9e8d7f6a-5c4b-3a21-0f9e-8d7c6b5a4392

package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// EventType defines the type of library event
type EventType string

const (
	BookCreated        EventType = "book.created"
	BookUpdated        EventType = "book.updated"
	BookDeleted        EventType = "book.deleted"
	BookLiked          EventType = "book.liked"
	LibraryInfoChanged EventType = "library.info_changed"
	LibraryShared      EventType = "library.shared"
	BooksImported      EventType = "books.imported"
)

// Event is one change to a library. LibraryID scopes it to an owner.
type Event struct {
	Type      EventType      `json:"type"`
	LibraryID string         `json:"library_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler consumes events in-process.
type Handler func(*Event)

// Client represents a connected SSE client
type Client struct {
	ID      string
	Channel chan *Event
	// Library limits delivery to one library's events; empty means all.
	Library string
}

// NewClient creates a new SSE client
func NewClient(id, library string) *Client {
	return &Client{
		ID:      id,
		Channel: make(chan *Event, 100),
		Library: library,
	}
}

func (c *Client) wants(e *Event) bool {
	return c.Library == "" || e.LibraryID == "" || c.Library == e.LibraryID
}

// Hub delivers events to in-process subscribers synchronously and fans
// them out to SSE clients.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	subscribers map[EventType][]Handler
}

// NewHub creates a new event hub
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers h for the given event types. Handlers run on the
// publisher's goroutine, in registration order.
func (h *Hub) Subscribe(handler Handler, types ...EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range types {
		h.subscribers[t] = append(h.subscribers[t], handler)
	}
}

// Publish stamps e, runs subscribers, then broadcasts it to SSE clients.
func (h *Hub) Publish(e *Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	handlers := append([]Handler(nil), h.subscribers[e.Type]...)
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(e)
	}
	h.Broadcast(e)
}

// Emit is shorthand for Publish with the common fields.
func (h *Hub) Emit(t EventType, libraryID string, data map[string]any) {
	h.Publish(&Event{Type: t, LibraryID: libraryID, Data: data})
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[DEBUG] Client %s registered, total clients: %d", client.ID, len(h.clients))
}

// UnregisterClient removes a client
func (h *Hub) UnregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Printf("[DEBUG] Client %s unregistered, remaining clients: %d", clientID, len(h.clients))
	}
}

// Broadcast sends an event to every interested client without blocking.
func (h *Hub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !client.wants(event) {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			log.Printf("[WARN] Client %s channel full, dropping event %s", client.ID, event.Type)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE streams events as Server-Sent Events. The optional "library"
// query parameter narrows the stream to one library.
func (h *Hub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := fmt.Sprintf("client-%d", time.Now().UnixNano())
	client := NewClient(clientID, c.Query("library"))

	h.RegisterClient(client)
	defer h.UnregisterClient(clientID)

	writeEvent(c, &Event{
		Type:      "connection.established",
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"client_id": clientID},
	})

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-client.Channel:
			if !ok {
				return
			}
			if !writeEvent(c, event) {
				return
			}
		case <-ticker.C:
			writeEvent(c, &Event{Type: "heartbeat", Timestamp: time.Now().UTC()})
		}
	}
}

func writeEvent(c *gin.Context, event *Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ERROR] marshaling event: %v", err)
		return true
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		log.Printf("[DEBUG] writing to SSE client: %v", err)
		return false
	}
	c.Writer.Flush()
	return true
}
