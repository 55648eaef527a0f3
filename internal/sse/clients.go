// Package sse provides Server-Sent Events client management for real-time communication.
package sse

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/fundacion-cms/internal/model"
)

var sseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

// Event names pushed to editor clients.
const (
	EventConnected = "connected"
	EventChange    = "change"
	EventAlert     = "alert"
	EventFocusAlt  = "focus-alt"
	EventFeatured  = "featured"
	EventUpload    = "upload"
	EventReload    = "reload"
)

type Event struct {
	Name string
	Data string
}

// ClientBuffer is the number of events a slow client may lag behind before
// events are dropped for it.
const ClientBuffer = 32

type Client struct {
	Msg        chan Event
	DocumentID model.DocumentID
}

func NewClient(id model.DocumentID) *Client {
	return &Client{
		Msg:        make(chan Event, ClientBuffer),
		DocumentID: id,
	}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.Msg)
	}
}

func (s *SSEClients) Count(id model.DocumentID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for client := range s.clients {
		if client.DocumentID == id {
			n++
		}
	}
	return n
}

// Broadcast sends an event to every client of document id without blocking.
func (s *SSEClients) Broadcast(id model.DocumentID, name, data string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.DocumentID == id {
			select {
			case client.Msg <- Event{Name: name, Data: data}:
			default:
				sseLogger.Warn().Str("document_id", string(id)).Str("event", name).Msg("SSE client lagging, event dropped")
			}
		}
	}
}
