package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lecternapp/lectern-server/internal/id"
)

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	// BookID filters delivery; empty means "receive all books".
	BookID string
}

// Manager manages SSE connections and broadcasts events.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan Event, 256),
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
}

// Start begins the event broadcasting loop.
// This should be called once at server startup in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	heartbeat := time.NewTicker(m.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				m.closeAllClients()
				return
			}
			m.broadcast(event)

		case <-heartbeat.C:
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Emit queues an event for broadcast. Non-blocking: if the queue is full
// the event is dropped, since progress events supersede each other anyway.
func (m *Manager) Emit(event Event) {
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()
	if m.shutdown {
		return
	}

	select {
	case m.events <- event:
	default:
		m.logger.Warn("SSE event queue full, dropping event", "type", event.Type)
	}
}

// Shutdown stops accepting events and disconnects all clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()
	return nil
}

// Subscribe registers a client. bookID filters the events it receives.
func (m *Manager) Subscribe(bookID string) (*Client, error) {
	clientID, err := id.Generate(id.SSEClientPrefix)
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		BookID:      bookID,
		ConnectedAt: time.Now(),
		EventChan:   make(chan Event, 32),
		Done:        make(chan struct{}),
	}

	m.mu.Lock()
	m.clients[clientID] = client
	m.mu.Unlock()

	m.logger.Debug("SSE client connected", "client_id", clientID, "book_id", bookID)
	return client, nil
}

// Unsubscribe removes a client and closes its channels.
func (m *Manager) Unsubscribe(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
	}
	m.mu.Unlock()

	if ok {
		close(client.Done)
		m.logger.Debug("SSE client disconnected", "client_id", clientID)
	}
}

// broadcast delivers an event to every matching client. Slow clients get
// the event dropped rather than stalling the loop.
func (m *Manager) broadcast(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		if event.BookID != "" && client.BookID != "" && client.BookID != event.BookID {
			continue
		}
		select {
		case client.EventChan <- event:
		default:
		}
	}
}

func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for clientID, client := range m.clients {
		close(client.Done)
		delete(m.clients, clientID)
	}
}
