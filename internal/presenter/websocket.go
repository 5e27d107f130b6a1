package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"agrisense/internal/logging"
	"agrisense/internal/models"

	"github.com/gorilla/websocket"
)

const (
	defaultMaxConnections = 10
	writeWait             = 5 * time.Second
)

var errNoSubscribers = errors.New("no websocket subscribers")

// Hub pushes notifications to every connected WebSocket client.
// A connected client is treated as a granted permission; with none connected the answer is default.
type Hub struct {
	connections map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logging.Logger
	maxConns    int
	closed      bool
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
		maxConns:    defaultMaxConnections,
	}
}

// AddConnection registers conn. It reports false when the hub is full or closed.
func (h *Hub) AddConnection(conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return false
	}
	if len(h.connections) >= h.maxConns {
		h.logger.Warnf("Max WebSocket connections reached (%d)", h.maxConns)
		return false
	}
	h.connections[conn] = true
	h.logger.Infof("Added WebSocket connection (total: %d)", len(h.connections))
	return true
}

func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[conn]; exists {
		delete(h.connections, conn)
		h.logger.Infof("Removed WebSocket connection (remaining: %d)", len(h.connections))
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.connections)
}

// Broadcast writes message to every connection, dropping the ones that fail.
// It returns the number of clients that received it.
func (h *Hub) Broadcast(message []byte) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delivered := 0
	for conn := range h.connections {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to send WebSocket message: %v", err)
			conn.Close()
			delete(h.connections, conn)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) Supported() bool { return true }

func (h *Hub) Permission(context.Context) models.Permission {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	switch {
	case h.closed:
		return models.PermissionDenied
	case len(h.connections) > 0:
		return models.PermissionGranted
	default:
		return models.PermissionDefault
	}
}

// RequestPermission cannot prompt anyone; it reports the current state.
func (h *Hub) RequestPermission(ctx context.Context) (models.Permission, error) {
	return h.Permission(ctx), nil
}

// Display broadcasts n as a JSON text frame.
func (h *Hub) Display(_ context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification %s: %w", n.ID, err)
	}
	if h.Broadcast(payload) == 0 {
		return errNoSubscribers
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.closed = true
	for conn := range h.connections {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.connections, conn)
	}
	return nil
}
