package messaging

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
)

// WSClient represents one connected websocket dashboard client.
type WSClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// WSHub relays refresh events to websocket clients. It subscribes to the
// RefreshBroadcaster and fans each event into per-client send buffers.
type WSHub struct {
	broadcaster *RefreshBroadcaster
	register    chan *WSClient
	unregister  chan *WSClient
	clients     map[*WSClient]bool
	logger      *logging.ChanneledLogger
}

// NewWSHub creates a hub bound to the given broadcaster.
func NewWSHub(broadcaster *RefreshBroadcaster, logger *logging.ChanneledLogger) *WSHub {
	return &WSHub{
		broadcaster: broadcaster,
		register:    make(chan *WSClient),
		unregister:  make(chan *WSClient),
		clients:     make(map[*WSClient]bool),
		logger:      logger,
	}
}

// Run is the hub's main loop. Run it as a goroutine; it exits when ctx is
// cancelled, closing every client's send channel.
func (h *WSHub) Run(ctx context.Context) {
	events, err := h.broadcaster.Subscribe()
	if err != nil {
		if h.logger != nil {
			h.logger.SSE().Error("Websocket hub could not subscribe", "error", err)
		}
		return
	}
	defer h.broadcaster.Unsubscribe(events)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			if h.logger != nil {
				h.logger.SSE().Debug("Websocket client registered", "clients", len(h.clients))
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			if h.logger != nil {
				h.logger.SSE().Debug("Websocket client unregistered", "clients", len(h.clients))
			}

		case event, ok := <-events:
			if !ok {
				return
			}
			message := event.JSON()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		}
	}
}

// Register queues a client for registration.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister queues a client for removal.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
