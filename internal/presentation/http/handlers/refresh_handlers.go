package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/infrastructure/messaging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/pkg/config"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RefreshHandlers serves the refresh event streams and the manual refresh
// trigger.
type RefreshHandlers struct {
	refreshService *services.RefreshService
	broadcaster    *messaging.RefreshBroadcaster
	hub            *messaging.WSHub
	logger         *logging.ChanneledLogger
}

// NewRefreshHandlers creates refresh stream endpoint handlers.
func NewRefreshHandlers(refreshService *services.RefreshService, broadcaster *messaging.RefreshBroadcaster, hub *messaging.WSHub, logger *logging.ChanneledLogger) *RefreshHandlers {
	return &RefreshHandlers{
		refreshService: refreshService,
		broadcaster:    broadcaster,
		hub:            hub,
		logger:         logger,
	}
}

// GetSSE handles GET /api/v1/refresh/sse as a server-sent-events stream. Each
// background refresh cycle produces one "refresh" event; heartbeats keep
// proxies from closing idle connections.
func (h *RefreshHandlers) GetSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, err := h.broadcaster.Subscribe()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer h.broadcaster.Unsubscribe(events)

	if _, err := fmt.Fprintf(c.Writer, "data: {\"type\":\"connected\",\"timestamp\":\"%s\"}\n\n",
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return
	}
	c.Writer.Flush()

	h.logger.SSE().Info("SSE client connected", "subscribers", h.broadcaster.SubscriberCount())

	heartbeat := time.NewTicker(config.SSEHeartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			h.logger.SSE().Debug("SSE client disconnected")
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if _, err := c.Writer.WriteString(event.SSEFormat()); err != nil {
				h.logger.SSE().Error("SSE write failed", "error", err)
				return
			}
			c.Writer.Flush()

		case <-heartbeat.C:
			frame := fmt.Sprintf("data: {\"type\":\"heartbeat\",\"timestamp\":\"%s\"}\n\n",
				time.Now().UTC().Format(time.RFC3339))
			if _, err := c.Writer.WriteString(frame); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// GetWS handles GET /api/v1/refresh/ws, upgrading to a websocket that relays refresh
// events as JSON messages.
func (h *RefreshHandlers) GetWS(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.SSE().Error("Websocket upgrade failed", "error", err)
		return
	}

	client := &messaging.WSClient{Conn: conn, Send: make(chan []byte, 16)}
	h.hub.Register(client)

	go h.writePump(client)
	go h.readPump(client)
}

func (h *RefreshHandlers) writePump(client *messaging.WSClient) {
	defer client.Conn.Close()

	for message := range client.Send {
		client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains inbound frames so pings are answered, and unregisters
// the client when the peer goes away.
func (h *RefreshHandlers) readPump(client *messaging.WSClient) {
	defer h.hub.Unregister(client)

	client.Conn.SetReadLimit(512)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// TriggerRefresh handles POST /api/v1/admin/refresh, running one refresh cycle out
// of schedule.
func (h *RefreshHandlers) TriggerRefresh(c *gin.Context) {
	stats := h.refreshService.RunCycle(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"refreshed": stats.Refreshed,
		"failed":    stats.Failed,
	})
}

// GetStatus handles GET /api/v1/refresh/status.
func (h *RefreshHandlers) GetStatus(c *gin.Context) {
	lastRun, stats := h.refreshService.LastRun()
	payload := gin.H{
		"running":     h.refreshService.Running(),
		"subscribers": h.broadcaster.SubscriberCount(),
	}
	if !lastRun.IsZero() {
		payload["lastRun"] = lastRun.Format(time.RFC3339)
		payload["refreshed"] = stats.Refreshed
		payload["failed"] = stats.Failed
	}
	c.JSON(http.StatusOK, payload)
}
