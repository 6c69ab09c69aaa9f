// Package messaging provides the refresh event fan-out for connected
// dashboard clients.
package messaging

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// RefreshEvent is published after a background refresh cycle completes with
// at least one hot key rebuilt.
type RefreshEvent struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Refreshed int    `json:"refreshed"`
	Failed    int    `json:"failed"`
	At        string `json:"at"`
}

// SSEFormat renders the event as a server-sent-events frame.
func (e RefreshEvent) SSEFormat() string {
	payload, _ := json.Marshal(e)
	return fmt.Sprintf("id: %s\nevent: refresh\ndata: %s\n\n", e.ID, payload)
}

// JSON renders the event as a plain JSON message for websocket clients.
func (e RefreshEvent) JSON() []byte {
	payload, _ := json.Marshal(e)
	return payload
}

// RefreshBroadcaster fans refresh events out to subscribers. Sends never
// block: a subscriber whose buffer is full misses the event and catches up
// on the next one.
type RefreshBroadcaster struct {
	mu          sync.Mutex
	subscribers map[chan RefreshEvent]struct{}
	maxSubs     int
	entropy     *ulid.MonotonicEntropy
	logger      *logging.ChanneledLogger
}

// NewRefreshBroadcaster creates an empty broadcaster.
func NewRefreshBroadcaster(logger *logging.ChanneledLogger) *RefreshBroadcaster {
	return &RefreshBroadcaster{
		subscribers: make(map[chan RefreshEvent]struct{}),
		maxSubs:     config.MaxSubscribers,
		entropy:     ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		logger:      logger,
	}
}

// Subscribe registers a new listener and returns its event channel. Returns
// an error when the subscriber cap is reached.
func (b *RefreshBroadcaster) Subscribe() (chan RefreshEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subscribers) >= b.maxSubs {
		return nil, fmt.Errorf("subscriber limit reached (%d)", b.maxSubs)
	}

	ch := make(chan RefreshEvent, 8)
	b.subscribers[ch] = struct{}{}

	if b.logger != nil {
		b.logger.SSE().Debug("Refresh subscriber registered", "subscribers", len(b.subscribers))
	}
	return ch, nil
}

// Unsubscribe removes a listener and closes its channel. Safe to call twice.
func (b *RefreshBroadcaster) Unsubscribe(ch chan RefreshEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)

	if b.logger != nil {
		b.logger.SSE().Debug("Refresh subscriber removed", "subscribers", len(b.subscribers))
	}
}

// Publish delivers an event to every subscriber without blocking. The event
// gets a fresh ULID and timestamp before delivery.
func (b *RefreshBroadcaster) Publish(event RefreshEvent) RefreshEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	event.ID = ulid.MustNew(ulid.Timestamp(now), b.entropy).String()
	event.At = now.Format(time.RFC3339)

	delivered, dropped := 0, 0
	for ch := range b.subscribers {
		select {
		case ch <- event:
			delivered++
		default:
			dropped++
		}
	}

	if b.logger != nil {
		b.logger.SSE().Info("Refresh event published",
			"eventId", event.ID, "status", event.Status,
			"delivered", delivered, "dropped", dropped)
	}
	return event
}

// SubscriberCount reports the current number of listeners.
func (b *RefreshBroadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
