package messaging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewRefreshBroadcaster(nil)

	first, err := b.Subscribe()
	require.NoError(t, err)
	second, err := b.Subscribe()
	require.NoError(t, err)

	sent := b.Publish(RefreshEvent{Status: "ok", Refreshed: 6})

	got := <-first
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 6, got.Refreshed)

	got = <-second
	assert.Equal(t, sent.ID, got.ID)
}

func TestPublishAssignsUniqueIDs(t *testing.T) {
	b := NewRefreshBroadcaster(nil)

	first := b.Publish(RefreshEvent{Status: "ok"})
	second := b.Publish(RefreshEvent{Status: "ok"})

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEmpty(t, first.At)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewRefreshBroadcaster(nil)

	slow, err := b.Subscribe()
	require.NoError(t, err)

	// Fill the buffer without draining; further publishes must not block.
	for i := 0; i < cap(slow)+5; i++ {
		b.Publish(RefreshEvent{Status: "ok"})
	}

	assert.Len(t, slow, cap(slow))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewRefreshBroadcaster(nil)

	ch, err := b.Subscribe()
	require.NoError(t, err)
	assert.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Second unsubscribe must be a no-op, not a double close.
	b.Unsubscribe(ch)
}

func TestSubscribeEnforcesCap(t *testing.T) {
	b := NewRefreshBroadcaster(nil)
	b.maxSubs = 2

	_, err := b.Subscribe()
	require.NoError(t, err)
	_, err = b.Subscribe()
	require.NoError(t, err)

	_, err = b.Subscribe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscriber limit")
}

func TestSSEFormatFrame(t *testing.T) {
	event := RefreshEvent{ID: "01ARZ3", Status: "ok", Refreshed: 3, Failed: 1, At: "2025-09-01T12:00:00Z"}
	frame := event.SSEFormat()

	assert.True(t, strings.HasPrefix(frame, "id: 01ARZ3\nevent: refresh\ndata: "))
	assert.True(t, strings.HasSuffix(frame, "\n\n"))
	assert.Contains(t, frame, `"refreshed":3`)
	assert.Contains(t, frame, `"failed":1`)
}
