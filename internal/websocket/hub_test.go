package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardbanrecords/backoffice/internal/model"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go h.Run()
	return h
}

func receive(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket message received")
		return nil
	}
}

func TestHubBroadcastsProgressToJobSubscribers(t *testing.T) {
	h := newRunningHub(t)

	subscriber := &Client{JobID: "job-1", Send: make(chan []byte, 8)}
	other := &Client{JobID: "job-2", Send: make(chan []byte, 8)}
	h.Register(subscriber)
	h.Register(other)

	h.Progress("job-1", 50, map[string]model.ProgressEntry{
		"spotify": {Status: model.OutcomeCompleted},
	})

	msg := receive(t, subscriber)
	assert.Equal(t, model.WSMessageTypeProgress, msg["type"])
	assert.Equal(t, float64(50), msg["progress"])

	select {
	case <-other.Send:
		t.Fatal("subscriber of another job received the message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastsCompletionAndFailure(t *testing.T) {
	h := newRunningHub(t)

	c := &Client{JobID: "job-1", Send: make(chan []byte, 8)}
	h.Register(c)

	h.Completed("job-1", model.JobStatusCompleted, map[string]int{"statements": 2})
	msg := receive(t, c)
	assert.Equal(t, model.WSMessageTypeComplete, msg["type"])
	assert.Equal(t, string(model.JobStatusCompleted), msg["status"])

	h.Failed("job-1", "report endpoint: connection refused", true)
	msg = receive(t, c)
	assert.Equal(t, model.WSMessageTypeError, msg["type"])
	assert.Equal(t, true, msg["retryable"])
}

func TestClientSendAfterCloseDoesNotPanic(t *testing.T) {
	c := &Client{JobID: "job-1", Send: make(chan []byte, 1)}

	require.True(t, c.trySend([]byte(`{"type":"pong"}`)))
	// Buffer full: the message is dropped, not blocked on.
	assert.False(t, c.trySend([]byte(`{"type":"pong"}`)))

	c.closeSend()
	c.closeSend() // closing twice is safe

	assert.False(t, c.trySend([]byte(`{"type":"pong"}`)))
}

func TestHubDropsPongForDepartedClient(t *testing.T) {
	h := newRunningHub(t)

	// A slow client gets unregistered by a broadcast while its reader
	// goroutine is still alive and replying to pings.
	c := &Client{JobID: "job-1", Send: make(chan []byte)}
	h.Register(c)
	h.Progress("job-1", 10, nil)

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.closed
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, c.trySend([]byte(`{"type":"pong"}`)))
}

func TestHubDropsEventsWithoutSubscribers(t *testing.T) {
	h := newRunningHub(t)

	// Must not block or panic with nobody listening.
	for i := 0; i < 500; i++ {
		h.Progress("job-nobody", i%100, nil)
	}
}
