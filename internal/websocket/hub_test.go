package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHub_PublishReachesTopicSubscribers(t *testing.T) {
	h := startHub(t)

	books := NewClient(h, nil, TopicBooks)
	other := NewClient(h, nil, "other")
	h.Subscribe(books)
	h.Subscribe(other)

	h.Publish(TopicBooks, NewMessage("book.created", map[string]string{"bookId": "1"}))

	var msg Message
	require.NoError(t, json.Unmarshal(receive(t, books), &msg))
	assert.Equal(t, "book.created", msg.Action)

	select {
	case m := <-other.Send:
		t.Fatalf("client on another topic received %s", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnsubscribeClosesSend(t *testing.T) {
	h := startHub(t)

	c := NewClient(h, nil, TopicBooks)
	h.Subscribe(c)
	h.Unsubscribe(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("send channel was not closed")
	}

	// A second unsubscribe is a no-op.
	h.Unsubscribe(c)
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := startHub(t)

	c := NewClient(h, nil, TopicBooks)
	h.Subscribe(c)

	// Publish hands over synchronously, so once the extra message has been
	// accepted the overflowing delivery has already happened.
	for i := 0; i < sendBuffer+2; i++ {
		h.Publish(TopicBooks, NewMessage("book.updated", i))
	}

	closed := false
	deadline := time.After(2 * time.Second)
	for !closed {
		select {
		case _, ok := <-c.Send:
			closed = !ok
		case <-deadline:
			t.Fatal("slow client was not dropped")
		}
	}
}

func TestHub_StopUnblocksCallers(t *testing.T) {
	h := NewHub()
	go h.Run()
	h.Stop()
	h.Stop()

	done := make(chan struct{})
	go func() {
		c := NewClient(h, nil, TopicBooks)
		h.Subscribe(c)
		h.Unsubscribe(c)
		for i := 0; i < 100; i++ {
			h.Publish(TopicBooks, []byte(`{}`))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub calls blocked after Stop")
	}
}

func TestNewErrorMessage(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal(NewErrorMessage("boom"), &msg))
	assert.Equal(t, "error", msg.Action)
	assert.Equal(t, map[string]any{"message": "boom"}, msg.Payload)
}

func TestHub_SendToRegisteredClientOnly(t *testing.T) {
	h := startHub(t)

	c := NewClient(h, nil, TopicBooks)
	stranger := NewClient(h, nil, TopicBooks)
	h.Subscribe(c)

	h.SendTo(c, NewMessage("pong", nil))
	h.SendTo(stranger, NewMessage("pong", nil))

	var msg Message
	require.NoError(t, json.Unmarshal(receive(t, c), &msg))
	assert.Equal(t, "pong", msg.Action)
	assert.Empty(t, stranger.Send)
}
