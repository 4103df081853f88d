package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "hub-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticate(t *testing.T) {
	h := NewHub(testSecret, []string{"localhost:3000"}, zap.NewNop())

	valid := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	userID, ok := h.authenticate(valid)
	assert.True(t, ok)
	assert.Equal(t, 42, userID)

	_, ok = h.authenticate("")
	assert.False(t, ok)

	_, ok = h.authenticate("not-a-token")
	assert.False(t, ok)

	wrongSecret := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	_, ok = h.authenticate(wrongSecret)
	assert.False(t, ok)

	expired := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	_, ok = h.authenticate(expired)
	assert.False(t, ok)

	noUser := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, ok = h.authenticate(noUser)
	assert.False(t, ok)
}

func TestBroadcastReachesRegisteredClients(t *testing.T) {
	h := NewHub(testSecret, nil, zap.NewNop())
	go h.Run()

	client := &Client{ID: "user:1", Hub: h, Send: make(chan []byte, 8)}
	h.register <- client

	h.Broadcast("monitor_alert", map[string]interface{}{"monitor_name": "backup-job"})

	select {
	case raw := <-client.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "monitor_alert", msg.Type)
		assert.Contains(t, string(msg.Payload), "backup-job")
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never reached client")
	}
}

func TestBroadcastDropsSlowClients(t *testing.T) {
	h := NewHub(testSecret, nil, zap.NewNop())
	go h.Run()

	// Unbuffered send channel with no reader: every delivery would block
	slow := &Client{ID: "user:2", Hub: h, Send: make(chan []byte)}
	h.register <- slow

	h.Broadcast("monitor_ping", map[string]int{"monitor_id": 1})

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.clients) == 0
	}, 2*time.Second, 10*time.Millisecond, "slow client should be evicted")

	// Its channel was closed on eviction
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestSendToEvictedClientDoesNotPanic(t *testing.T) {
	h := NewHub(testSecret, nil, zap.NewNop())
	go h.Run()

	slow := &Client{ID: "user:4", Hub: h, Send: make(chan []byte)}
	h.register <- slow

	// Evict it: the blocked delivery closes the send channel
	h.Broadcast("monitor_ping", map[string]int{"monitor_id": 1})
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.clients) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// A pong racing the eviction must be dropped, not panic
	assert.NotPanics(t, func() {
		slow.handleMessage(Message{Type: "ping"})
	})
	assert.False(t, h.send(slow, []byte("x")))
}

func TestSendDeliversToRegisteredClient(t *testing.T) {
	h := NewHub(testSecret, nil, zap.NewNop())
	go h.Run()

	client := &Client{ID: "user:5", Hub: h, Send: make(chan []byte, 8)}
	h.register <- client
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, h.send(client, []byte("hello")))
	assert.Equal(t, []byte("hello"), <-client.Send)
}

func TestBroadcastUnmarshalablePayloadIsDropped(t *testing.T) {
	h := NewHub(testSecret, nil, zap.NewNop())
	go h.Run()

	client := &Client{ID: "user:3", Hub: h, Send: make(chan []byte, 8)}
	h.register <- client

	h.Broadcast("bad", map[string]interface{}{"fn": func() {}})
	h.Broadcast("good", map[string]string{"k": "v"})

	select {
	case raw := <-client.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "good", msg.Type, "unmarshalable event silently dropped")
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never reached client")
	}
}
