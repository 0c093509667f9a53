package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dom/account-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) Message {
	t.Helper()

	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHub_RegisterSendsConnected(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	userID := uuid.New()
	client := NewClient(hub, nil, userID)
	hub.Register(client)

	msg := receive(t, client)
	assert.Equal(t, MessageTypeConnected, msg.Type)

	var payload ConnectedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, userID.String(), payload.UserID)
	assert.Equal(t, 1, payload.Subscribers)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_PublishFansOut(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	first := NewClient(hub, nil, uuid.New())
	second := NewClient(hub, nil, uuid.New())
	hub.Register(first)
	hub.Register(second)
	receive(t, first)
	receive(t, second)

	user := &domain.User{ID: uuid.New(), Email: "alice@example.com"}
	hub.Publish(domain.NewAccountEvent(domain.EventUserDeactivated, user, time.Now()))

	for _, c := range []*Client{first, second} {
		msg := receive(t, c)
		assert.Equal(t, MessageTypeAccountEvent, msg.Type)

		var event domain.AccountEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, domain.EventUserDeactivated, event.Type)
		assert.Equal(t, user.ID, event.UserID)
		assert.Equal(t, "alice@example.com", event.Email)
	}
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := NewClient(hub, nil, uuid.New())
	hub.Register(client)
	receive(t, client)

	hub.Unregister(client)

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, uuid.New())
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)

	// Registering after shutdown closes the client instead of blocking
	late := NewClient(hub, nil, uuid.New())
	hub.Register(late)
	_, ok = <-late.send
	assert.False(t, ok)
}

func TestHub_ConcurrentStopBeforeRun(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotPanics(t, hub.Stop)
		}()
	}

	go hub.Run()
	wg.Wait()

	select {
	case <-hub.done:
	default:
		t.Fatal("hub still running after Stop")
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	user := &domain.User{ID: uuid.New()}
	assert.NotPanics(t, func() {
		hub.Publish(domain.NewAccountEvent(domain.EventUserOnline, user, time.Now()))
	})
}
