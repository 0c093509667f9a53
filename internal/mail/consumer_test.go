package mail_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dom/account-api/internal/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestConsumer_HandleDelivery(t *testing.T) {
	var got []mail.Message
	c := mail.NewConsumer("", "mail.test", func(ctx context.Context, msg mail.Message) error {
		got = append(got, msg)
		return nil
	})
	ctx := context.Background()

	body, _ := json.Marshal(mail.Message{To: "a@x.com", Template: mail.TemplateActivation})
	require.NoError(t, c.HandleDelivery(ctx, body))
	require.Len(t, got, 1)
	assert.Equal(t, "a@x.com", got[0].To)

	assert.Error(t, c.HandleDelivery(ctx, []byte("{not json")))
	assert.Error(t, c.HandleDelivery(ctx, []byte(`{"template":"activation"}`)))
	assert.Len(t, got, 1)
}

func TestPublisherConsumer_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	url := "amqp://guest:guest@" + endpoint + "/"

	pub := mail.NewPublisher(url, "mail.roundtrip")
	t.Cleanup(func() { pub.Close() })

	require.NoError(t, pub.Send(ctx, mail.Message{
		To:       "a@x.com",
		Name:     "Alice",
		Template: mail.TemplatePasswordReset,
		Data:     map[string]string{"link": "http://app/reset"},
	}))

	received := make(chan mail.Message, 1)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumer := mail.NewConsumer(url, "mail.roundtrip", func(ctx context.Context, msg mail.Message) error {
		received <- msg
		return nil
	})
	go consumer.Run(runCtx)

	select {
	case msg := <-received:
		assert.Equal(t, "a@x.com", msg.To)
		assert.Equal(t, mail.TemplatePasswordReset, msg.Template)
		assert.Equal(t, "http://app/reset", msg.Data["link"])
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
