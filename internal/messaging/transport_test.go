package messaging_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInProcessPubSub(t *testing.T) {
	pubsub := messaging.NewInProcessPubSub(messaging.NewZapLogger(zap.NewNop()))
	received := make(chan *analytics.URLClickedEvent, 1)

	consumer := messaging.NewConsumer(
		pubsub,
		analytics.TopicURLClicked,
		func(_ context.Context, event *analytics.URLClickedEvent) error {
			received <- event

			return nil
		},
		zap.NewNop(),
	)
	require.NoError(t, consumer.Start(context.Background()))

	publish := messaging.NewPublishFunc[analytics.URLClickedEvent](pubsub, analytics.TopicURLClicked)
	require.NoError(t, publish(&analytics.URLClickedEvent{
		ID:        "c42",
		Code:      "abc1234",
		MappingID: 3,
		UserAgent: "curl/8.5.0",
	}))

	select {
	case event := <-received:
		assert.Equal(t, "c42", event.ID)
		assert.Equal(t, int64(3), event.MappingID)
		assert.Equal(t, "curl/8.5.0", event.UserAgent)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	require.NoError(t, consumer.Shutdown())
	require.NoError(t, pubsub.Close())
}
