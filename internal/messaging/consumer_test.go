package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubSubscriber hands out one channel the test writes messages into.
type stubSubscriber struct {
	feed         chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newStubSubscriber() *stubSubscriber {
	return &stubSubscriber{feed: make(chan *message.Message, 10)}
}

func (s *stubSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}

	return s.feed, nil
}

func (s *stubSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.feed)
	}

	return nil
}

func clickMessage(t *testing.T, event analytics.URLClickedEvent) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), payload)
}

func ignoreClicks(_ context.Context, _ *analytics.URLClickedEvent) error { return nil }

func TestConsumer_Start(t *testing.T) {
	t.Run("subscribes to its topic", func(t *testing.T) {
		consumer := messaging.NewConsumer(newStubSubscriber(), analytics.TopicURLClicked, ignoreClicks, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		assert.Equal(t, analytics.TopicURLClicked, consumer.Topic())

		require.NoError(t, consumer.Shutdown())
	})

	t.Run("returns subscribe error", func(t *testing.T) {
		sub := &stubSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(sub, analytics.TopicURLClicked, ignoreClicks, zap.NewNop())

		assert.Error(t, consumer.Start(context.Background()))
	})
}

func TestConsumer_HandleMessage(t *testing.T) {
	clickedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("decodes the click and acks", func(t *testing.T) {
		sub := newStubSubscriber()
		received := make(chan *analytics.URLClickedEvent, 1)

		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLClicked,
			func(_ context.Context, event *analytics.URLClickedEvent) error {
				received <- event

				return nil
			},
			zap.NewNop(),
		)
		require.NoError(t, consumer.Start(context.Background()))

		msg := clickMessage(t, analytics.URLClickedEvent{
			ID:        "c1",
			Code:      "abc1234",
			MappingID: 7,
			ClickedAt: clickedAt,
			ClientIP:  "203.0.113.9",
			Referrer:  "https://news.example",
		})
		sub.feed <- msg

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			t.Fatal("message was nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for ack")
		}

		event := <-received
		assert.Equal(t, "abc1234", event.Code)
		assert.Equal(t, int64(7), event.MappingID)
		assert.True(t, clickedAt.Equal(event.ClickedAt))
		assert.Equal(t, "203.0.113.9", event.ClientIP)
		assert.Empty(t, event.UserAgent)

		require.NoError(t, consumer.Shutdown())
	})

	t.Run("drops an undecodable payload with an ack", func(t *testing.T) {
		sub := newStubSubscriber()
		calls := 0

		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLClicked,
			func(_ context.Context, _ *analytics.URLClickedEvent) error {
				calls++

				return nil
			},
			zap.NewNop(),
		)
		require.NoError(t, consumer.Start(context.Background()))

		msg := message.NewMessage(uuid.NewString(), []byte(`{"mappingId":"not a number"}`))
		sub.feed <- msg

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			t.Fatal("undecodable message should not be redelivered")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for ack")
		}

		require.NoError(t, consumer.Shutdown())
		assert.Zero(t, calls)
	})

	t.Run("nacks when the sink fails", func(t *testing.T) {
		sub := newStubSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLClicked,
			func(_ context.Context, _ *analytics.URLClickedEvent) error {
				return errors.New("sink unavailable")
			},
			zap.NewNop(),
		)
		require.NoError(t, consumer.Start(context.Background()))

		msg := clickMessage(t, analytics.URLClickedEvent{ID: "c2", Code: "abc1234", ClickedAt: clickedAt})
		sub.feed <- msg

		select {
		case <-msg.Nacked():
		case <-msg.Acked():
			t.Fatal("message should have been nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for nack")
		}

		require.NoError(t, consumer.Shutdown())
	})
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("without start is a no-op", func(t *testing.T) {
		consumer := messaging.NewConsumer(newStubSubscriber(), analytics.TopicURLClicked, ignoreClicks, zap.NewNop())

		require.NoError(t, consumer.Shutdown())
	})

	t.Run("returns once the feed closes", func(t *testing.T) {
		sub := newStubSubscriber()
		consumer := messaging.NewConsumer(sub, analytics.TopicURLClicked, ignoreClicks, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		require.NoError(t, sub.Close())
		require.NoError(t, consumer.Shutdown())
	})
}
