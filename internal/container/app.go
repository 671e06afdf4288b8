package container

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	analyticsstore "github.com/serroba/shortlink/internal/analytics/store"
	"github.com/serroba/shortlink/internal/cache"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

// RateLimitPackage provides the token bucket limiter.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.Limiter, error) {
		options := do.MustInvoke[*Options](i)

		policy := options.Policy()
		if err := policy.Validate(); err != nil {
			return nil, err
		}

		buckets := store.NewRateLimitMemoryStore(policy.IdleTTL())

		return ratelimit.NewLimiter(buckets, policy), nil
	})
}

// EventBus hands out the event transport: Redis streams when Redis is
// reachable at startup, otherwise an in-process channel shared by
// publishers and subscribers.
type EventBus struct {
	client *redis.Client
	local  *gochannel.GoChannel
	group  string
	logger watermill.LoggerAdapter
}

// InProcess reports whether events stay inside this process.
func (b *EventBus) InProcess() bool {
	return b.local != nil
}

// Publisher creates a publisher on the bus.
func (b *EventBus) Publisher() (message.Publisher, error) {
	if b.local != nil {
		return b.local, nil
	}

	return messaging.NewRedisStreamPublisher(b.client, b.logger)
}

// Subscriber creates a subscriber on the bus.
func (b *EventBus) Subscriber() (message.Subscriber, error) {
	if b.local != nil {
		return b.local, nil
	}

	return messaging.NewRedisStreamSubscriber(b.client, b.group, b.logger)
}

// EventBusPackage provides the event transport.
func EventBusPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*EventBus, error) {
		options := do.MustInvoke[*Options](i)
		conn := do.MustInvoke[*RedisConnection](i)
		logger := do.MustInvoke[*zap.Logger](i)

		bus := &EventBus{
			group:  options.ConsumerGroup,
			logger: messaging.NewZapLogger(logger),
		}

		if conn.Reachable() == nil {
			bus.client = conn.Client
		} else {
			logger.Warn("redis is not available, analytics events stay in process")

			bus.local = messaging.NewInProcessPubSub(bus.logger)
		}

		return bus, nil
	})
}

// PublisherGroupPackage provides the publisher shared by the typed publish
// functions.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		bus := do.MustInvoke[*EventBus](i)

		publisher, err := bus.Publisher()
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the analytics consumers of both topics.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		bus := do.MustInvoke[*EventBus](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := bus.Subscriber()
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		sink := analyticsstore.NewNoop(logger)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(
			messaging.NewConsumer[analytics.URLCreatedEvent](subscriber, analytics.TopicURLCreated, sink.SaveURLCreated, logger),
			messaging.NewConsumer[analytics.URLClickedEvent](subscriber, analytics.TopicURLClicked, sink.SaveURLClicked, logger),
		)

		return group, nil
	})
}

// ShortenerPackage provides the shortener service.
func ShortenerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		repo := do.MustInvoke[shortener.Repository](i)
		tiers := do.MustInvoke[*cache.Cache](i)
		limiter := do.MustInvoke[*ratelimit.Limiter](i)
		publishers := do.MustInvoke[*messaging.PublisherGroup](i)

		source, err := shortener.NewCodeSource(options.CodeLength)
		if err != nil {
			return nil, err
		}

		generator := shortener.NewGenerator(repo, source, shortener.DefaultMaxAttempts, logger)

		events := shortener.Events{
			Created: messaging.NewPublishFunc[analytics.URLCreatedEvent](
				publishers.Publisher(), analytics.TopicURLCreated),
			Clicked: messaging.NewPublishFunc[analytics.URLClickedEvent](
				publishers.Publisher(), analytics.TopicURLClicked),
		}

		return shortener.NewService(repo, generator, tiers, limiter, events, shortener.ServiceConfig{
			BaseURL:  options.PublicBaseURL(),
			CacheTTL: options.CacheTTL(),
		}, logger), nil
	})
}
