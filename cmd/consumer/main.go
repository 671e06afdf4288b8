package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/container"
	"github.com/serroba/shortlink/internal/messaging"
	"go.uber.org/zap"
)

type config struct {
	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	LogFormat     string `env:"LOG_FORMAT"     envDefault:"console"`
	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"analytics"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}

	injector := do.New()
	do.ProvideValue(injector, &container.Options{
		RedisAddr:     cfg.RedisAddr,
		LogFormat:     cfg.LogFormat,
		ConsumerGroup: cfg.ConsumerGroup,
	})
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.EventBusPackage(injector)
	container.ConsumerGroupPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)

	if do.MustInvoke[*container.EventBus](injector).InProcess() {
		logger.Fatal("redis is required to consume events", zap.String("addr", cfg.RedisAddr))
	}

	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
