package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/tradelink-backend/internal/bootstrap"
	"github.com/angelmondragon/tradelink-backend/internal/notifications"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/tradelink-backend/pkg/pubsub"
)

func main() {
	proc := bootstrap.Must("worker")
	defer proc.Close()
	ctx, stop := proc.Context()
	defer stop()
	logg := proc.Logger

	dbClient, err := proc.Database(ctx)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap database", err)
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap redis", err)
	}
	pubsubClient, err := proc.PubSub(ctx, pubsub.RoleSubscriber)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap pubsub", err)
	}

	guard, err := idempotency.NewGuard(redisClient, proc.Config.Eventing.ConsumerIdempotencyTTL)
	if err != nil {
		proc.Fatal(ctx, "failed to create idempotency guard", err)
	}
	sender, err := notifications.NewInboxSender(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		proc.Fatal(ctx, "failed to create notification sender", err)
	}

	var consumers []*notifications.Consumer
	for _, sub := range pubsubClient.NotificationSubscriptions() {
		consumer, err := notifications.NewConsumer(sender, sub, guard, logg)
		if err != nil {
			proc.Fatal(ctx, "failed to create notification consumer", err)
		}
		consumers = append(consumers, consumer)
	}

	svc, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: map[string]pinger{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
			"pubsub":   pubsubClient.Ping,
		},
		Consumers: consumers,
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create worker service", err)
	}

	logg.Info(ctx, "starting worker")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fatal(ctx, "worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}
