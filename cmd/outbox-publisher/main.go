package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tradelink-backend/internal/bootstrap"
	"github.com/angelmondragon/tradelink-backend/pkg/db"
	"github.com/angelmondragon/tradelink-backend/pkg/metrics"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/registry"
	"github.com/angelmondragon/tradelink-backend/pkg/pubsub"
)

func main() {
	dlqList := flag.Int("dlq-list", 0, "print the newest N dead-lettered events and exit")
	dlqRequeue := flag.String("dlq-requeue", "", "requeue the dead-lettered event with this id and exit")
	flag.Parse()

	proc := bootstrap.Must("outbox-publisher")
	defer proc.Close()
	ctx, stop := proc.Context()
	defer stop()

	dbClient, err := proc.Database(ctx)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap database", err)
	}
	repo := outbox.NewRepository(dbClient.DB())
	dlqRepo := outbox.NewDLQRepository(dbClient.DB())

	if *dlqList > 0 || *dlqRequeue != "" {
		if err := runDLQCommand(ctx, dbClient, repo, dlqRepo, *dlqList, *dlqRequeue); err != nil {
			proc.Fatal(ctx, "dlq command failed", err)
		}
		return
	}

	pubsubClient, err := proc.PubSub(ctx, pubsub.RolePublisher)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap pubsub", err)
	}
	eventRegistry, err := registry.NewEventRegistry(proc.Config.PubSub)
	if err != nil {
		proc.Fatal(ctx, "failed to build event registry", err)
	}

	service, err := NewService(ServiceParams{
		Config:        proc.Config,
		Logger:        proc.Logger,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    repo,
		Registry:      eventRegistry,
		DLQRepository: dlqRepo,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create outbox publisher", err)
	}

	ctx = proc.Logger.WithField(ctx, "topics", eventRegistry.Topics())
	proc.Logger.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fatal(ctx, "outbox publisher stopped unexpectedly", err)
	}
	proc.Logger.Info(ctx, "outbox publisher shutting down gracefully")
}

func runDLQCommand(ctx context.Context, dbClient *db.Client, repo *outbox.Repository, dlqRepo *outbox.DLQRepository, list int, requeue string) error {
	if requeue == "" {
		return printDLQ(ctx, os.Stdout, dlqRepo, list)
	}
	id, err := uuid.Parse(requeue)
	if err != nil {
		return err
	}
	return requeueDLQ(ctx, dbClient, dlqRepo, repo, id)
}
