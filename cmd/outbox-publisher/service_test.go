package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradelink-backend/pkg/config"
	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/metrics"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			orderPlacedRow(t, 0),
			orderPlacedRow(t, 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	reg := &fakeRegistry{resolved: resolvedFor("tl-orders", enums.AggregateOrder, &payloads.OrderPlacedEvent{})}
	service := newTestService(t, repo, pub, reg, &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []uuid.UUID{repo.events[0].ID}, repo.failed)
	require.Equal(t, []uuid.UUID{repo.events[1].ID}, repo.published)
}

func TestServiceProcessBatchSetsMessageAttributes(t *testing.T) {
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventInvoicePaid,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, "paid-event"),
		CreatedAt:     time.Now().UTC(),
	}
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	reg := &fakeRegistry{resolved: resolvedFor("tl-invoices", enums.AggregateInvoice, &payloads.InvoicePaidEvent{})}
	service := newTestService(t, repo, pub, reg, &fakeDLQRepo{}, nil)

	var topics []string
	service.publisherFactory = func(topic string) publisher {
		topics = append(topics, topic)
		return pub
	}

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"tl-invoices"}, topics)
	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	require.Equal(t, "invoice_paid", msg.Attributes["event_type"])
	require.Equal(t, "invoice", msg.Attributes["aggregate_type"])
	require.Equal(t, row.AggregateID.String(), msg.Attributes["aggregate_id"])
	require.Equal(t, row.ID.String(), msg.Attributes["event_id"])
	require.JSONEq(t, string(row.Payload), string(msg.Data))
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	row := orderPlacedRow(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, reg, dlqRepo, nil)
	promReg := prometheus.NewRegistry()
	service.metrics = metrics.NewOutboxMetrics(promReg)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Len(t, dlqRepo.entries, 1)
	entry := dlqRepo.entries[0]
	require.Equal(t, row.ID, entry.EventID)
	require.JSONEq(t, string(row.Payload), string(entry.Payload))
	require.Equal(t, enums.DLQReasonInvalidEvent, entry.ErrorReason)
	require.Equal(t, []uuid.UUID{row.ID}, repo.terminal)
	count, err := testutil.GatherAndCount(promReg, "tradelink_outbox_dead_lettered_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestServiceProcessBatchWritesDLQWhenPublisherMissing(t *testing.T) {
	row := orderPlacedRow(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	reg := &fakeRegistry{resolved: resolvedFor("tl-orders", enums.AggregateOrder, &payloads.OrderPlacedEvent{})}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, reg, dlqRepo, nil)
	service.publisherFactory = func(string) publisher { return nil }

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlqRepo.entries, 1)
	require.Equal(t, enums.DLQReasonNoRoute, dlqRepo.entries[0].ErrorReason)
	require.Empty(t, repo.published)
}

func TestServiceProcessBatchWritesDLQWhenBrokerRejects(t *testing.T) {
	row := orderPlacedRow(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: registry.NewNonRetryableError(errors.New("message too large"))},
	}}
	reg := &fakeRegistry{resolved: resolvedFor("tl-orders", enums.AggregateOrder, &payloads.OrderPlacedEvent{})}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, reg, dlqRepo, nil)

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlqRepo.entries, 1)
	require.Equal(t, enums.DLQReasonRejected, dlqRepo.entries[0].ErrorReason)
	require.Equal(t, "message too large", *dlqRepo.entries[0].ErrorMessage)
	require.Equal(t, []uuid.UUID{row.ID}, repo.terminal)
	require.Empty(t, repo.failed)
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	row := orderPlacedRow(t, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
		},
	}
	reg := &fakeRegistry{resolved: resolvedFor("tl-orders", enums.AggregateOrder, &payloads.OrderPlacedEvent{})}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, reg, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Len(t, dlqRepo.entries, 1)
	require.Equal(t, row.ID, dlqRepo.entries[0].EventID)
	require.Equal(t, enums.DLQReasonMaxAttempts, dlqRepo.entries[0].ErrorReason)
	require.Empty(t, repo.failed)
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.False(t, processed)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Config: &config.Config{}, Logger: testLogger()})
	require.Error(t, err)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := newBackoff(time.Second, 4*time.Second)
	b.jitter = func(int64) int64 { return 0 }

	require.Equal(t, 2*time.Second, b.Next())
	require.Equal(t, 4*time.Second, b.Next())
	require.Equal(t, 4*time.Second, b.Next())
	require.Equal(t, time.Second, b.Idle())
	b.Reset()
	require.Equal(t, 2*time.Second, b.Next())
}

func TestBackoffJitterStaysInWindow(t *testing.T) {
	b := newBackoff(time.Second, maxBackoff)
	for i := 0; i < 20; i++ {
		d := b.Idle()
		require.GreaterOrEqual(t, d, time.Second)
		require.Less(t, d, time.Second+jitterWindow)
	}
}

func TestServiceUsesConfiguredPublishTimeout(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, &config.OutboxConfig{
		PublishTimeout: 3 * time.Second,
	})
	require.Equal(t, 3*time.Second, service.publishTimeout)
	require.Equal(t, defaultBatchSize, service.batchSize)
	require.Equal(t, defaultPollInterval, service.pollInterval)
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           testLogger(),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(_ string) publisher { return pub },
		DLQRepository:    dlq,
		Metrics:          metrics.NewOutboxMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return service
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
}

func orderPlacedRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, id.String()),
		AttemptCount:  attempts,
	}
}

func resolvedFor(topic string, aggregate enums.OutboxAggregateType, payload any) *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         topic,
			AggregateType: aggregate,
		},
		Envelope: outbox.PayloadEnvelope{OccurredAt: time.Now()},
		Payload:  payload,
	}
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(tb, err)
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
