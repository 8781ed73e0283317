package cron

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradelink-backend/internal/notifications"
	"github.com/angelmondragon/tradelink-backend/pkg/db"
	"github.com/angelmondragon/tradelink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
)

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type passThroughTx struct{}

func (passThroughTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type recordingOutboxRepo struct {
	cutoff      time.Time
	minAttempts int
	err         error
}

func (r *recordingOutboxRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	r.cutoff, r.minAttempts = cutoff, minAttempts
	return 3, r.err
}

func TestOutboxRetentionDefaults(t *testing.T) {
	repo := &recordingOutboxRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: discardLogger(), DB: passThroughTx{}, Repository: repo})
	require.NoError(t, err)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	job.(*retentionJob).now = func() time.Time { return now }

	require.Equal(t, "outbox-retention", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, now.Add(-outboxRetention), repo.cutoff)
	require.Equal(t, outboxMinAttempts, repo.minAttempts)
}

func TestRetentionJobWrapsErrors(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     discardLogger(),
		DB:         passThroughTx{},
		Repository: &recordingOutboxRepo{err: errors.New("statement timeout")},
	})
	require.NoError(t, err)
	err = job.Run(context.Background())
	require.ErrorContains(t, err, "outbox-retention: statement timeout")
}

func TestRetentionJobsRequireCollaborators(t *testing.T) {
	_, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: discardLogger(), DB: passThroughTx{}})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{DB: passThroughTx{}, Repository: &recordingOutboxRepo{}})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: discardLogger(), Repository: &recordingOutboxRepo{}})
	require.Error(t, err)
}

func TestNotificationCleanupDeletesOnlyExpiredRows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Now().UTC()
	user := uuid.New()
	old := now.Add(-100 * 24 * time.Hour)
	rows := []struct {
		createdAt time.Time
		readAt    *time.Time
	}{
		{old, &now}, // expired and read: deleted
		{old, nil},  // expired but unread: kept
		{now, &now}, // recent: kept
	}
	for _, row := range rows {
		require.NoError(t, conn.Create(&models.Notification{
			ID:        uuid.New(),
			UserID:    user,
			EventID:   uuid.New(),
			Type:      enums.NotificationTypeOrderAlert,
			Title:     "Order placed",
			Message:   "New order",
			ReadAt:    row.readAt,
			CreatedAt: row.createdAt,
		}).Error)
	}

	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     discardLogger(),
		DB:         db.FromConn(conn),
		Repository: notifications.NewRepository(conn),
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var left int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&left).Error)
	require.Equal(t, int64(2), left)
}

func TestOutboxRetentionAgainstDatabase(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)

	published, pending := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{published, pending} {
		require.NoError(t, repo.Insert(conn, models.OutboxEvent{
			ID:            id,
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     old,
		}))
	}
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", published).Update("published_at", old).Error)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     discardLogger(),
		DB:         db.FromConn(conn),
		Repository: repo,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var ids []uuid.UUID
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Pluck("id", &ids).Error)
	require.Equal(t, []uuid.UUID{pending}, ids)
}
