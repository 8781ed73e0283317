package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

const (
	notificationRetention = 90 * 24 * time.Hour
	outboxRetention       = 30 * 24 * time.Hour
	outboxMinAttempts     = 5
)

// pruneFunc deletes rows older than cutoff inside tx and returns the count.
type pruneFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob deletes rows that aged past a fixed window, in one
// transaction per run.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	prune     pruneFunc
	retention time.Duration
	fields    map[string]any
	now       func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, prune pruneFunc, retention, fallback time.Duration) (*retentionJob, error) {
	switch {
	case logg == nil:
		return nil, errors.New("logger required")
	case db == nil:
		return nil, errors.New("db runner required")
	case prune == nil:
		return nil, fmt.Errorf("%s: repository required", name)
	}
	if retention <= 0 {
		retention = fallback
	}
	return &retentionJob{
		name:      name,
		logg:      logg,
		db:        db,
		prune:     prune,
		retention: retention,
		fields:    map[string]any{},
		now:       time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.prune(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}

	logCtx := j.logg.WithFields(ctx, j.fields)
	j.logg.Info(j.logg.WithFields(logCtx, map[string]any{
		"job":          j.name,
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention run complete")
	return nil
}

type notificationsCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	Retention  time.Duration
}

// NewNotificationCleanupJob deletes read notifications older than the
// retention window. Unread ones are kept.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	var prune pruneFunc
	if params.Repository != nil {
		prune = params.Repository.DeleteOlderThan
	}
	return newRetentionJob("notification-cleanup", params.Logger, params.DB, prune, params.Retention, notificationRetention)
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   time.Duration
	MinAttempts int
}

// NewOutboxRetentionJob prunes published outbox rows, and rows that used up
// MinAttempts, once they are older than the retention window. Dead-lettered
// copies in outbox_dlq are kept.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	var prune pruneFunc
	if params.Repository != nil {
		repo := params.Repository
		prune = func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
		}
	}
	job, err := newRetentionJob("outbox-retention", params.Logger, params.DB, prune, params.Retention, outboxRetention)
	if err != nil {
		return nil, err
	}
	job.fields["min_attempts"] = minAttempts
	return job, nil
}
