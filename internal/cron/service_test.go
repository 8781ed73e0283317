package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/metrics"
)

type stubLock struct {
	held     bool
	holder   string
	acquired int
	released int
}

func (l *stubLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.acquired++
	return true, nil
}

func (l *stubLock) Release(context.Context) error {
	l.released++
	return nil
}

func (l *stubLock) Holder(context.Context) (string, error) { return l.holder, nil }

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
	runs int
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run(ctx context.Context) error {
	j.runs++
	if j.fn == nil {
		return nil
	}
	return j.fn(ctx)
}

func newTestService(t *testing.T, lock Lock, m *metrics.CronJobMetrics, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry:   registry,
		Lock:       lock,
		Metrics:    m,
		JobTimeout: time.Second,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceContinuesPastFailingJobs(t *testing.T) {
	reg := prometheus.NewRegistry()
	lock := &stubLock{}
	failing := &funcJob{name: "outbox-retention", fn: func(context.Context) error { return errors.New("db down") }}
	panicking := &funcJob{name: "exploder", fn: func(context.Context) error { panic("nil map") }}
	fine := &funcJob{name: "notification-cleanup"}
	svc := newTestService(t, lock, metrics.NewCronJobMetrics(reg), failing, panicking, fine)

	ran, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, panicking.runs)
	require.Equal(t, 1, fine.runs)
	require.Equal(t, 1, lock.released)

	count, err := testutil.GatherAndCount(reg, "tradelink_cron_job_runs_total")
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	reg := prometheus.NewRegistry()
	lock := &stubLock{held: true, holder: "cron-b/abc"}
	job := &funcJob{name: "outbox-retention"}
	svc := newTestService(t, lock, metrics.NewCronJobMetrics(reg), job)

	ran, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.False(t, ran)
	require.Zero(t, job.runs)
	require.Zero(t, lock.released)

	count, err := testutil.GatherAndCount(reg, "tradelink_cron_cycles_skipped_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRunJobAppliesTimeout(t *testing.T) {
	var deadline time.Time
	job := &funcJob{name: "slow", fn: func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	}}
	svc := newTestService(t, &stubLock{}, nil, job)

	before := time.Now()
	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.False(t, deadline.IsZero())
	require.WithinDuration(t, before.Add(time.Second), deadline, time.Second)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	registry, err := NewRegistry()
	require.NoError(t, err)

	_, err = NewService(ServiceParams{Registry: registry, Lock: &stubLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logg, Registry: registry})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logg, Lock: &stubLock{}})
	require.Error(t, err)

	svc, err := NewService(ServiceParams{Logger: logg, Registry: registry, Lock: &stubLock{}})
	require.NoError(t, err)
	require.Equal(t, defaultInterval, svc.interval)
	require.Equal(t, defaultJobTimeout, svc.jobTimeout)
}
