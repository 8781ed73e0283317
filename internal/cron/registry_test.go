package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrder(t *testing.T) {
	r, err := NewRegistry(namedJob("outbox-retention"), namedJob("notification-cleanup"))
	require.NoError(t, err)

	jobs := r.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, "outbox-retention", jobs[0].Name())
	require.Equal(t, "notification-cleanup", jobs[1].Name())

	jobs[0] = nil
	require.NotNil(t, r.Jobs()[0])
}

func TestRegistryRejectsBadJobs(t *testing.T) {
	_, err := NewRegistry(namedJob("a"), namedJob("a"))
	require.ErrorContains(t, err, "already registered")

	r, err := NewRegistry()
	require.NoError(t, err)
	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(namedJob("")))
	require.Empty(t, r.Jobs())
}
