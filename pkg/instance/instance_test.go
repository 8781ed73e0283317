package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIDPrefersWorkerID(t *testing.T) {
	t.Setenv("WORKER_ID", "cron-7")
	t.Setenv("DYNO", "web.1")
	require.Equal(t, "cron-7", GetID())
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("DYNO", "worker.2")
	require.Equal(t, "worker.2", GetID())
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("DYNO", "")
	require.NotEmpty(t, GetID())
}
