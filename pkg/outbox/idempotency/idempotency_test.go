package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	keys   map[string]time.Duration
	setErr error
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if _, ok := m.keys[key]; ok {
		return "1", nil
	}
	return "", nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if m.keys == nil {
		m.keys = map[string]time.Duration{}
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "tl:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func TestClaimOnce(t *testing.T) {
	store := &memoryStore{}
	guard, err := NewGuard(store, 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	first, err := guard.Claim(ctx, "trade-notifications", eventID)
	require.NoError(t, err)
	require.True(t, first)
	require.Equal(t, 24*time.Hour, store.keys["tl:idempotency:evt:processed:trade-notifications:"+eventID.String()])

	again, err := guard.Claim(ctx, "trade-notifications", eventID)
	require.NoError(t, err)
	require.False(t, again)

	// claims are per consumer
	other, err := guard.Claim(ctx, "audit", eventID)
	require.NoError(t, err)
	require.True(t, other)
}

func TestReleaseAllowsReclaim(t *testing.T) {
	guard, err := NewGuard(&memoryStore{}, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = guard.Claim(ctx, "trade-notifications", eventID)
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "trade-notifications", eventID))

	first, err := guard.Claim(ctx, "trade-notifications", eventID)
	require.NoError(t, err)
	require.True(t, first)
}

func TestClaimErrors(t *testing.T) {
	guard, err := NewGuard(&memoryStore{setErr: errors.New("connection refused")}, time.Hour)
	require.NoError(t, err)

	_, err = guard.Claim(context.Background(), "trade-notifications", uuid.New())
	require.Error(t, err)
	_, err = guard.Claim(context.Background(), "", uuid.New())
	require.Error(t, err)
	require.Error(t, guard.Release(context.Background(), "trade-notifications", uuid.Nil))
}

func TestNewGuardValidation(t *testing.T) {
	_, err := NewGuard(nil, time.Hour)
	require.Error(t, err)
	_, err = NewGuard(&memoryStore{}, -time.Second)
	require.Error(t, err)
}
