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
	delErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]time.Duration{}}
}

func (s *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = ttl
	return true, nil
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	if s.delErr != nil {
		return s.delErr
	}
	for _, k := range keys {
		delete(s.keys, k)
	}
	return nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "qf:idempotency:" + scope + ":" + id
}

func TestOnceRunsFirstCallOnly(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	id := uuid.New()
	calls := 0
	fn := func(context.Context) error { calls++; return nil }

	ran, err := manager.Once(context.Background(), "deadline:20260310", id, fn)
	require.NoError(t, err)
	require.True(t, ran)
	ran, err = manager.Once(context.Background(), "deadline:20260310", id, fn)
	require.NoError(t, err)
	require.False(t, ran)
	require.Equal(t, 1, calls)

	key := "qf:idempotency:evt:processed:deadline:20260310:" + id.String()
	require.Equal(t, 24*time.Hour, store.keys[key])
}

func TestOnceReleasesOnFailure(t *testing.T) {
	store := newMemoryStore()
	manager, _ := NewManager(store, time.Hour)
	id := uuid.New()

	ran, err := manager.Once(context.Background(), "workload", id, func(context.Context) error {
		return errors.New("outbox unavailable")
	})
	require.True(t, ran)
	require.EqualError(t, err, "outbox unavailable")
	require.Empty(t, store.keys)

	ran, err = manager.Once(context.Background(), "workload", id, func(context.Context) error { return nil })
	require.NoError(t, err)
	require.True(t, ran)
}

func TestOnceReportsReleaseFailure(t *testing.T) {
	store := newMemoryStore()
	store.delErr = errors.New("redis down")
	manager, _ := NewManager(store, time.Hour)

	_, err := manager.Once(context.Background(), "workload", uuid.New(), func(context.Context) error {
		return errors.New("boom")
	})
	require.ErrorContains(t, err, "boom")
	require.ErrorContains(t, err, "redis down")
}

func TestOnceSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.setErr = errors.New("timeout")
	manager, _ := NewManager(store, time.Hour)

	ran, err := manager.Once(context.Background(), "workload", uuid.New(), func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.False(t, ran)
	require.ErrorContains(t, err, "timeout")
}

func TestOnceValidatesKeyParts(t *testing.T) {
	manager, _ := NewManager(newMemoryStore(), time.Hour)
	noop := func(context.Context) error { return nil }

	_, err := manager.Once(context.Background(), "", uuid.New(), noop)
	require.Error(t, err)
	_, err = manager.Once(context.Background(), "deadline", uuid.Nil, noop)
	require.Error(t, err)
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)
	_, err = NewManager(newMemoryStore(), -time.Second)
	require.Error(t, err)
}

func TestDailyScopeBucketsByUTCDay(t *testing.T) {
	at := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("minus", -2*3600))
	require.Equal(t, "deadline:20260305", DailyScope("deadline", at))
}
