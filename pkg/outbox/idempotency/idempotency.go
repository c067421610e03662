// Package idempotency dedupes system signals such as deadline and workload
// alerts so a repeating cron tick raises each one at most once per window.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const processedPrefix = "evt:processed:"

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager records emitted signals under qf:idempotency:evt:processed:<scope>:<id>.
type Manager struct {
	store store
	ttl   time.Duration
}

func NewManager(s store, ttl time.Duration) (*Manager, error) {
	if s == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: s, ttl: ttl}, nil
}

// Once runs fn unless the (scope, id) pair was already recorded. A failing fn
// releases the record so the next tick retries. ran reports whether fn was
// invoked.
func (m *Manager) Once(ctx context.Context, scope string, id uuid.UUID, fn func(context.Context) error) (ran bool, err error) {
	key, err := m.key(scope, id)
	if err != nil {
		return false, err
	}
	fresh, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	if !fresh {
		return false, nil
	}
	if runErr := fn(ctx); runErr != nil {
		if delErr := m.store.Del(ctx, key); delErr != nil {
			runErr = multierr.Append(runErr, fmt.Errorf("release %s: %w", key, delErr))
		}
		return true, runErr
	}
	return true, nil
}

// DailyScope buckets a scope by UTC day so a signal fires at most once a day.
func DailyScope(name string, at time.Time) string {
	return name + ":" + at.UTC().Format("20060102")
}

func (m *Manager) key(scope string, id uuid.UUID) (string, error) {
	switch {
	case scope == "":
		return "", errors.New("scope is required")
	case id == uuid.Nil:
		return "", errors.New("id is required")
	}
	return m.store.IdempotencyKey(processedPrefix+scope, id.String()), nil
}
