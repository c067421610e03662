package redis

import "strings"

// Keyspace prefixes every key this service writes so several environments can
// share one redis database.
type Keyspace string

// DefaultKeyspace is the prefix used by New.
const DefaultKeyspace Keyspace = "qf"

// IdempotencyKey is used both for HTTP replay records and signal dedupe.
func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join("idempotency", scope, id)
}

func (k Keyspace) CounterKey(name string) string {
	return k.join("counter", name)
}

func (k Keyspace) LockKey(parts ...string) string {
	return k.join(append([]string{"lock"}, parts...)...)
}

func (k Keyspace) join(parts ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
