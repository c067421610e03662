package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestContextFieldsFollowTheRequest(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithActor(ctx, "user-1", "SALES")
	child := log.WithInquiryID(ctx, "inq-1")

	log.Error(child, "boom", errors.New("db down"))
	log.Info(ctx, "done")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 2)

	failed := entries[0]
	require.Equal(t, "api", failed["service"])
	require.NotEmpty(t, failed["instance"])
	require.Equal(t, "req-123", failed["request_id"])
	require.Equal(t, "user-1", failed["user_id"])
	require.Equal(t, "SALES", failed["actor_role"])
	require.Equal(t, "inq-1", failed["inquiry_id"])
	require.Equal(t, "db down", failed["error"])
	require.Contains(t, failed, "stack")

	require.NotContains(t, entries[1], "inquiry_id", "child fields must not leak to the parent context")
	require.NotContains(t, entries[1], "stack")
}

func TestWithFieldsIgnoresEmptyMaps(t *testing.T) {
	log := New(Options{ServiceName: "test", Output: &bytes.Buffer{}})
	ctx := context.Background()
	require.Equal(t, ctx, log.WithFields(ctx, nil))
}

func TestCriticalTagsSeverity(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Critical(context.Background(), "automation halted", nil)

	entry := decodeEntries(t, buf)[0]
	require.Equal(t, "critical", entry["severity"])
	require.Equal(t, "error", entry["level"])
}

func TestWarnStackToggle(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		buf := &bytes.Buffer{}
		New(Options{ServiceName: "test", Output: buf, WarnStack: enabled}).Warn(context.Background(), "slow")
		_, hasStack := decodeEntries(t, buf)[0]["stack"]
		require.Equal(t, enabled, hasStack)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: buf})
	log.Debug(context.Background(), "hidden")
	require.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}
