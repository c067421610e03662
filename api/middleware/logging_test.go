package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

func serveLogged(t *testing.T, level zerolog.Level, path string, h http.HandlerFunc) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: level, Output: &buf})

	Logging(logg)(h).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))

	var entries []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggingWritesOneCompletionEntry(t *testing.T) {
	entries := serveLogged(t, zerolog.InfoLevel, "/api/v1/inquiries", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})

	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, "request.complete", entry["message"])
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "POST", entry["method"])
	require.Equal(t, "/api/v1/inquiries", entry["path"])
	require.EqualValues(t, http.StatusCreated, entry["status"])
	require.EqualValues(t, 5, entry["bytes"])
}

func TestLoggingWarnsOnClientErrors(t *testing.T) {
	entries := serveLogged(t, zerolog.InfoLevel, "/api/v1/quotes/x/send", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	require.Len(t, entries, 1)
	require.Equal(t, "warn", entries[0]["level"])
	require.EqualValues(t, http.StatusUnprocessableEntity, entries[0]["status"])
}

func TestLoggingDemotesProbes(t *testing.T) {
	probe := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

	require.Empty(t, serveLogged(t, zerolog.InfoLevel, "/health/ready", probe))

	entries := serveLogged(t, zerolog.DebugLevel, "/metrics", probe)
	require.Len(t, entries, 1)
	require.Equal(t, "debug", entries[0]["level"])
}

func TestLoggingDefaultsStatusWhenHandlerWritesNothing(t *testing.T) {
	entries := serveLogged(t, zerolog.InfoLevel, "/", func(http.ResponseWriter, *http.Request) {})

	require.Len(t, entries, 1)
	require.EqualValues(t, http.StatusOK, entries[0]["status"])
	require.EqualValues(t, 0, entries[0]["bytes"])
}
