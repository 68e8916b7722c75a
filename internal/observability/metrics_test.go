// File: internal/observability/metrics_test.go
package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crispud/semgrep/internal/config"
)

func TestRecorder_DisabledIsNoOp(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	r := NewRecorder(config.MetricsConfig{Enabled: false, Endpoint: srv.URL}, "anon", "0.1.0-test", zap.NewNop())
	r.Record(Event{Subcommand: "scan", ExitCode: 0})
	r.Flush(context.Background())

	assert.False(t, hit)
}

func TestRecorder_FlushPostsEvents(t *testing.T) {
	var gotBody []byte
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	r := NewRecorder(config.MetricsConfig{Enabled: true, Endpoint: srv.URL}, "anon-id", "0.1.0-test", zap.NewNop())
	r.Record(Event{Subcommand: "scan", DurationMs: 42, ExitCode: 1})
	r.Record(Event{Subcommand: "login", ExitCode: 0})
	r.Flush(context.Background())

	assert.Equal(t, "semgrep/0.1.0-test", gotAgent)

	var p payload
	require.NoError(t, json.Unmarshal(gotBody, &p))
	assert.Equal(t, "anon-id", p.AnonymousUserID)
	require.Len(t, p.Events, 2)
	assert.Equal(t, "scan", p.Events[0].Subcommand)
	assert.NotEmpty(t, p.Events[0].ID)
	assert.False(t, p.Events[0].RecordedAt.IsZero())
	assert.Equal(t, 1, p.Events[0].ExitCode)
}

func TestRecorder_FlushDrainsEvents(t *testing.T) {
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
	}))
	defer srv.Close()

	r := NewRecorder(config.MetricsConfig{Enabled: true, Endpoint: srv.URL}, "anon", "v", zap.NewNop())
	r.Record(Event{Subcommand: "scan"})
	r.Flush(context.Background())
	// No new events, so the second flush must not post again.
	r.Flush(context.Background())

	assert.Equal(t, 1, posts)
}

func TestRecorder_FlushFailureIsSwallowed(t *testing.T) {
	r := NewRecorder(config.MetricsConfig{Enabled: true, Endpoint: "http://127.0.0.1:1"}, "anon", "v", zap.NewNop())
	r.Record(Event{Subcommand: "scan"})
	// Unreachable endpoint must not panic or error out.
	r.Flush(context.Background())
}
