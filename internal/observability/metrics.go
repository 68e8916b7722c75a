// File: internal/observability/metrics.go
package observability

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crispud/semgrep/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is one recorded CLI invocation. Events carry no file paths, rule
// contents, or findings; only which subcommand ran and how it exited.
type Event struct {
	ID         string    `json:"id"`
	Subcommand string    `json:"subcommand"`
	DurationMs int64     `json:"duration_ms"`
	ExitCode   int       `json:"exit_code"`
	RecordedAt time.Time `json:"recorded_at"`
}

// payload is the wire format for a telemetry flush.
type payload struct {
	AnonymousUserID string  `json:"anonymous_user_id"`
	Version         string  `json:"version"`
	Events          []Event `json:"events"`
}

// Recorder accumulates telemetry events during a run and posts them in one
// best-effort flush at exit. A disabled recorder is a cheap no-op, so
// callers never need to branch on the opt-out.
type Recorder struct {
	enabled  bool
	endpoint string
	userID   string
	version  string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger

	mu     sync.Mutex
	events []Event
}

// NewRecorder builds a Recorder from configuration. userID is the
// persisted anonymous id from the settings file.
func NewRecorder(cfg config.MetricsConfig, userID, version string, logger *zap.Logger) *Recorder {
	return &Recorder{
		enabled:  cfg.Enabled,
		endpoint: cfg.Endpoint,
		userID:   userID,
		version:  version,
		client:   &http.Client{Timeout: 10 * time.Second},
		// One flush per invocation is the norm; the limiter only guards
		// against pathological callers hammering Flush in a loop.
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		logger:  logger.Named("metrics"),
	}
}

// Record stores an event for the next flush.
func (r *Recorder) Record(e Event) {
	if !r.enabled {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Flush posts all recorded events. Telemetry must never change the
// process outcome, so failures are logged at debug level and swallowed.
func (r *Recorder) Flush(ctx context.Context) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	events := r.events
	r.events = nil
	r.mu.Unlock()
	if len(events) == 0 {
		return
	}

	if !r.limiter.Allow() {
		r.logger.Debug("Telemetry flush rate-limited, dropping events", zap.Int("count", len(events)))
		return
	}

	body, err := json.Marshal(payload{
		AnonymousUserID: r.userID,
		Version:         r.version,
		Events:          events,
	})
	if err != nil {
		r.logger.Debug("Failed to encode telemetry payload", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		r.logger.Debug("Failed to build telemetry request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "semgrep/"+r.version)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("Telemetry post failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		r.logger.Debug("Telemetry endpoint rejected payload", zap.Int("status", resp.StatusCode))
	}
}
