// File: internal/observability/logger_test.go
package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crispud/semgrep/internal/config"
)

// testSyncer is a minimal WriteSyncer capturing console output.
type testSyncer struct {
	data []byte
}

func (s *testSyncer) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

func (s *testSyncer) Sync() error { return nil }

func TestGetLogger_FallbackBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	// The fallback must not be the stored global.
	assert.Nil(t, globalLogger.Load())
}

func TestInitialize_RespectsLevelAndServiceName(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &testSyncer{}
	Initialize(config.LoggerConfig{Level: "error", Format: "json", ServiceName: "semgrep"}, sink)

	logger := GetLogger()
	logger.Warn("below threshold")
	logger.Error("surfaced")

	out := string(sink.data)
	assert.NotContains(t, out, "below threshold")
	assert.Contains(t, out, "surfaced")
	assert.Contains(t, out, `"semgrep"`)
}

func TestInitialize_InvalidLevelDefaultsToWarn(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &testSyncer{}
	Initialize(config.LoggerConfig{Level: "shouting", Format: "json", ServiceName: "semgrep"}, sink)

	GetLogger().Info("hidden")
	GetLogger().Warn("shown")

	out := string(sink.data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestInitialize_OnlyOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &testSyncer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "semgrep"}, first)
	second := &testSyncer{}
	Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "other"}, second)

	GetLogger().Info("routed")
	assert.Contains(t, string(first.data), "routed")
	assert.Empty(t, second.data)
}

func TestSync_NoLoggerIsSafe(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	Sync()
}

func TestObservedLoggerShape(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core).Named("semgrep")

	logger.Info("scan complete", zap.Int("findings", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "semgrep", entries[0].LoggerName)
	assert.Equal(t, int64(3), entries[0].ContextMap()["findings"])
}
