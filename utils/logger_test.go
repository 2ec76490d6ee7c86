package utils

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	loggerMu.Lock()
	prev := baseLogger
	baseLogger = zerolog.New(&buf)
	loggerMu.Unlock()
	t.Cleanup(func() {
		loggerMu.Lock()
		baseLogger = prev
		loggerMu.Unlock()
	})
	return &buf
}

func TestLoggerFollowsConfiguredLevel(t *testing.T) {
	buf := captureLogs(t)
	ConfigureLogger("warn")

	l := Logger("mail")
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())

	Logger("mail").Info().Msg("dropped")
	Logger("mail").Warn().Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"component":"mail"`)
	assert.Contains(t, buf.String(), "kept")
}

func TestConfigureLoggerUnknownLevel(t *testing.T) {
	captureLogs(t)
	ConfigureLogger("loud")
	assert.Equal(t, zerolog.InfoLevel, Logger("x").GetLevel())
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	buf := captureLogs(t)

	re := &core.RequestEvent{}
	re.Request = httptest.NewRequest("GET", "/api/guests", nil)
	re.Response = httptest.NewRecorder()

	RequestLogger(re, "guests").Error().Msg("no id yet")
	assert.NotContains(t, buf.String(), "request_id")

	re.Set(requestIDKey, "req-42")
	RequestLogger(re, "guests").Error().Msg("tagged")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[1]), `"request_id":"req-42"`)
}
