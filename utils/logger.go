package utils

import (
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"
)

const (
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "requestId"
)

var (
	baseLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	loggerMu   sync.RWMutex
)

// ConfigureLogger sets the minimum level for every component logger.
// Unknown or empty levels fall back to info.
func ConfigureLogger(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	loggerMu.Lock()
	baseLogger = baseLogger.Level(lvl)
	loggerMu.Unlock()
}

// Logger returns a logger tagged with the component name. Build it where
// it is used so ConfigureLogger's level applies.
func Logger(component string) *zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	l := baseLogger.With().Str("component", component).Logger()
	return &l
}

// RequestIDMiddleware tags each request with an id, reusing the inbound
// header when the proxy already set one.
func RequestIDMiddleware(e *core.RequestEvent) error {
	id := e.Request.Header.Get(RequestIDHeader)
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	e.Set(requestIDKey, id)
	e.Response.Header().Set(RequestIDHeader, id)
	return e.Next()
}

// RequestLogger returns a component logger carrying the request id.
func RequestLogger(e *core.RequestEvent, component string) *zerolog.Logger {
	l := Logger(component)
	if id, ok := e.Get(requestIDKey).(string); ok && id != "" {
		tagged := l.With().Str("request_id", id).Logger()
		return &tagged
	}
	return l
}
