// pattern: Imperative Shell

package logging

import (
	"log/slog"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NopLogger returns a logger that discards everything. Constructors take
// it when a caller passes no provider, so components never nil-check
// before logging.
func NopLogger() *ScopedLogger {
	return &ScopedLogger{slog: nil, zap: nil, scope: ""}
}

// nopProvider satisfies LoggerProvider with discard loggers.
type nopProvider struct{}

func (nopProvider) For(string) *ScopedLogger { return NopLogger() }
func (nopProvider) Cleanup(string)           {}

// NopProvider returns a LoggerProvider whose loggers discard everything.
func NopProvider() LoggerProvider {
	return nopProvider{}
}

// TestLogManager is the test stand-in for Manager: same For/Cleanup
// surface, but entries go only to an in-memory channel, never to a file.
// Tests read the channel to assert on what a component logged.
type TestLogManager struct {
	sink    *ChannelSink
	base    *zap.Logger
	mu      sync.Mutex
	loggers map[string]*ScopedLogger
}

// NewTestLogManager creates a channel-only log manager. bufferSize bounds
// how many unread entries the channel holds before old ones are dropped.
func NewTestLogManager(bufferSize int) *TestLogManager {
	sink := NewChannelSink(bufferSize)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.EpochTimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(sink),
		zapcore.DebugLevel,
	)

	return &TestLogManager{
		sink:    sink,
		base:    zap.New(core),
		loggers: make(map[string]*ScopedLogger),
	}
}

// For returns the scoped logger for scope, creating and caching it on
// first use. Matches the production Manager API.
func (m *TestLogManager) For(scope string) *ScopedLogger {
	m.mu.Lock()
	defer m.mu.Unlock()

	if logger, ok := m.loggers[scope]; ok {
		return logger
	}

	named := m.base.Named(scope)
	logger := &ScopedLogger{
		slog:  slog.New(&zapSlogHandler{zap: named, level: zapcore.DebugLevel}),
		zap:   named,
		scope: scope,
	}
	m.loggers[scope] = logger
	return logger
}

// Cleanup evicts cached loggers whose scope starts with scopePrefix, the
// same contract as Manager.Cleanup.
func (m *TestLogManager) Cleanup(scopePrefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for scope := range m.loggers {
		if strings.HasPrefix(scope, scopePrefix) {
			delete(m.loggers, scope)
		}
	}
}

// Channel returns the channel carrying every logged entry.
func (m *TestLogManager) Channel() <-chan LogEntry {
	return m.sink.Entries()
}

// Close shuts the entries channel.
func (m *TestLogManager) Close() error {
	return m.sink.Close()
}
