// Package log provides the structured logger shared by every forestcal
// component.
//
// Components obtain a named Logger through GetLoggerWithName and emit
// key/value pairs using the constants in keys.go:
//
//	logger := log.GetLoggerWithName("ensemble").With(
//		log.ModelNameKey, "RandomForestRegressor",
//	)
//	logger.Info("Training started",
//		log.OperationKey, log.OperationFit,
//		log.SamplesKey, n,
//	)
//
// The default provider is backed by zerolog and writes JSON to stderr.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the logging surface used by models and services.
// Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLoggerWithName(name string) Logger
}

// ZerologProvider creates zerolog-backed loggers.
type ZerologProvider struct {
	base zerolog.Logger
}

// NewZerologProvider creates a provider writing JSON lines to stderr.
func NewZerologProvider(level zerolog.Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter creates a provider writing to w.
func NewZerologProviderWithWriter(w io.Writer, level zerolog.Level) *ZerologProvider {
	return &ZerologProvider{
		base: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// GetLoggerWithName returns a logger tagged with the given name.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologAdapter{zl: p.base.With().Str(LoggerNameKey, name).Logger()}
}

// Zerolog exposes the underlying zerolog logger.
func (p *ZerologProvider) Zerolog() *zerolog.Logger {
	return &p.base
}

type zerologAdapter struct {
	zl zerolog.Logger
}

func (a *zerologAdapter) Debug(msg string, fields ...interface{}) {
	a.zl.Debug().Fields(fields).Msg(msg)
}

func (a *zerologAdapter) Info(msg string, fields ...interface{}) {
	a.zl.Info().Fields(fields).Msg(msg)
}

func (a *zerologAdapter) Warn(msg string, fields ...interface{}) {
	a.zl.Warn().Fields(fields).Msg(msg)
}

func (a *zerologAdapter) Error(msg string, fields ...interface{}) {
	a.zl.Error().Fields(fields).Msg(msg)
}

func (a *zerologAdapter) With(fields ...interface{}) Logger {
	return &zerologAdapter{zl: a.zl.With().Fields(fields).Logger()}
}

var (
	mu       sync.RWMutex
	provider = NewZerologProvider(zerolog.InfoLevel)
)

// SetupLogger replaces the global provider with one at the given level
// ("debug", "info", "warn", "error", "disabled").
func SetupLogger(level string) {
	SetLoggerProvider(NewZerologProvider(ToLogLevel(level)))
}

// SetLoggerProvider installs p as the global provider.
func SetLoggerProvider(p *ZerologProvider) {
	mu.Lock()
	provider = p
	mu.Unlock()
}

// GetLoggerWithName returns a named logger from the global provider.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// GetLogger returns the global zerolog logger.
func GetLogger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return provider.Zerolog()
}

// LogError logs err at error level. nil errors are ignored.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	GetLogger().Error().Err(err).Msg(msg)
}

// ToLogLevel parses a level name. Unknown names map to info.
func ToLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
