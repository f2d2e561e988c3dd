// Package logging provides structured logging for veostub, wrapping
// logrus the way the rest of this codebase's dependency surface wraps
// a real third-party library rather than hand-rolling one.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sx-aurora/veostub/internal/constants"
)

// Logger wraps a *logrus.Logger, keeping a small stable surface
// (Debug/Info/Warn/Error plus formatted variants and WithFields) so
// callers don't reach into logrus directly.
type Logger struct {
	l *logrus.Logger
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Config holds logging configuration.
type Config struct {
	Level logrus.Level
}

// DefaultConfig returns a sensible default configuration, honoring the
// VEOSTUB_LOG_LEVEL environment variable if set (spec §6's "optional
// collaborator: an environment variable controls level; not
// semantically significant").
func DefaultConfig() *Config {
	level := logrus.InfoLevel
	if v := os.Getenv(constants.LogLevelEnv); v != "" {
		if parsed, err := logrus.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}
	return &Config{Level: level}
}

// NewLogger creates a new Logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(config.Level)
	return &Logger{l: l}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// Entry returns a *logrus.Entry for call sites that want structured
// fields (e.g. internal/comm's communicator annotates reqid/cmd).
func (l *Logger) Entry() *logrus.Entry {
	return logrus.NewEntry(l.l)
}

func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.l.WithFields(fields)
}

func (l *Logger) Debug(args ...any) { l.l.Debug(args...) }
func (l *Logger) Info(args ...any)  { l.l.Info(args...) }
func (l *Logger) Warn(args ...any)  { l.l.Warn(args...) }
func (l *Logger) Error(args ...any) { l.l.Error(args...) }

func (l *Logger) Debugf(format string, args ...any) { l.l.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.l.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.l.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.l.Errorf(format, args...) }

// Printf satisfies call sites that historically logged at info level
// via a printf-style call.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }
