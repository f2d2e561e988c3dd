package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func newCapturingLogger(t *testing.T, level logrus.Level) (*Logger, *bytes.Buffer) {
	t.Helper()
	logger := NewLogger(&Config{Level: level})
	var buf bytes.Buffer
	logger.l.SetOutput(&buf)
	logger.l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return logger, &buf
}

func TestNewLoggerDefaultLevel(t *testing.T) {
	logger := NewLogger(nil)
	if logger == nil {
		t.Fatal("NewLogger(nil) returned nil")
	}
	if logger.l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected default level info, got %v", logger.l.GetLevel())
	}
}

func TestLoggerWithFields(t *testing.T) {
	logger, buf := newCapturingLogger(t, logrus.DebugLevel)

	entry := logger.WithFields(logrus.Fields{"reqid": uint64(42), "cmd": "CALL_ASYNC"})
	entry.Debug("sending request")

	out := buf.String()
	if !strings.Contains(out, "reqid=42") {
		t.Errorf("expected reqid=42 in output, got: %s", out)
	}
	if !strings.Contains(out, "cmd=CALL_ASYNC") {
		t.Errorf("expected cmd=CALL_ASYNC in output, got: %s", out)
	}
}

func TestLoggerLevels(t *testing.T) {
	logger, buf := newCapturingLogger(t, logrus.WarnLevel)

	logger.Debug("hidden debug message")
	logger.Info("hidden info message")
	logger.Warn("visible warning")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered out at warn level, got: %s", out)
	}
	if !strings.Contains(out, "visible warning") {
		t.Errorf("expected warning to be logged, got: %s", out)
	}
}

func TestDefaultAndSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	replacement := NewLogger(&Config{Level: logrus.DebugLevel})
	SetDefault(replacement)

	if Default() != replacement {
		t.Error("Default() should return the logger set via SetDefault")
	}
}

func TestDefaultConfigHonorsEnvVar(t *testing.T) {
	t.Setenv("VEOSTUB_LOG_LEVEL", "debug")
	cfg := DefaultConfig()
	if cfg.Level != logrus.DebugLevel {
		t.Errorf("expected DebugLevel from VEOSTUB_LOG_LEVEL=debug, got %v", cfg.Level)
	}
}
