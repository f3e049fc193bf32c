package supplyq

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger defines logging methods used by the library. Implementations should be cheap.
// Default is a logrus logger writing text to stderr.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// logrusLogger adapts a logrus logger or entry to Logger.
type logrusLogger struct {
	l logrus.FieldLogger
}

// NewLogger wraps a logrus logger (or an entry with preset fields).
func NewLogger(l logrus.FieldLogger) Logger {
	if l == nil {
		return NewDefaultLogger()
	}
	return logrusLogger{l: l}
}

// NewDefaultLogger creates a text logger on stderr at info level.
func NewDefaultLogger() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	return logrusLogger{l: l}
}

func (g logrusLogger) Debugf(format string, args ...any) { g.l.Debugf(format, args...) }
func (g logrusLogger) Infof(format string, args ...any)  { g.l.Infof(format, args...) }
func (g logrusLogger) Warnf(format string, args ...any)  { g.l.Warnf(format, args...) }
func (g logrusLogger) Errorf(format string, args ...any) { g.l.Errorf(format, args...) }

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// NopLogger discards everything.
func NopLogger() Logger { return noopLogger{} }
