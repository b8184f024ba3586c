// Package logger provides structured logging on top of logrus.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Ctx is the logging context.
type Ctx map[string]any

// Logger is the main logging interface.
type Logger interface {
	Error(msg string, ctx ...Ctx)
	Warn(msg string, ctx ...Ctx)
	Info(msg string, ctx ...Ctx)
	Debug(msg string, ctx ...Ctx)
	AddContext(ctx Ctx) Logger
}

type targetLogger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
	Error(args ...any)
	Warn(args ...any)
	Info(args ...any)
	Debug(args ...any)
}

// Options controls the logger created by New.
type Options struct {
	Output  io.Writer
	Verbose bool
	Quiet   bool
}

// New returns a logger writing human readable lines to opts.Output
// (stderr when nil).
func New(opts Options) Logger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(output)

	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		PadLevelText:    true,
	})

	switch {
	case opts.Verbose:
		l.SetLevel(logrus.DebugLevel)
	case opts.Quiet:
		l.SetLevel(logrus.WarnLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	return newWrapper(l)
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)

	return newWrapper(l)
}

func newWrapper(target targetLogger) Logger {
	return &logWrapper{target}
}

type logWrapper struct {
	target targetLogger
}

// ctxLogger returns a logger target with all provided ctx applied.
func (lw *logWrapper) ctxLogger(ctx ...Ctx) targetLogger {
	logger := lw.target
	for _, c := range ctx {
		logger = logger.WithFields(logrus.Fields(c))
	}

	return logger
}

// Error logs an error level message.
func (lw *logWrapper) Error(msg string, ctx ...Ctx) {
	lw.ctxLogger(ctx...).Error(msg)
}

// Warn logs a warning level message.
func (lw *logWrapper) Warn(msg string, ctx ...Ctx) {
	lw.ctxLogger(ctx...).Warn(msg)
}

// Info logs an info level message.
func (lw *logWrapper) Info(msg string, ctx ...Ctx) {
	lw.ctxLogger(ctx...).Info(msg)
}

// Debug logs a debug level message.
func (lw *logWrapper) Debug(msg string, ctx ...Ctx) {
	lw.ctxLogger(ctx...).Debug(msg)
}

// AddContext returns a sub-logger with the provided context added.
func (lw *logWrapper) AddContext(ctx Ctx) Logger {
	return &logWrapper{lw.ctxLogger(ctx)}
}
