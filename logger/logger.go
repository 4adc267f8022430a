// Package logger configures the logrus logger shared by the engine packages.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/meenmo/lmm/config"
)

var globalLogger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(levelFromEnv(logrus.InfoLevel))
	l.SetFormatter(jsonFormatter())
	return l
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// levelFromEnv reads LOG_LEVEL, falling back to def when unset or invalid.
func levelFromEnv(def logrus.Level) logrus.Level {
	s := os.Getenv("LOG_LEVEL")
	if s == "" {
		return def
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(s))
	if err != nil {
		return def
	}
	return lvl
}

// New builds a logger from cfg. LOG_LEVEL, when set, wins over cfg.Level.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	l := logrus.New()

	lvl := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("logger.New: %w", err)
		}
		lvl = parsed
	}
	l.SetLevel(levelFromEnv(lvl))

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		l.SetFormatter(jsonFormatter())
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("logger.New: unknown format %q", cfg.Format)
	}

	switch cfg.File {
	case "", "stderr":
		l.SetOutput(os.Stderr)
	case "stdout":
		l.SetOutput(os.Stdout)
	default:
		l.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	return l, nil
}

// SetLogger replaces the global logger.
func SetLogger(l *logrus.Logger) {
	globalLogger = l
}

// GetLogger returns the global logger.
func GetLogger() *logrus.Logger {
	return globalLogger
}

// WithComponent returns an entry of the global logger tagged with component.
func WithComponent(component string) *logrus.Entry {
	return globalLogger.WithField("component", component)
}

// Discard returns an entry that writes nowhere. Engine types use it when the
// caller did not supply a logger.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// OrDiscard returns e, or a discarding entry when e is nil.
func OrDiscard(e *logrus.Entry) *logrus.Entry {
	if e == nil {
		return Discard()
	}
	return e
}
