// Package logging provides structured logging for the commerce backend.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	// UserIDKey carries the authenticated user id through request context.
	UserIDKey contextKey = "user_id"
	// RoleKey carries the authenticated role through request context.
	RoleKey contextKey = "role"

	traceIDKey contextKey = "trace_id"
)

// Logger wraps a logrus logger with context-aware helpers.
type Logger struct {
	base    *logrus.Logger
	service string
}

// New creates a logger for the named service. Level is one of
// debug/info/warn/error; format is "json" or "text".
func New(service, level, format string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)

	if strings.EqualFold(format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{base: base, service: service}
}

// Entry is a single log statement being assembled.
type Entry struct {
	entry *logrus.Entry
}

func (l *Logger) root() *logrus.Entry {
	return l.base.WithField("service", l.service)
}

// WithContext returns an entry annotated with the user id, role and trace id
// stored in ctx, when present.
func (l *Logger) WithContext(ctx context.Context) *Entry {
	entry := l.root()
	if v := GetUserID(ctx); v != "" {
		entry = entry.WithField("user_id", v)
	}
	if v := GetRole(ctx); v != "" {
		entry = entry.WithField("role", v)
	}
	if v := GetTraceID(ctx); v != "" {
		entry = entry.WithField("trace_id", v)
	}
	return &Entry{entry: entry}
}

// WithError returns an entry annotated with err.
func (l *Logger) WithError(err error) *Entry {
	return &Entry{entry: l.root().WithError(err)}
}

// WithField returns an entry annotated with a single field.
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{entry: l.root().WithField(key, value)}
}

// WithFields returns an entry annotated with the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Entry {
	return &Entry{entry: l.root().WithFields(fields)}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.root().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.root().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.root().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.root().Errorf(format, args...) }

func (l *Logger) Debug(args ...interface{}) { l.root().Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.root().Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.root().Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.root().Error(args...) }

// LogRequest records one handled HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	l.WithContext(ctx).WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}).Info("request completed")
}

// LogSecurityEvent records an auth/abuse-relevant event. Payload values must
// never contain credentials or tokens.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).WithField("security_event", event).Warn("security event")
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{entry: e.entry.WithError(err)}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{entry: e.entry.WithField(key, value)}
}

func (e *Entry) WithFields(fields map[string]interface{}) *Entry {
	return &Entry{entry: e.entry.WithFields(fields)}
}

func (e *Entry) Debugf(format string, args ...interface{}) { e.entry.Debugf(format, args...) }
func (e *Entry) Infof(format string, args ...interface{})  { e.entry.Infof(format, args...) }
func (e *Entry) Warnf(format string, args ...interface{})  { e.entry.Warnf(format, args...) }
func (e *Entry) Errorf(format string, args ...interface{}) { e.entry.Errorf(format, args...) }

func (e *Entry) Debug(args ...interface{}) { e.entry.Debug(args...) }
func (e *Entry) Info(args ...interface{})  { e.entry.Info(args...) }
func (e *Entry) Warn(args ...interface{})  { e.entry.Warn(args...) }
func (e *Entry) Error(args ...interface{}) { e.entry.Error(args...) }

// NewTraceID generates a fresh trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace id in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	return stringFromContext(ctx, traceIDKey)
}

// GetUserID returns the user id stored in ctx, or "".
func GetUserID(ctx context.Context) string {
	return stringFromContext(ctx, UserIDKey)
}

// GetRole returns the role stored in ctx, or "".
func GetRole(ctx context.Context) string {
	return stringFromContext(ctx, RoleKey)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
