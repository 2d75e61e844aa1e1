package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ContextKey is the type for logging values stored in a context
type ContextKey string

const (
	// RequestIDKey is the context key for the request ID
	RequestIDKey ContextKey = "requestID"
	// UserIDKey is the context key for the authenticated user
	UserIDKey ContextKey = "userID"
)

var (
	appLogger = logrus.New()
	initOnce  sync.Once
)

// Init configures the shared logger. level: trace..fatal, format: text|json.
func Init(level, format string) {
	initOnce.Do(func() {
		configure(appLogger, os.Stdout, level, format)
	})
}

func configure(l *logrus.Logger, out io.Writer, level, format string) {
	l.SetOutput(out)
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// Tag returns an entry labelled with the component name.
func Tag(tag string) *logrus.Entry {
	return appLogger.WithField("tag", tag)
}

// WithCtx returns a tagged entry carrying request and user IDs from ctx.
func WithCtx(ctx context.Context, tag string) *logrus.Entry {
	entry := Tag(tag)
	if ctx == nil {
		return entry
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		entry = entry.WithField("user_id", userID)
	}
	return entry
}

// ContextWithRequestID stores the request ID used by WithCtx.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFromContext returns the request ID or "unknown".
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}
