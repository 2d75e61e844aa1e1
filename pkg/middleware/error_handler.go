package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"charity-admin/pkg/errors"
	"charity-admin/pkg/logger"
)

// RequestIDMiddleware reuses an incoming X-Request-ID or generates one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		ctx := logger.ContextWithRequestID(r.Context(), requestID)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimiter is a sliding-window limiter keyed by client IP. Keys idle for a
// whole window are swept at most once per window.
type RateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it fits the window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	valid := rl.requests[key][:0]
	for _, reqTime := range rl.requests[key] {
		if now.Sub(reqTime) < rl.window {
			valid = append(valid, reqTime)
		}
	}
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, times := range rl.requests {
		if len(times) == 0 || now.Sub(times[len(times)-1]) >= rl.window {
			delete(rl.requests, key)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(getClientIP(r)) {
			HandleError(w, r, errors.NewTooManyRequestsError("Rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TimeoutMiddleware adds request timeout
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		entry := logger.WithCtx(r.Context(), "http").WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"bytes":       rec.bytes,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   getClientIP(r),
		})
		switch {
		case rec.status >= 500:
			entry.Error("request completed")
		case rec.status >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	})
}

// HandleError writes an ApplicationError as an ApiResponse-shaped body.
// Other errors become a 500 without leaking their message; a context
// deadline becomes a 408.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.WithCtx(r.Context(), "HandleError").WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})

	appErr, ok := errors.As(err)
	if !ok && stderrors.Is(err, context.DeadlineExceeded) {
		appErr, ok = errors.NewRequestTimeoutError("Request timeout"), true
	}
	if ok {
		log.WithField("code", appErr.Code).WithField("status", appErr.Status).Warn(appErr.Message)
		sendApiErrorResponse(w, r, appErr.Status, appErr.Code, appErr.Message)
		return
	}

	log.WithError(err).Error("unexpected error")
	sendApiErrorResponse(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

// sendApiErrorResponse mirrors response.ApiResponse; pkg/response imports
// this package, so the envelope is written by hand here.
func sendApiErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	body := map[string]interface{}{
		"success": false,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"request_id": GetRequestID(r.Context()),
		"timestamp":  time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	return logger.RequestIDFromContext(ctx)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xForwardedFor := r.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(parts[0])
	}
	if xRealIP := r.Header.Get("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		return ip[:idx]
	}
	return ip
}

// RecoveryMiddleware turns panics into a 500 response.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.WithCtx(r.Context(), "RecoveryMiddleware").
					WithField("panic", rec).
					WithField("stack", string(debug.Stack())).
					Error("panic recovered")

				if w.Header().Get("Content-Type") == "" {
					HandleError(w, r, errors.NewInternalError("Internal server error"))
				}
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// DatabaseErrorHandler converts storage errors to application errors.
func DatabaseErrorHandler(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewRequestTimeoutError("Database operation timeout")
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "server selection") || strings.Contains(errStr, "connection"):
		return errors.NewServiceUnavailableError("Database connection error")
	case strings.Contains(errStr, "timeout"):
		return errors.NewRequestTimeoutError("Database operation timeout")
	case strings.Contains(errStr, "duplicate"):
		return errors.NewConflictError("Resource already exists")
	default:
		return errors.NewInternalError("Database operation failed")
	}
}
