package httpserver

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/telemetry/logger"
	"github.com/mzhnv/rollcall-go/internal/telemetry/metric"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first listed is the outermost.
// Chain(a, b, c)(h) serves a request as a -> b -> c -> h.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// RequestID ensures every request carries an ID. A client-supplied
// X-Request-ID is kept, otherwise a fresh one is generated. The ID is
// echoed on the response and stored in the request context where the
// logger picks it up.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = "req-" + strings.ToLower(ulid.Make().String())
			}

			w.Header().Set("X-Request-ID", requestID)
			ctx := logger.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover converts panics into a JSON 500 response instead of killing
// the connection.
func Recover(lgr logger.Logger) Middleware {
	if lgr == nil {
		lgr = logger.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					lgr.Error("panic recovered",
						"panic", fmt.Sprintf("%v", rec),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					writeMiddlewareError(w, r,
						domain.ErrInternalServer.Code,
						domain.ErrInternalServer.Message,
						http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS handles cross-origin requests for browser frontends. Only
// origins in the allow list are echoed back; "*" allows any origin.
// Preflight OPTIONS requests are answered directly with 204.
func CORS(allowedOrigins []string) Middleware {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Error-Code")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Rate limiter housekeeping. The per-client map is swept once it grows
// past maxTrackedClients, dropping entries idle longer than
// clientIdleTime.
const (
	maxTrackedClients = 10000
	clientIdleTime    = 3 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit limits each client IP to rps requests per second with the
// given burst. Rejected requests receive 429 with a Retry-After header
// derived from the limiter's reservation delay.
func RateLimit(rps float64, burst int) Middleware {
	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			now := time.Now()

			mu.Lock()
			client, ok := clients[ip]
			if !ok {
				client = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
				clients[ip] = client
				if len(clients) > maxTrackedClients {
					for addr, c := range clients {
						if now.Sub(c.lastSeen) > clientIdleTime {
							delete(clients, addr)
						}
					}
				}
			}
			client.lastSeen = now
			mu.Unlock()

			reservation := client.limiter.Reserve()
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				retryAfter := int(math.Ceil(delay.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeMiddlewareError(w, r,
					domain.ErrRateLimited.Code,
					domain.ErrRateLimited.Message,
					http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request counts, latency, and in-flight gauge. The
// route label comes from routeOf, typically the handler's mux pattern
// lookup, so label cardinality stays bounded regardless of path values.
func Metrics(m *metric.Metrics, routeOf func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeOf(r)
			start := time.Now()

			m.HTTPInFlight.Inc()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			m.HTTPInFlight.Dec()

			m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Audit logs every request with its outcome. Server errors log at
// error level, client errors at warn, the rest at info.
func Audit(lgr logger.Logger) Middleware {
	if lgr == nil {
		lgr = logger.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", getClientIP(r),
				"request_id", logger.RequestIDFromContext(r.Context()),
			}

			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				lgr.Error("http request", args...)
			case wrapped.statusCode >= http.StatusBadRequest:
				lgr.Warn("http request", args...)
			default:
				lgr.Info("http request", args...)
			}
		})
	}
}

// responseWriter captures the status code for logging and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client address, preferring proxy headers.
// X-Forwarded-For may carry a chain; the first entry is the client.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeMiddlewareError emits the same envelope the handler package uses
// without importing it.
func writeMiddlewareError(w http.ResponseWriter, r *http.Request, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)

	body := map[string]any{
		"code":      code,
		"message":   message,
		"timestamp": time.Now().UnixMilli(),
	}
	if requestID := logger.RequestIDFromContext(r.Context()); requestID != "" {
		body["request_id"] = requestID
	}
	_ = json.NewEncoder(w).Encode(body)
}
