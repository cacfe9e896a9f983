package apiserver

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// realIP prefers the proxy headers over the connection's address.
func realIP(req *http.Request) string {
	if ip := req.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// loggingMiddleware logs every request except health checks and turns
// panics into 500 responses.
func loggingMiddleware(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.WithField("remoteAddr", realIP(r))
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				if err := recover(); err != nil {
					log.WithField("status", http.StatusInternalServerError).Errorf("recovered panic: %v\n%s", err, debug.Stack())
					writeError(rec, http.StatusInternalServerError, fmt.Errorf("internal error"))
				}
			}()

			start := time.Now()
			next.ServeHTTP(rec, r)

			if r.URL.Path == "/healthz" {
				return
			}

			requestLogger := log.WithFields(logrus.Fields{
				"status":   rec.status,
				"method":   r.Method,
				"path":     r.URL.EscapedPath(),
				"duration": time.Since(start),
			})
			msg := fmt.Sprintf("handled: %d", rec.status)
			if rec.status >= http.StatusBadRequest {
				requestLogger.Error(msg)
			} else {
				requestLogger.Debug(msg)
			}
		})
	}
}
