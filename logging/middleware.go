package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// RequestLogger writes one entry per request. Status >= 400 logs at Warn.
func RequestLogger(logger log.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.Method == http.MethodOptions {
				return
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := logger.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"latency":    time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			})
			if status >= http.StatusBadRequest {
				entry.Warn("api request")
			} else {
				entry.Info("api request")
			}
		})
	}
}
