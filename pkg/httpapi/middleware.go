package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/newtron-network/portfinder/pkg/util"
)

// RequestLogger logs one structured entry per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		util.WithRequest(middleware.GetReqID(r.Context())).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote":      r.RemoteAddr,
			"status":      wrapped.statusCode,
			"bytes":       wrapped.size,
			"duration_ms": time.Since(startedAt).Milliseconds(),
		}).Info("http request")
	})
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (r *responseCapture) WriteHeader(status int) {
	r.statusCode = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}
