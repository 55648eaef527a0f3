package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/fundacion-cms/internal/config"
	"github.com/debemdeboas/fundacion-cms/internal/routes"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestLogger attaches a request scoped logger to the context and logs
// every request once it is done.
func RequestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(config.HRequestID)
			if reqID == "" {
				reqID = uuid.New().String()
			}
			w.Header().Set(config.HRequestID, reqID)

			log := l.With().Str("request_id", reqID).Logger()
			r = r.WithContext(log.WithContext(r.Context()))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}

func SecureHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != routes.RobotsPath {
			w.Header().Set("X-Frame-Options", "deny")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
		}
		h.ServeHTTP(w, r)
	})
}

// CacheIt marks responses as uncacheable except files under mediaPrefix,
// whose names never change content.
func CacheIt(mediaPrefix string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mediaPrefix != "" && strings.HasPrefix(r.URL.Path, mediaPrefix) {
			w.Header().Set(config.HCacheControl, "public, max-age=31536000, immutable")
		} else {
			w.Header().Set(config.HCacheControl, "no-cache")
		}
		h.ServeHTTP(w, r)
	})
}
