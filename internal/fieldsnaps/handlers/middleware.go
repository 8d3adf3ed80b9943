package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// nativeOrigins are the origins of the Capacitor shells.
var nativeOrigins = []string{"capacitor://localhost", "http://localhost", "https://localhost"}

// PublicPaths skip bearer token checks.
var PublicPaths = []string{"/healthz", "/api/billing/webhook"}

// HTTPConfig configures the middleware around the REST routes.
type HTTPConfig struct {
	JWTSecret      string
	JWTAudience    string
	AllowedOrigins []string
}

// withMiddleware wraps h in the request ID, real IP, recovery, timeout, CORS,
// access log and auth layers, outermost first.
func withMiddleware(h http.Handler, cfg HTTPConfig, logger *zap.Logger) http.Handler {
	return chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		corsHandler(cfg.AllowedOrigins),
		accessLog(logger),
		middleware.Timeout(requestTimeout),
	).Handler(auth.HTTPMiddleware(h, cfg.JWTSecret, cfg.JWTAudience, PublicPaths...))
}

func corsHandler(configured []string) func(http.Handler) http.Handler {
	origins := slices.Clone(nativeOrigins)
	for _, o := range configured {
		if !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// accessLog writes one structured line per request.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqID := middleware.GetReqID(r.Context())
			if reqID != "" {
				ww.Header().Set("X-Request-Id", reqID)
			}

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_ip", r.RemoteAddr),
				zap.String("request_id", reqID),
			}
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				logger.Error("Request completed", fields...)
			case ww.Status() >= http.StatusBadRequest:
				logger.Warn("Request completed", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
		})
	}
}
