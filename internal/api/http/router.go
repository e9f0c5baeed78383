package apihttp

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"safetyband-cloud/internal/auth"
	"safetyband-cloud/internal/eventing"
	exposurehttp "safetyband-cloud/internal/exposure/interfaces/http"
	settingshttp "safetyband-cloud/internal/settings/interfaces/http"
)

const healthTimeout = 2 * time.Second

// Pinger checks backing store connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterConfig collects the handlers mounted by NewRouter.
type RouterConfig struct {
	Logger         *log.Logger
	DB             *sql.DB
	Health         Pinger
	Auth           *auth.Middleware
	IngestAuth     *auth.IngestAuthMiddleware
	Device         http.Handler
	Exposure       *exposurehttp.Handler
	Configurations *settingshttp.ConfigurationHandler
	Metrics        http.Handler
}

// NewRouter builds the HTTP routes of the server.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	if cfg.Device == nil {
		return nil, errors.New("router: nil device handler")
	}
	if cfg.Exposure == nil {
		return nil, errors.New("router: nil exposure handler")
	}
	if cfg.Configurations == nil {
		return nil, errors.New("router: nil configuration handler")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := chi.NewRouter()
	r.Use(LoggingMiddleware(logger))
	r.Use(Recoverer(logger))
	if cfg.Auth != nil {
		r.Use(cfg.Auth.Handler)
	}

	r.Method(http.MethodPost, "/ingest/device", cfg.IngestAuth.Wrap(cfg.Device))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/exposure/report", cfg.Exposure.HandleReport)
		r.Post("/exposure/group", cfg.Exposure.HandleGroup)
		if cfg.DB != nil {
			r.Method(http.MethodGet, "/exposure/summary", NewExposureSummaryHandler(cfg.DB))
			r.Method(http.MethodGet, "/events", NewEventsHandler(cfg.DB))
			r.Method(http.MethodGet, "/exports/events.csv", NewExportEventsCSVHandler(cfg.DB))
		}
	})
	cfg.Configurations.Routes(r)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	health := cfg.Health
	if health == nil && cfg.DB != nil {
		health = cfg.DB
	}
	r.Get("/healthz", healthHandler(health))
	return r, nil
}

func healthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// LoggingMiddleware logs one line per request with a short request id.
func LoggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()[:8]
			w.Header().Set("X-Request-ID", requestID)
			resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(resp, r.WithContext(eventing.WithCorrelationID(r.Context(), requestID)))
			logger.Printf("http [%s] %s %s %d %s", requestID, r.Method, r.URL.Path, resp.status, time.Since(start))
		})
	}
}

// Recoverer turns handler panics into 500 responses.
func Recoverer(logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Printf("panic recovered: %v\nrequest: %s %s\n%s", err, r.Method, r.URL.Path, debug.Stack())
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
