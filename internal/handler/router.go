package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/metrics"
)

// RequestIDHeader carries the request id in requests and responses.
const RequestIDHeader = "X-Request-ID"

// Router assembles the HTTP handlers behind the shared middleware chain.
type Router struct {
	web     *WebHandler
	admin   *AdminHandler
	api     *APIHandler
	session func(http.Handler) http.Handler
	metrics *metrics.Metrics
	config  RouterConfig
	logger  zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	WebHandler   *WebHandler
	AdminHandler *AdminHandler
	APIHandler   *APIHandler

	// SessionMiddleware resolves the session cookie, see auth.Middleware.
	SessionMiddleware func(http.Handler) http.Handler

	// Metrics, when set, records request metrics and serves MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string

	// MaxBodySize limits request bodies; zero means unlimited.
	MaxBodySize int64

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		web:     config.WebHandler,
		admin:   config.AdminHandler,
		api:     config.APIHandler,
		session: config.SessionMiddleware,
		metrics: config.Metrics,
		config:  config,
		logger:  config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(rt.accessLog)
	r.Use(middleware.Recoverer)
	if rt.config.MaxBodySize > 0 {
		r.Use(middleware.RequestSize(rt.config.MaxBodySize))
	}
	if rt.session != nil {
		r.Use(rt.session)
	}

	if rt.metrics != nil && rt.config.MetricsPath != "" {
		r.Method(http.MethodGet, rt.config.MetricsPath, rt.metrics.Handler())
	}

	if rt.api != nil {
		rt.api.RegisterRoutes(r)
	}
	if rt.web != nil {
		rt.web.RegisterRoutes(r)
	}
	if rt.admin != nil {
		rt.admin.RegisterRoutes(r)
	}

	return r
}

// SessionMiddleware builds the session middleware, skipping the health and metrics paths.
func SessionMiddleware(sessions auth.SessionStore, identities auth.IdentityLoader, cookie auth.CookieConfig, metricsPath string, logger zerolog.Logger) func(http.Handler) http.Handler {
	skip := []string{"/health"}
	if metricsPath != "" {
		skip = append(skip, metricsPath)
	}
	return auth.Middleware(sessions, identities, auth.MiddlewareConfig{
		Cookie:    cookie,
		SkipPaths: skip,
		Logger:    logger,
	})
}

// requestID propagates or assigns a request id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// accessLog logs each request and records its metrics under the matched route pattern.
func (rt *Router) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		if rt.metrics != nil {
			rt.metrics.RecordHTTPRequest(r.Method, route, status, duration)
		}

		event := rt.logger.Debug()
		if status >= http.StatusInternalServerError {
			event = rt.logger.Error()
		}
		event.
			Str("request_id", r.Header.Get(RequestIDHeader)).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}
