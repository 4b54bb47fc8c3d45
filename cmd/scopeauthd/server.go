package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/scopeAuth"
	"github.com/MrEthical07/scopeAuth/handler"
	"github.com/MrEthical07/scopeAuth/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// pinger reports backend health for /healthz.
type pinger interface {
	Ping(ctx context.Context) error
}

type serverDeps struct {
	engine         *scopeAuth.Engine
	directory      scopeAuth.UserDirectory
	health         pinger
	registry       *prometheus.Registry
	metricsPath    string
	trustForwarded bool
	logger         logrus.FieldLogger
}

type userResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"full_name,omitempty"`
	Scopes   []string `json:"scopes"`
}

type itemResponse struct {
	ItemID string `json:"item_id"`
	Owner  string `json:"owner"`
}

func newRouter(deps serverDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.ClientIP(deps.trustForwarded))
	r.Use(requestLogger(deps.logger))
	if deps.registry != nil {
		r.Use(httpMetrics(deps.registry))
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/oauth", handler.TokenHandler(deps.engine)).Methods(http.MethodPost)
	api.Handle("/scopes", handler.ScopesHandler(deps.engine)).Methods(http.MethodGet)

	me := middleware.RequireScopes(deps.engine, "me")
	api.Handle("/users/me", me(readCurrentUser(deps.directory, deps.engine.DirectoryTimeout()))).Methods(http.MethodGet)
	api.Handle("/users/me/password", me(handler.ChangePasswordHandler(deps.engine))).Methods(http.MethodPost)

	items := middleware.RequireScopes(deps.engine, "items")
	api.Handle("/items", items(http.HandlerFunc(readOwnItems))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", healthz(deps.health)).Methods(http.MethodGet)
	if deps.registry != nil {
		r.Handle(deps.metricsPath, promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func readCurrentUser(dir scopeAuth.UserDirectory, timeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		stored, err := dir.FindByID(ctx, principal.ID)
		if err != nil {
			handler.WriteError(w, err)
			return
		}
		handler.WriteJSON(w, http.StatusOK, userResponse{
			ID:       stored.ID,
			Username: stored.Username,
			Email:    stored.Email,
			FullName: stored.FullName,
			Scopes:   principal.Scopes,
		})
	})
}

func readOwnItems(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	handler.WriteJSON(w, http.StatusOK, []itemResponse{{ItemID: "Foo", Owner: principal.Username}})
}

func healthz(backend pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if backend != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := backend.Ping(ctx); err != nil {
				handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func requestLogger(logger logrus.FieldLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"route":    routeTemplate(r),
				"status":   rec.status,
				"ip":       scopeAuth.ClientIPFromContext(r.Context()),
				"duration": time.Since(start).String(),
			}).Debug("request")
		})
	}
}

func httpMetrics(registry *prometheus.Registry) mux.MiddlewareFunc {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scopeauth_http_requests_total",
			Help: "HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scopeauth_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	registry.MustRegister(requests, duration)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routeTemplate(r)
			requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
