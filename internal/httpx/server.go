package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// HealthFunc reports nil when the process can serve traffic.
type HealthFunc func(ctx context.Context) error

type Options struct {
	GraphQL http.Handler
	Health  HealthFunc
	Log     *slog.Logger
	Timeout time.Duration
}

// NewRouter builds the API router: POST /graphql, /healthz and /metrics.
func NewRouter(o Options) *chi.Mux {
	r := baseRouter(o.Log)
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	r.Use(middleware.Timeout(timeout))
	r.Get("/healthz", healthz(o.Health))
	r.Handle("/metrics", promhttp.Handler())
	if o.GraphQL != nil {
		r.Method(http.MethodPost, "/graphql", o.GraphQL)
	}
	return r
}

// NewOpsRouter serves only /healthz and /metrics, for processes without an
// API (scheduler, worker).
func NewOpsRouter(log *slog.Logger, health HealthFunc) *chi.Mux {
	r := baseRouter(log)
	r.Get("/healthz", healthz(health))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func baseRouter(log *slog.Logger) *chi.Mux {
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(log.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer, traceID, instrument)
	return r
}

func healthz(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// traceID carries the request id into the service so emitted events and
// resolver logs can be joined with the access log.
func traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id != "" {
			r = r.WithContext(crm.WithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
