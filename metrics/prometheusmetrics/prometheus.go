package prometheusmetrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var httpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "wandkit",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "A histogram of latencies for served requests",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	},
	[]string{"code", "method"},
)

var httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "wandkit",
	Subsystem: "http",
	Name:      "requests_in_flight",
	Help:      "Number of requests being served",
})

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsInFlight)
}

// PrometheusMetrics serves collected metrics on a dedicated listener
// and instruments the main handler
type PrometheusMetrics struct {
	http.Server

	Host   string
	Port   int
	Path   string
	Logger *zap.Logger
}

// New create new PrometheusMetrics
func New(options ...Option) *PrometheusMetrics {
	s := &PrometheusMetrics{
		Port:   9000,
		Path:   "/metrics",
		Logger: zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}
	s.Addr = s.Host + ":" + strconv.Itoa(s.Port)

	mux := http.NewServeMux()
	mux.Handle(s.Path, promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.Path, http.StatusPermanentRedirect)
	})
	s.Handler = mux
	return s
}

// Handle instruments next with request duration and in flight metrics
func (s *PrometheusMetrics) Handle(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(httpRequestsInFlight,
		promhttp.InstrumentHandlerDuration(httpRequestDuration, next))
}

// Startup starts the metrics listener in background
func (s *PrometheusMetrics) Startup(_ context.Context) error {
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("prometheus-listen", zap.Error(err))
		}
	}()
	s.Logger.Info("prometheus-listen", zap.String("addr", s.Addr), zap.String("path", s.Path))
	return nil
}

// Shutdown stops the metrics listener
func (s *PrometheusMetrics) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}

// Option PrometheusMetrics option
type Option func(s *PrometheusMetrics)

// WithHost with host option
func WithHost(host string) Option {
	return func(s *PrometheusMetrics) {
		s.Host = host
	}
}

// WithPort with port option
func WithPort(port int) Option {
	return func(s *PrometheusMetrics) {
		s.Port = port
	}
}

// WithPath with metrics path option
func WithPath(path string) Option {
	return func(s *PrometheusMetrics) {
		if path != "" {
			s.Path = path
		}
	}
}

// WithLogger with logger option
func WithLogger(logger *zap.Logger) Option {
	return func(s *PrometheusMetrics) {
		if logger != nil {
			s.Logger = logger
		}
	}
}
