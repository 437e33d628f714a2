package instrumentation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	// PrimLatency tracks latency for individual primitives
	PrimLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wandkit_prim_duration_seconds",
			Help:    "A histogram of latencies for individual primitives",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"module", "prim", "status"},
	)

	// PrimCounter tracks primitive call counts
	PrimCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wandkit_prim_calls_total",
			Help: "Total number of primitive calls",
		},
		[]string{"module", "prim", "status"},
	)
)

func init() {
	prometheus.MustRegister(PrimLatency)
	prometheus.MustRegister(PrimCounter)
}

// Status of a finished call
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusArgument = "argument_error"
)

// Instrumentation provides primitive call metrics tracking
type Instrumentation struct {
	Module string
	Logger *zap.Logger
}

// New creates a new Instrumentation instance
func New(module string, logger *zap.Logger) *Instrumentation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumentation{
		Module: module,
		Logger: logger,
	}
}

// Timer provides a convenient timer for a single call
type Timer struct {
	instrumentation *Instrumentation
	prim            string
	start           time.Time
}

// NewTimer creates a new call timer
func (i *Instrumentation) NewTimer(prim string) *Timer {
	return &Timer{
		instrumentation: i,
		prim:            prim,
		start:           time.Now(),
	}
}

// Observe records the duration and status of the call
func (t *Timer) Observe(status string, err error) {
	if t == nil || t.instrumentation == nil {
		return
	}
	t.instrumentation.Record(t.prim, time.Since(t.start), status, err)
}

// Record records the duration and status of a primitive call
func (i *Instrumentation) Record(prim string, duration time.Duration, status string, err error) {
	PrimLatency.WithLabelValues(i.Module, prim, status).Observe(duration.Seconds())
	PrimCounter.WithLabelValues(i.Module, prim, status).Inc()

	if i.Logger != nil {
		i.Logger.Debug("prim",
			zap.String("module", i.Module),
			zap.String("prim", prim),
			zap.Duration("duration", duration),
			zap.String("status", status),
			zap.Error(err))
	}
}
