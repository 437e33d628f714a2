package prometheusmetrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithOption(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		v := New()
		assert.Equal(t, "", v.Host)
		assert.Equal(t, 9000, v.Port)
		assert.Equal(t, "/metrics", v.Path)
		assert.Equal(t, ":9000", v.Addr)
		assert.NotNil(t, v.Logger)
	})

	t.Run("options", func(t *testing.T) {
		l := zap.NewExample()
		v := New(
			WithHost("domain.example.com"),
			WithPort(1111),
			WithPath("/path"),
			WithLogger(l),
		)
		assert.Equal(t, "domain.example.com", v.Host)
		assert.Equal(t, 1111, v.Port)
		assert.Equal(t, "/path", v.Path)
		assert.Equal(t, "domain.example.com:1111", v.Addr)
		assert.Equal(t, l, v.Logger)
	})
}

func sampleCount(t *testing.T, code, method string) uint64 {
	m := &dto.Metric{}
	o, err := httpRequestDuration.GetMetricWithLabelValues(code, method)
	require.NoError(t, err)
	require.NoError(t, o.(prometheus.Metric).Write(m))
	return m.GetHistogram().GetSampleCount()
}

func TestHandle(t *testing.T) {
	s := New()
	before := sampleCount(t, "418", "get")
	h := s.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/foo", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, before+1, sampleCount(t, "418", "get"))
}

func TestMetricsHandler(t *testing.T) {
	s := New()
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusPermanentRedirect, w.Code)
	assert.Equal(t, "/metrics", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wandkit_http_requests_in_flight")
}
