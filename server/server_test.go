package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cshum/wandkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testApp struct {
	http.Handler
	StartupCnt  atomic.Int32
	ShutdownCnt atomic.Int32
}

func newTestApp() *testApp {
	return &testApp{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})}
}

func (app *testApp) Startup(context.Context) error {
	app.StartupCnt.Add(1)
	return nil
}

func (app *testApp) Shutdown(context.Context) error {
	app.ShutdownCnt.Add(1)
	return nil
}

type loaderFunc func(r *http.Request, image string) (*wandkit.Blob, error)

func (f loaderFunc) Get(r *http.Request, image string) (*wandkit.Blob, error) {
	return f(r, image)
}

func newPassthroughApp() *wandkit.App {
	return wandkit.New(
		wandkit.WithUnsafe(true),
		wandkit.WithLoaders(loaderFunc(func(r *http.Request, image string) (*wandkit.Blob, error) {
			return wandkit.NewBlobFromBytes([]byte("foo")), nil
		})),
	)
}

func boomMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Foo", "Bar")
		if strings.Contains(r.URL.String(), "boom") {
			panic("booooom")
		}
		next.ServeHTTP(w, r)
	})
}

func TestServer_Run(t *testing.T) {
	ctx, done := context.WithCancel(context.Background())
	app := newTestApp()
	s := New(app,
		WithDebug(true),
		WithAddr(":0"),
		WithStartupTimeout(time.Millisecond),
		WithShutdownTimeout(time.Millisecond),
		WithMetrics(nil),
		WithLogger(zap.NewExample()))
	go func() {
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int32(1), app.StartupCnt.Load())
		assert.Equal(t, int32(0), app.ShutdownCnt.Load())
		done()
	}()
	s.RunContext(ctx)
	assert.Equal(t, int32(1), app.ShutdownCnt.Load())
}

func TestServer(t *testing.T) {
	s := New(newPassthroughApp(),
		WithAccessLog(true),
		WithMiddleware(boomMiddleware),
		WithCORS(true),
	)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/favicon.ico", nil))
	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Header().Get("Vary"))
	assert.Equal(t, "Bar", w.Header().Get("X-Foo"))

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "https://example.com/favicon.ico", nil))
	assert.Equal(t, 405, w.Code)

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/healthcheck", nil))
	assert.Equal(t, 200, w.Code)
	assert.Empty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/unsafe/foo.jpg", nil))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "foo", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "Bar", w.Header().Get("X-Foo"))

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/unsafe/bar.jpg?boom", nil))
	assert.Equal(t, 500, w.Code)
	assert.NotEmpty(t, w.Header().Get("Vary"))
	assert.Equal(t, "Bar", w.Header().Get("X-Foo"))
	assert.Equal(t, `{"message":"booooom","status":500}`, w.Body.String())
}

func TestServerHealth(t *testing.T) {
	s := New(newTestApp())
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var stats HealthStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, wandkit.Version, stats.Version)
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.NumberOfCPUs)
}

func TestServerAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(newTestApp(), WithAccessLog(true), WithLogger(zap.New(core)))

	r := httptest.NewRequest(http.MethodGet, "/foo?bar=1", nil)
	r.Header.Set(RequestIDHeader, "abc")
	r.Header.Set("X-Forwarded-For", "10.0.0.1, 1.2.3.4")
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, r)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("access").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["id"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, "/foo?bar=1", fields["uri"])
	assert.Equal(t, "1.2.3.4", fields["ip"])
	assert.Equal(t, int64(2), fields["written"])

	s.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Len(t, logs.FilterMessage("access").All(), 1)
}

func TestServerErrorLog(t *testing.T) {
	expectLogged := []string{"panic", "server", "server"}
	var logged []string
	logger := zap.NewExample(zap.Hooks(func(entry zapcore.Entry) error {
		logged = append(logged, entry.Message)
		return nil
	}))
	s := New(newPassthroughApp(),
		WithDebug(true),
		WithLogger(logger),
		WithMiddleware(boomMiddleware),
		WithCORS(true),
	)

	ts := httptest.NewServer(s.Handler)
	ts.Config = &s.Server
	defer ts.Close()

	res, err := http.Get(ts.URL + "/unsafe/bar.jpg?boom")
	require.NoError(t, err)
	assert.Equal(t, 500, res.StatusCode)
	assert.Equal(t, "Bar", res.Header.Get("X-Foo"))
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"message":"booooom","status":500}`, string(body))

	_, err = ts.Config.ErrorLog.Writer().Write([]byte("http: TLS handshake error from 172.16.0.3:42672: EOF"))
	assert.NoError(t, err)
	_, err = ts.Config.ErrorLog.Writer().Write([]byte("foobar"))
	assert.NoError(t, err)

	assert.Equal(t, expectLogged, logged)
}

func TestWithStripQueryString(t *testing.T) {
	s := New(newTestApp(), WithAddr("https://example.com:1667"), WithPort(1234))
	assert.Equal(t, "https://example.com:1667", s.Addr)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/?a=1&b=2", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	s = New(newTestApp(), WithStripQueryString(true), WithAddress("https://foo.com"), WithPort(1234))
	assert.Equal(t, "https://foo.com:1234", s.Addr)

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/?a=1&b=2", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com/", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWithPathPrefix(t *testing.T) {
	s := New(wandkit.New())

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	s = New(wandkit.New(), WithPathPrefix("/wandkit"))

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/wandkit", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), wandkit.Version)
}

func TestWithSentry(t *testing.T) {
	s := New(newTestApp(), WithSentry(" https://12345@sentry.com/123 "))
	assert.Equal(t, "https://12345@sentry.com/123", s.SentryDsn)
	assert.NotNil(t, s.Logger)
}

func TestIsNil(t *testing.T) {
	var i any
	assert.True(t, isNil(i))
	var p *testApp
	assert.True(t, isNil(p))
	var m Metrics = (*testMetrics)(nil)
	assert.True(t, isNil(m))

	var s []string
	assert.False(t, isNil(s))
	var f func()
	assert.False(t, isNil(f))
	assert.False(t, isNil("string"))
	assert.False(t, isNil(&testApp{}))
}

func TestServerStartupShutdown(t *testing.T) {
	app := newTestApp()
	metrics := &testMetrics{}
	s := New(app, WithMetrics(metrics), WithStartupTimeout(time.Second), WithShutdownTimeout(time.Second))

	s.startup(context.Background())
	assert.Equal(t, int32(1), app.StartupCnt.Load())
	assert.Equal(t, 1, metrics.StartupCnt)

	s.shutdown(context.Background())
	assert.Equal(t, int32(1), app.ShutdownCnt.Load())
	assert.Equal(t, 1, metrics.ShutdownCnt)
}

func TestServerOptions(t *testing.T) {
	app := newTestApp()

	t.Run("defaults", func(t *testing.T) {
		s := New(app)
		assert.Equal(t, ":8000", s.Addr)
		assert.Equal(t, time.Second*10, s.StartupTimeout)
		assert.Equal(t, time.Second*10, s.ShutdownTimeout)
		assert.NotNil(t, s.Logger)
		assert.NotNil(t, s.ErrorLog)
		assert.Empty(t, s.CertFile)
	})

	t.Run("address and port", func(t *testing.T) {
		s := New(app, WithAddress("localhost"), WithPort(9090))
		assert.Equal(t, "localhost", s.Address)
		assert.Equal(t, 9090, s.Port)
		assert.Equal(t, "localhost:9090", s.Addr)
	})

	t.Run("tls", func(t *testing.T) {
		s := New(app, WithCertFile("cert.pem"), WithKeyFile("key.pem"))
		assert.Equal(t, "cert.pem", s.CertFile)
		assert.Equal(t, "key.pem", s.KeyFile)
	})

	t.Run("logger", func(t *testing.T) {
		logger := zap.NewExample()
		assert.Equal(t, logger, New(app, WithLogger(logger)).Logger)
		assert.NotNil(t, New(app, WithLogger(nil)).Logger)
	})

	t.Run("timeouts", func(t *testing.T) {
		s := New(app, WithStartupTimeout(5*time.Second), WithShutdownTimeout(15*time.Second),
			WithReadTimeout(time.Minute))
		assert.Equal(t, 5*time.Second, s.StartupTimeout)
		assert.Equal(t, 15*time.Second, s.ShutdownTimeout)
		assert.Equal(t, time.Minute, s.ReadTimeout)

		s = New(app, WithStartupTimeout(0), WithShutdownTimeout(0))
		assert.Equal(t, time.Second*10, s.StartupTimeout)
		assert.Equal(t, time.Second*10, s.ShutdownTimeout)
	})

	t.Run("middleware", func(t *testing.T) {
		s := New(app, WithMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Test", "middleware")
				next.ServeHTTP(w, r)
			})
		}))
		w := httptest.NewRecorder()
		s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "middleware", w.Header().Get("X-Test"))
		assert.NotNil(t, New(app, WithMiddleware(nil)).Handler)
	})
}

func TestServerErrorLogWriter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	writer := &serverErrorLogWriter{Logger: zap.New(core)}

	tests := []struct {
		msg   string
		level zapcore.Level
	}{
		{"http: TLS handshake error from 172.16.0.3:42672: EOF\n", zapcore.DebugLevel},
		{"http: URL query contains semicolon, which is deprecated\n", zapcore.DebugLevel},
		{"some other server error\n", zapcore.WarnLevel},
	}
	for _, tt := range tests {
		logs.TakeAll()
		n, err := writer.Write([]byte(tt.msg))
		assert.NoError(t, err)
		assert.Equal(t, len(tt.msg), n)
		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "server", entries[0].Message)
		assert.Equal(t, tt.level, entries[0].Level)
	}
}

type testMetrics struct {
	StartupCnt  int
	ShutdownCnt int
	HandleCnt   int
}

func (m *testMetrics) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HandleCnt++
		next.ServeHTTP(w, r)
	})
}

func (m *testMetrics) Startup(context.Context) error {
	m.StartupCnt++
	return nil
}

func (m *testMetrics) Shutdown(context.Context) error {
	m.ShutdownCnt++
	return nil
}

func TestServerWithMetrics(t *testing.T) {
	metrics := &testMetrics{}
	s := New(newTestApp(), WithMetrics(metrics))
	assert.Equal(t, metrics, s.Metrics)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, 1, metrics.HandleCnt)

	assert.True(t, isNil(New(newTestApp(), WithMetrics(nil)).Metrics))
}

func TestHandlerFunctions(t *testing.T) {
	assert.True(t, isNoopRequest(httptest.NewRequest(http.MethodGet, "/healthcheck", nil)))
	assert.True(t, isNoopRequest(httptest.NewRequest(http.MethodGet, "/favicon.ico", nil)))
	assert.False(t, isNoopRequest(httptest.NewRequest(http.MethodGet, "/api/test", nil)))
	assert.False(t, isNoopRequest(httptest.NewRequest(http.MethodPost, "/healthcheck", nil)))

	w := httptest.NewRecorder()
	handleOk(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPanicHandler(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New(newTestApp(), WithLogger(zap.New(core)))

	tests := []struct {
		name  string
		value any
	}{
		{"error", fmt.Errorf("test error")},
		{"string", "string panic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.TakeAll()
			handler := s.panicHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.value)
			}))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, w.Body.String(), fmt.Sprint(tt.value))
			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, "panic", entries[0].Message)
		})
	}

	logs.TakeAll()
	handler := s.panicHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("success"))
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "success", w.Body.String())
	assert.Empty(t, logs.All())
}
