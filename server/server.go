package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App is the http.Handler served with Startup and Shutdown lifecycle hooks
type App interface {
	http.Handler
	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Metrics wraps the handler for request instrumentation with its own lifecycle
type Metrics interface {
	Handle(next http.Handler) http.Handler
	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Server wraps the App with additional http and app lifecycle handling
type Server struct {
	http.Server
	App             App
	Address         string
	Port            int
	CertFile        string
	KeyFile         string
	PathPrefix      string
	SentryDsn       string
	StartupTimeout  time.Duration
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
	Debug           bool
	Metrics         Metrics
}

// New create new Server
func New(app App, options ...Option) *Server {
	s := &Server{}
	s.App = app
	s.Port = 8000
	s.MaxHeaderBytes = 1 << 20
	s.StartupTimeout = time.Second * 10
	s.ShutdownTimeout = time.Second * 10
	s.Logger = zap.NewNop()

	s.Handler = s.App
	s.Handler = route(
		handleGet("/favicon.ico", handleOk),
		handleGet("/healthcheck", handleOk),
		handleGet("/health", handleHealth),
	)(s.Handler)

	for _, option := range options {
		option(s)
	}
	if s.PathPrefix != "" {
		s.Handler = http.StripPrefix(s.PathPrefix, s.Handler)
	}
	if s.SentryDsn != "" {
		s.Logger = s.withSentry(s.Logger)
	}
	s.Handler = s.panicHandler(s.Handler)
	if !isNil(s.Metrics) {
		s.Handler = s.Metrics.Handle(s.Handler)
	}
	if s.Addr == "" {
		s.Addr = joinHostPort(s.Address, s.Port)
	}
	s.ErrorLog = newServerErrorLog(s.Logger)
	return s
}

// Run server that terminates on SIGINT, SIGTERM signals
func (s *Server) Run() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	s.RunContext(ctx)
}

// RunContext run server with context, shuts down gracefully once ctx is done
func (s *Server) RunContext(ctx context.Context) {
	s.startup(ctx)

	go func() {
		if err := s.listenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("listen", zap.Error(err))
		}
	}()
	s.Logger.Info("listen", zap.String("addr", s.Addr))

	<-ctx.Done()

	s.shutdown(context.Background())
}

func (s *Server) startup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.StartupTimeout)
	defer cancel()
	if err := s.App.Startup(ctx); err != nil {
		s.Logger.Fatal("app-startup", zap.Error(err))
	}
	if !isNil(s.Metrics) {
		if err := s.Metrics.Startup(ctx); err != nil {
			s.Logger.Fatal("metrics-startup", zap.Error(err))
		}
	}
}

func (s *Server) shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.ShutdownTimeout)
	defer cancel()
	s.Logger.Info("shutdown")
	if err := s.Shutdown(ctx); err != nil {
		s.Logger.Error("server-shutdown", zap.Error(err))
	}
	if !isNil(s.Metrics) {
		if err := s.Metrics.Shutdown(ctx); err != nil {
			s.Logger.Error("metrics-shutdown", zap.Error(err))
		}
	}
	if err := s.App.Shutdown(ctx); err != nil {
		s.Logger.Error("app-shutdown", zap.Error(err))
	}
	if s.SentryDsn != "" {
		sentry.Flush(s.ShutdownTimeout)
	}
}

func (s *Server) listenAndServe() error {
	if s.CertFile != "" && s.KeyFile != "" {
		return s.ListenAndServeTLS(s.CertFile, s.KeyFile)
	}
	return s.ListenAndServe()
}

// withSentry attaches a sentry core to the logger, errors and above are reported
func (s *Server) withSentry(logger *zap.Logger) *zap.Logger {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:   s.SentryDsn,
		Debug: s.Debug,
	}); err != nil {
		logger.Error("sentry-init", zap.Error(err))
		return logger
	}
	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   zapcore.InfoLevel,
	}, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	if err != nil {
		logger.Error("sentry-core", zap.Error(err))
		return logger
	}
	return zapsentry.AttachCoreToLogger(core, logger)
}

// serverErrorLogWriter routes net/http server errors into the zap logger
type serverErrorLogWriter struct {
	Logger *zap.Logger
}

func (w *serverErrorLogWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if isNoisyServerError(msg) {
		w.Logger.Debug("server", zap.String("log", msg))
	} else {
		w.Logger.Warn("server", zap.String("log", msg))
	}
	return len(p), nil
}

func newServerErrorLog(logger *zap.Logger) *log.Logger {
	return log.New(&serverErrorLogWriter{Logger: logger}, "", 0)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
