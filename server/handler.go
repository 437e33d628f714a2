package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cshum/wandkit"
	"github.com/felixge/httpsnoop"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader response header carrying the request id of the access log
const RequestIDHeader = "X-Request-Id"

func (s *Server) panicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = errors.New(fmt.Sprint(rec))
				}
				if errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				if s.SentryDsn != "" {
					sentry.CurrentHub().Recover(rec)
				}
				s.Logger.Error("panic", zap.Error(err))
				resJSON(w, http.StatusInternalServerError, wandkit.NewError(err.Error(), http.StatusInternalServerError))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLogHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isNoopRequest(r) {
			next.ServeHTTP(w, r)
			return
		}
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.Logger.Info("access",
			zap.String("id", id),
			zap.Int("status", m.Code),
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.String("ip", RealIP(r)),
			zap.String("user_agent", r.UserAgent()),
			zap.Int64("written", m.Written),
			zap.Duration("took", m.Duration),
		)
	})
}

func stripQueryStringHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			u := *r.URL
			u.RawQuery = ""
			http.Redirect(w, r, u.String(), http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isNoopRequest(r *http.Request) bool {
	return r.Method == http.MethodGet &&
		(r.URL.Path == "/healthcheck" || r.URL.Path == "/favicon.ico")
}

func isNoisyServerError(msg string) bool {
	return strings.HasPrefix(msg, "http: TLS handshake error") ||
		strings.HasPrefix(msg, "http: URL query contains semicolon")
}

func handleOk(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	resJSON(w, http.StatusOK, GetHealthStats())
}

func resJSON(w http.ResponseWriter, status int, v any) {
	buf, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}
