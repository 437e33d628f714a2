package server

import "net/http"

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// route chains middlewares, the first one being the outermost
func route(middlewares ...Middleware) Middleware {
	return func(handler http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// handleGet serves GET requests of exact path, passing others to next
func handleGet(path string, handler http.HandlerFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != path {
				next.ServeHTTP(w, r)
				return
			}
			handler(w, r)
		})
	}
}
