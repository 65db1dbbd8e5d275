package middleware

import "net/http"

// NoStore marks every response as uncacheable. Mirror contents change on
// each mutation, so the UI shell must never serve them from an HTTP cache.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
