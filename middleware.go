package forwarded

import "net/http"

// Handler wraps next with forwarded-header resolution.
//
// The resolver is applied once per request before next runs. Failures
// never block the request: an aborted resolution leaves the request with
// its unmodified connection values, which is always safe, and the
// outcome has already been logged and recorded by the resolver.
func (rv *Resolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = rv.Apply(r)
		next.ServeHTTP(w, r)
	})
}
