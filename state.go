package forwarded

import (
	"net/http"
)

// RequestState is a framework-agnostic, mutable view of the request
// fields the resolver reads and rewrites. The resolver mutates it in
// place; ownership of the underlying request stays with the caller.
//
// Header must hold one slice entry per received header line. net/http's
// http.Header is used directly; other frameworks populate an equivalent
// map for the headers they carry.
type RequestState struct {
	// RemoteAddr is the connection's native remote endpoint, usually
	// "ip:port". Empty when the server has no native connection-IP
	// visibility.
	RemoteAddr string

	// Scheme is the request's current scheme ("http" or "https").
	Scheme string

	// Host is the request's current host.
	Host string

	// Header is the request header collection. It is mutated in place:
	// consumed forwarded entries are truncated and original markers are
	// set.
	Header http.Header
}

// stateFromRequest builds the resolver's view of r.
//
// Server-side requests carry no standalone scheme field, so the scheme is
// taken from r.URL when set and otherwise inferred from the TLS state.
func stateFromRequest(r *http.Request) RequestState {
	scheme := ""
	if r.URL != nil {
		scheme = r.URL.Scheme
	}
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}

	return RequestState{
		RemoteAddr: r.RemoteAddr,
		Scheme:     scheme,
		Host:       r.Host,
		Header:     r.Header,
	}
}
