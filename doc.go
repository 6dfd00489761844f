// Package forwarded resolves the true client identity of HTTP requests
// that passed through trusted reverse proxies, rewriting the request's
// remote endpoint, scheme, and host from X-Forwarded-For,
// X-Forwarded-Proto, and X-Forwarded-Host (or the RFC 7239 Forwarded
// header).
//
// # Features
//
//   - Security-first trust walk: header hops are validated nearest to
//     farthest against configured trusted proxies and networks, so an
//     attacker-controlled header can never spoof an address the policy
//     does not trust
//   - Per-feature resolution for address, scheme, and host, applied
//     independently or all-or-nothing under strict header symmetry
//   - Pre-rewrite values preserved under X-Original-For,
//     X-Original-Proto, and X-Original-Host; consumed hops removed from
//     the forwarded headers
//   - Safe defaults: only loopback proxies are trusted until configured
//     otherwise
//   - Deployment presets for common topologies
//   - Optional observability with context-aware logging and pluggable
//     metrics
//   - Type-safe using modern Go netip.AddrPort
//
// # Basic Usage
//
// Behind a reverse proxy on the same host:
//
//	resolver, err := forwarded.New(forwarded.PresetLoopbackReverseProxy())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mux := http.NewServeMux()
//	// ... register handlers ...
//	srv := &http.Server{Handler: resolver.Handler(mux)}
//
// Handlers then observe the resolved client identity directly on the
// request: r.RemoteAddr holds the trusted forwarded endpoint, r.Host the
// forwarded host.
//
// # Trust Policy
//
// The walk consumes one forwarded hop per trusted proxy, nearest first,
// and stops at the first address outside the policy:
//
//	cidrs, _ := forwarded.ParseCIDRs("10.0.0.0/8", "172.16.0.0/12")
//	resolver, err := forwarded.New(
//	    forwarded.WithFeatures(forwarded.ForwardedFor|forwarded.ForwardedProto),
//	    forwarded.TrustProxyPrefixes(cidrs...),
//	    forwarded.ForwardLimit(2),
//	)
//
// An empty trust policy (via TrustAllProxies) trusts every hop up to the
// forward limit; only use it when an outer layer already sanitizes the
// forwarded headers.
//
// # Strict Header Symmetry
//
// With RequireHeaderSymmetry, all enabled headers must report the same
// number of hops and every hop value must validate, or the resolution
// aborts with no side effects:
//
//	resolver, err := forwarded.New(
//	    forwarded.WithFeatures(forwarded.ForwardedFor|forwarded.ForwardedProto),
//	    forwarded.TrustPrivateProxyRanges(),
//	    forwarded.RequireHeaderSymmetry(true),
//	)
//
// The worst-case outcome of any resolution is "no rewrite occurs": the
// request proceeds with its unmodified, untrusted-by-default connection
// values.
//
// # Frameworks Other Than net/http
//
// ApplyState operates on a RequestState value, so servers that do not
// expose *http.Request can still resolve forwarded headers:
//
//	state := forwarded.RequestState{
//	    RemoteAddr: peer,
//	    Scheme:     "http",
//	    Host:       host,
//	    Header:     headers,
//	}
//	resolution, err := resolver.ApplyState(ctx, &state)
//
// # Observability
//
// WithLogger accepts any implementation of the one-method Logger
// interface; *slog.Logger satisfies it directly. Metrics are pluggable
// the same way; a Prometheus-backed implementation lives in the
// prometheus subpackage.
package forwarded
