package forwarded

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Resolver rewrites a request's remote endpoint, scheme, and host from
// trusted forwarded headers.
//
// Resolver instances are safe for concurrent reuse.
type Resolver struct {
	config *Config
}

// New creates a Resolver from one or more Option builders.
func New(opts ...Option) (*Resolver, error) {
	cfg, err := configFromOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Resolver{config: cfg}, nil
}

// Apply resolves the trusted client identity for r and rewrites
// r.RemoteAddr, r.URL.Scheme, and r.Host in place, along with the
// forwarded and original-marker headers.
//
// When overrides are provided, they are merged left-to-right and applied
// only for this call. On error no request field is modified; the request
// keeps its unmodified, untrusted-by-default connection values.
func (rv *Resolver) Apply(r *http.Request, overrides ...OverrideOptions) (Resolution, error) {
	ctx := requestContext(r)
	if r == nil {
		r = &http.Request{}
	}
	if r.Header == nil {
		r.Header = http.Header{}
	}

	state := stateFromRequest(r)
	resolution, err := rv.ApplyState(ctx, &state, overrides...)
	if err != nil || !resolution.Applied {
		return resolution, err
	}

	r.RemoteAddr = state.RemoteAddr
	r.Host = state.Host
	if resolution.Scheme != "" && r.URL != nil {
		r.URL.Scheme = state.Scheme
	}

	return resolution, nil
}

// ApplyState resolves the trusted client identity for a framework-
// agnostic request state and mutates it in place.
//
// When overrides are provided, they are merged left-to-right and applied
// only for this call.
func (rv *Resolver) ApplyState(ctx context.Context, state *RequestState, overrides ...OverrideOptions) (Resolution, error) {
	activeResolver := rv

	if len(overrides) > 0 {
		var err error
		activeResolver, err = rv.prepareCall(overrides...)
		if err != nil {
			return Resolution{}, err
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	return activeResolver.resolve(ctx, state)
}

// ApplyWithOptions is a one-shot convenience helper.
//
// It constructs a temporary resolver from opts and applies it to r.
func ApplyWithOptions(r *http.Request, opts ...Option) (Resolution, error) {
	resolver, err := New(opts...)
	if err != nil {
		return Resolution{}, err
	}

	return resolver.Apply(r)
}

func (rv *Resolver) prepareCall(overrides ...OverrideOptions) (*Resolver, error) {
	effectiveConfig, err := rv.config.withOverrides(overrides...)
	if err != nil {
		return nil, fmt.Errorf("invalid override options: %w", err)
	}

	if effectiveConfig == rv.config {
		return rv, nil
	}

	return &Resolver{config: effectiveConfig}, nil
}

// resolve runs the parse, walk, apply pipeline against state.
func (rv *Resolver) resolve(ctx context.Context, state *RequestState) (Resolution, error) {
	c := rv.config

	chains, err := c.collectChains(state.Header)
	if err != nil {
		return Resolution{}, rv.handleParseAbort(ctx, state, err)
	}
	if chains.empty() {
		return Resolution{}, nil
	}

	entries, err := c.buildHopEntries(chains)
	if err != nil {
		return Resolution{}, rv.handleSymmetryAbort(ctx, state, err)
	}
	if len(entries) == 0 {
		return Resolution{}, nil
	}

	outcome, err := c.walk(entries, parseRemoteAddr(state.RemoteAddr))
	if err != nil {
		return Resolution{}, rv.handleWalkAbort(ctx, state, err)
	}

	if outcome.stoppedBy == securityEventUntrustedProxy {
		c.metrics.RecordSecurityEvent(securityEventUntrustedProxy)
		rv.logEvent(ctx, state, securityEventUntrustedProxy,
			"stopped forwarded walk at untrusted proxy",
			"entries_consumed", outcome.entriesConsumed,
		)
	}

	resolution := Resolution{
		Applied:         outcome.anyChanged(),
		EntriesConsumed: outcome.entriesConsumed,
	}

	if c.debugMode {
		resolution.DebugInfo = rv.buildDebugInfo(chains, entries, outcome)
	}

	if !resolution.Applied {
		return resolution, nil
	}

	rv.applyEffects(state, chains, outcome, &resolution)
	return resolution, nil
}

// applyEffects rewrites state from the walk outcome: per changed feature
// it preserves the pre-rewrite value under an original marker, truncates
// the consumed header entries from the nearest-hop end, and overwrites
// the request attribute. Features apply independently.
func (rv *Resolver) applyEffects(state *RequestState, chains headerChains, outcome walkOutcome, resolution *Resolution) {
	c := rv.config
	consumed := outcome.entriesConsumed

	if c.useForwardedRFC {
		// All three features share the combined header; truncate it once.
		truncateHeader(state.Header, forwardedHeaderName, chains.rawForwarded, consumed)
	}

	if outcome.forChanged {
		if seed := parseRemoteAddr(state.RemoteAddr); seed.IsValid() {
			state.Header.Set(c.originalForHeader, seed.String())
		}
		if !c.useForwardedRFC {
			truncateHeader(state.Header, c.forwardedForHeader, chains.forValues, consumed)
		}

		state.RemoteAddr = outcome.acc.remote.String()
		resolution.RemoteAddr = outcome.acc.remote
		c.metrics.RecordResolutionApplied(featureFor)
	}

	if outcome.protoChanged {
		state.Header.Set(c.originalProtoHeader, state.Scheme)
		if !c.useForwardedRFC {
			truncateHeader(state.Header, c.forwardedProtoHeader, chains.protoValues, consumed)
		}

		state.Scheme = outcome.acc.scheme
		resolution.Scheme = outcome.acc.scheme
		c.metrics.RecordResolutionApplied(featureProto)
	}

	if outcome.hostChanged {
		state.Header.Set(c.originalHostHeader, state.Host)
		if !c.useForwardedRFC {
			truncateHeader(state.Header, c.forwardedHostHeader, chains.hostValues, consumed)
		}

		state.Host = outcome.acc.host
		resolution.Host = outcome.acc.host
		c.metrics.RecordResolutionApplied(featureHost)
	}
}

// truncateHeader removes the consumed entries from the nearest-hop (tail)
// end of the header's wire-order value list. When every entry was
// consumed the header is removed entirely rather than left empty.
func truncateHeader(header http.Header, name string, values []string, consumed int) {
	if consumed >= len(values) {
		header.Del(name)
		return
	}

	remaining := values[:len(values)-consumed]
	header.Set(name, strings.Join(remaining, ", "))
}

func (rv *Resolver) buildDebugInfo(chains headerChains, entries []hopEntry, outcome walkOutcome) *WalkDebugInfo {
	forChain := make([]string, 0, len(entries))
	for _, entry := range entries {
		forChain = append(forChain, entry.addrText)
	}

	return &WalkDebugInfo{
		ForChain:        forChain,
		EntryCount:      len(entries),
		EntriesConsumed: outcome.entriesConsumed,
		StoppedBy:       outcome.stoppedBy,
	}
}

func (rv *Resolver) handleParseAbort(ctx context.Context, state *RequestState, err error) error {
	switch {
	case errors.Is(err, ErrChainTooLong):
		rv.recordAbort(ctx, state, securityEventChainTooLong,
			"forwarded header chain exceeds maximum length", err)
	case errors.Is(err, ErrMalformedForwarded):
		rv.recordAbort(ctx, state, securityEventMalformedForwarded,
			"Forwarded header could not be parsed", err)
	default:
		rv.recordAbort(ctx, state, securityEventInvalidValue,
			"forwarded headers could not be parsed", err)
	}

	return err
}

func (rv *Resolver) handleSymmetryAbort(ctx context.Context, state *RequestState, err error) error {
	var symmetryErr *HeaderSymmetryError
	if errors.As(err, &symmetryErr) {
		rv.recordAbort(ctx, state, securityEventHeaderAsymmetry,
			"forwarded headers report unequal hop counts", err,
			"for_count", symmetryErr.ForCount,
			"proto_count", symmetryErr.ProtoCount,
			"host_count", symmetryErr.HostCount,
		)
		return err
	}

	rv.recordAbort(ctx, state, securityEventHeaderAsymmetry,
		"forwarded headers report unequal hop counts", err)
	return err
}

func (rv *Resolver) handleWalkAbort(ctx context.Context, state *RequestState, err error) error {
	var parseErr *ValueParseError
	if errors.As(err, &parseErr) {
		rv.recordAbort(ctx, state, securityEventInvalidValue,
			"forwarded header value failed validation", err,
			"header", parseErr.Header,
			"value", parseErr.Value,
			"hop", parseErr.Hop,
		)
		return err
	}

	rv.recordAbort(ctx, state, securityEventInvalidValue,
		"forwarded header value failed validation", err)
	return err
}

func (rv *Resolver) recordAbort(ctx context.Context, state *RequestState, event, msg string, err error, attrs ...any) {
	rv.config.metrics.RecordSecurityEvent(event)
	rv.config.metrics.RecordResolutionAborted(event)

	attrs = append(attrs, "error", err.Error())
	rv.logEvent(ctx, state, event, msg, attrs...)
}

func (rv *Resolver) logEvent(ctx context.Context, state *RequestState, event, msg string, attrs ...any) {
	baseAttrs := []any{
		"event", event,
		"remote_addr", state.RemoteAddr,
	}

	baseAttrs = append(baseAttrs, attrs...)
	rv.config.logger.DebugContext(ctx, msg, baseAttrs...)
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}

	return r.Context()
}
