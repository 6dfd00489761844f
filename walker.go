package forwarded

import (
	"net/netip"
)

// trustAccumulator carries the currently-trusted values across the walk.
// It is seeded from the connection's native endpoint and discarded at the
// end of the request.
type trustAccumulator struct {
	remote     netip.AddrPort
	hasRemote  bool
	remoteText string
	scheme     string
	host       string
}

// walkOutcome is the walker's result handed to the effect applier.
type walkOutcome struct {
	acc             trustAccumulator
	entriesConsumed int

	forChanged   bool
	protoChanged bool
	hostChanged  bool

	// stoppedBy names the event that ended the walk early, empty when
	// the walk ran to completion.
	stoppedBy string
}

func (o walkOutcome) anyChanged() bool {
	return o.forChanged || o.protoChanged || o.hostChanged
}

// walk consumes hop entries nearest to farthest, validating each hop
// against the trust policy and accumulating the most-forward trusted
// values.
//
// The trust gate applies only to the address feature and only when
// trusted proxies or networks are configured. The connection's own
// endpoint is gated first; a server with no native endpoint skips that
// initial gate, the one case where an unauthenticated first hop is
// accepted. Each hop's claimed address must itself match the trust
// policy before it replaces the accumulator value, so an untrusted entry
// is never adopted: the walk stops and leaves it, and everything farther,
// unconsumed.
//
// Failures are independent per feature unless requireSymmetry is set, in
// which case any unparsable or missing value aborts the whole walk with
// no side effects.
func (c *Config) walk(entries []hopEntry, seed netip.AddrPort) (walkOutcome, error) {
	checkFor := c.features.Has(ForwardedFor)
	checkProto := c.features.Has(ForwardedProto)
	checkHost := c.features.Has(ForwardedHost)
	gate := checkFor && c.hasTrustRestrictions()

	out := walkOutcome{
		acc: trustAccumulator{
			remote:    seed,
			hasRemote: seed.IsValid(),
		},
	}

	for i, entry := range entries {
		if gate && out.acc.hasRemote && !c.trustMatch.contains(out.acc.remote.Addr()) {
			out.stoppedBy = securityEventUntrustedProxy
			return out, nil
		}

		if checkFor {
			stopped, err := c.resolveHopAddr(&out, entry, i)
			if err != nil {
				return walkOutcome{}, err
			}
			if stopped {
				out.stoppedBy = securityEventUntrustedProxy
				return out, nil
			}
		}

		if checkProto {
			if err := c.resolveHopScheme(&out, entry, i); err != nil {
				return walkOutcome{}, err
			}
		}

		if checkHost {
			if err := c.resolveHopHost(&out, entry, i); err != nil {
				return walkOutcome{}, err
			}
		}

		out.entriesConsumed = i + 1
	}

	return out, nil
}

// resolveHopAddr applies one hop's claimed address to the accumulator.
// It reports stopped=true when the claimed address is outside the trust
// policy; the hop is then not consumed.
func (c *Config) resolveHopAddr(out *walkOutcome, entry hopEntry, hop int) (stopped bool, err error) {
	if entry.addrText == "" {
		if c.requireSymmetry {
			return false, c.valueParseError(c.forHeaderName(), entry.addrText, hop)
		}
		return false, nil
	}

	endpoint, ok := parseForwardedAddr(entry.addrText)
	if !ok {
		if c.requireSymmetry {
			return false, c.valueParseError(c.forHeaderName(), entry.addrText, hop)
		}
		// The address feature does not advance for this hop; other
		// features still do.
		return false, nil
	}

	if c.hasTrustRestrictions() && !c.trustMatch.contains(endpoint.Addr()) {
		return true, nil
	}

	out.acc.remote = endpoint
	out.acc.hasRemote = true
	out.acc.remoteText = entry.addrText
	out.forChanged = true
	return false, nil
}

func (c *Config) resolveHopScheme(out *walkOutcome, entry hopEntry, hop int) error {
	if entry.scheme == "" {
		if c.requireSymmetry {
			return c.valueParseError(c.protoHeaderName(), entry.scheme, hop)
		}
		return nil
	}

	if !c.relaxedValidation && !validScheme(entry.scheme) {
		if c.requireSymmetry {
			return c.valueParseError(c.protoHeaderName(), entry.scheme, hop)
		}
		return nil
	}

	out.acc.scheme = entry.scheme
	out.protoChanged = true
	return nil
}

func (c *Config) resolveHopHost(out *walkOutcome, entry hopEntry, hop int) error {
	if entry.host == "" {
		if c.requireSymmetry {
			return c.valueParseError(c.hostHeaderName(), entry.host, hop)
		}
		return nil
	}

	if !c.relaxedValidation && !validHost(entry.host) {
		if c.requireSymmetry {
			return c.valueParseError(c.hostHeaderName(), entry.host, hop)
		}
		return nil
	}

	out.acc.host = entry.host
	out.hostChanged = true
	return nil
}

// Header names reported in errors and logs. In RFC 7239 mode all three
// features come from the combined Forwarded header.
func (c *Config) forHeaderName() string {
	if c.useForwardedRFC {
		return forwardedHeaderName
	}
	return c.forwardedForHeader
}

func (c *Config) protoHeaderName() string {
	if c.useForwardedRFC {
		return forwardedHeaderName
	}
	return c.forwardedProtoHeader
}

func (c *Config) hostHeaderName() string {
	if c.useForwardedRFC {
		return forwardedHeaderName
	}
	return c.forwardedHostHeader
}

func (c *Config) valueParseError(headerName, value string, hop int) error {
	return &ValueParseError{
		ResolutionError: ResolutionError{
			Err:    ErrInvalidForwardedValue,
			Header: headerName,
		},
		Value: value,
		Hop:   hop,
	}
}
