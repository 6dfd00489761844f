package forwarded

import (
	"errors"
	"fmt"
	"net/netip"
)

var (
	// ErrHeaderAsymmetry indicates the enabled forwarded headers reported
	// unequal hop counts while header symmetry is required.
	ErrHeaderAsymmetry = errors.New("forwarded headers report unequal hop counts")

	// ErrInvalidForwardedValue indicates a hop's address, scheme, or host
	// value failed validation while header symmetry is required.
	ErrInvalidForwardedValue = errors.New("invalid forwarded header value")

	// ErrChainTooLong indicates a forwarded header chain exceeded the
	// configured maximum length.
	ErrChainTooLong = errors.New("forwarded header chain too long")

	// ErrMalformedForwarded indicates an RFC 7239 Forwarded header could
	// not be parsed.
	ErrMalformedForwarded = errors.New("malformed Forwarded header")
)

// ResolutionError is the base error for resolution failures, carrying the
// header that caused the failure.
type ResolutionError struct {
	Err    error
	Header string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Header, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// HeaderName returns the header the error originated from.
func (e *ResolutionError) HeaderName() string {
	return e.Header
}

// HeaderSymmetryError reports unequal hop counts across the enabled
// forwarded headers under RequireHeaderSymmetry.
type HeaderSymmetryError struct {
	ResolutionError
	ForCount   int
	ProtoCount int
	HostCount  int
}

func (e *HeaderSymmetryError) Error() string {
	return fmt.Sprintf("%s: %v (for=%d, proto=%d, host=%d)",
		e.Header, e.Err, e.ForCount, e.ProtoCount, e.HostCount)
}

// ValueParseError reports a hop value that failed to parse or validate
// under RequireHeaderSymmetry.
type ValueParseError struct {
	ResolutionError
	Value string
	Hop   int
}

func (e *ValueParseError) Error() string {
	return fmt.Sprintf("%s: %v (value=%q, hop=%d)", e.Header, e.Err, e.Value, e.Hop)
}

// ChainTooLongError reports a forwarded chain exceeding the configured
// maximum length.
type ChainTooLongError struct {
	ResolutionError
	ChainLength int
	MaxLength   int
}

func (e *ChainTooLongError) Error() string {
	return fmt.Sprintf("%s: %v (chain_length=%d, max_length=%d)",
		e.Header, e.Err, e.ChainLength, e.MaxLength)
}

// WalkDebugInfo captures trust-walk internals for diagnostics.
type WalkDebugInfo struct {
	// ForChain lists the claimed addresses in walk order, nearest hop
	// first.
	ForChain []string

	// EntryCount is the number of hop entries built from the headers,
	// after applying the forward limit.
	EntryCount int

	// EntriesConsumed is the number of hops the walk fully processed.
	EntriesConsumed int

	// StoppedBy names the event that ended the walk early, or is empty
	// when the walk ran to completion.
	StoppedBy string
}

// Resolution describes the outcome of applying the resolver to a request.
type Resolution struct {
	// Applied reports whether any request field was rewritten.
	Applied bool

	// EntriesConsumed is the number of forwarded hops consumed and
	// removed from the headers.
	EntriesConsumed int

	// RemoteAddr is the resolved trusted endpoint. It is the zero value
	// when the forwarded address did not change.
	RemoteAddr netip.AddrPort

	// Scheme is the resolved scheme, or empty when it did not change.
	Scheme string

	// Host is the resolved host, or empty when it did not change.
	Host string

	// DebugInfo is populated when debug info is enabled.
	DebugInfo *WalkDebugInfo
}

// ParseCIDRs parses CIDR strings into prefixes for trust configuration.
func ParseCIDRs(cidrs ...string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}
