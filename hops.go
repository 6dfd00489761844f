package forwarded

import (
	"net/http"
	"strings"
)

// typicalChainCapacity is the initial capacity used when splitting header
// chains.
//
// Most deployments have short chains (around 1-5 hops). Preallocating 8
// avoids reallocations in common cases without meaningful memory overhead.
const typicalChainCapacity = 8

// hopEntry is one forwarding hop, indexed nearest to farthest. Absent
// values are empty strings.
type hopEntry struct {
	addrText string
	scheme   string
	host     string
}

// headerChains holds the raw per-header hop values in wire order, plus
// the raw Forwarded elements when RFC 7239 mode is active.
type headerChains struct {
	forValues   []string
	protoValues []string
	hostValues  []string

	rawForwarded []string
}

func (h headerChains) empty() bool {
	return len(h.forValues) == 0 && len(h.protoValues) == 0 && len(h.hostValues) == 0
}

// splitHeaderValues splits comma-separated header values into trimmed
// chain parts while enforcing maxChainLength.
func (c *Config) splitHeaderValues(values []string, headerName string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, typicalChainCapacity)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				var err error
				parts, err = c.appendChainPart(parts, trimmed, headerName)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	return parts, nil
}

// appendChainPart appends one chain part while enforcing maxChainLength.
func (c *Config) appendChainPart(parts []string, part, headerName string) ([]string, error) {
	if len(parts) >= c.maxChainLength {
		return nil, &ChainTooLongError{
			ResolutionError: ResolutionError{
				Err:    ErrChainTooLong,
				Header: headerName,
			},
			ChainLength: len(parts) + 1,
			MaxLength:   c.maxChainLength,
		}
	}

	return append(parts, part), nil
}

// collectChains reads the enabled forwarded headers into wire-order
// chains. In RFC 7239 mode the combined Forwarded header feeds all three
// features.
func (c *Config) collectChains(header http.Header) (headerChains, error) {
	if header == nil {
		return headerChains{}, nil
	}

	if c.useForwardedRFC {
		return c.collectForwardedChains(header.Values(forwardedHeaderName))
	}

	var chains headerChains
	var err error

	if c.features.Has(ForwardedFor) {
		chains.forValues, err = c.splitHeaderValues(header.Values(c.forwardedForHeader), c.forwardedForHeader)
		if err != nil {
			return headerChains{}, err
		}
	}
	if c.features.Has(ForwardedProto) {
		chains.protoValues, err = c.splitHeaderValues(header.Values(c.forwardedProtoHeader), c.forwardedProtoHeader)
		if err != nil {
			return headerChains{}, err
		}
	}
	if c.features.Has(ForwardedHost) {
		chains.hostValues, err = c.splitHeaderValues(header.Values(c.forwardedHostHeader), c.forwardedHostHeader)
		if err != nil {
			return headerChains{}, err
		}
	}

	return chains, nil
}

// checkSymmetry verifies that all enabled headers that are present report
// equal hop counts. Headers absent from the request do not participate:
// their per-hop values fail later under the strict per-value rule instead.
func (c *Config) checkSymmetry(chains headerChains) error {
	counts := make([]int, 0, 3)
	if c.features.Has(ForwardedFor) && len(chains.forValues) > 0 {
		counts = append(counts, len(chains.forValues))
	}
	if c.features.Has(ForwardedProto) && len(chains.protoValues) > 0 {
		counts = append(counts, len(chains.protoValues))
	}
	if c.features.Has(ForwardedHost) && len(chains.hostValues) > 0 {
		counts = append(counts, len(chains.hostValues))
	}

	for _, count := range counts {
		if count != counts[0] {
			return &HeaderSymmetryError{
				ResolutionError: ResolutionError{
					Err:    ErrHeaderAsymmetry,
					Header: c.forwardedForHeader,
				},
				ForCount:   len(chains.forValues),
				ProtoCount: len(chains.protoValues),
				HostCount:  len(chains.hostValues),
			}
		}
	}

	return nil
}

// buildHopEntries reverses the wire-order chains into nearest-to-farthest
// hop entries. The right-most entry in a forwarded header is the value
// added by the nearest proxy, so entry i takes the i-th value counting
// from the right of each enabled header.
func (c *Config) buildHopEntries(chains headerChains) ([]hopEntry, error) {
	if c.requireSymmetry && !c.useForwardedRFC {
		if err := c.checkSymmetry(chains); err != nil {
			return nil, err
		}
	}

	entryCount := max(len(chains.forValues), len(chains.protoValues), len(chains.hostValues))
	if c.forwardLimit > 0 && entryCount > c.forwardLimit {
		entryCount = c.forwardLimit
	}

	if entryCount == 0 {
		return nil, nil
	}

	entries := make([]hopEntry, entryCount)
	for i := range entries {
		if n := len(chains.forValues); i < n {
			entries[i].addrText = chains.forValues[n-1-i]
		}
		if n := len(chains.protoValues); i < n {
			entries[i].scheme = chains.protoValues[n-1-i]
		}
		if n := len(chains.hostValues); i < n {
			entries[i].host = chains.hostValues[n-1-i]
		}
	}

	return entries, nil
}
