package forwarded

import (
	"net/netip"
	"strings"
)

// parseForwardedAddr parses a hop's claimed address text into an endpoint.
// It handles:
//   - Leading/trailing whitespace: "  192.168.1.1  "
//   - Port suffixes: "192.168.1.1:8080" or "[::1]:8080"
//   - Quoted values: "\"192.168.1.1\"" or "'192.168.1.1'"
//   - IPv6 brackets without a port: "[::1]"
//
// Addresses without a port resolve to port 0. Obfuscated RFC 7239
// identifiers ("unknown", "_hidden") and host names are not IP literals
// and fail to parse.
//
// The second return value reports whether parsing succeeded.
func parseForwardedAddr(s string) (netip.AddrPort, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.AddrPort{}, false
	}

	s = trimMatchedChar(s, '"')
	s = trimMatchedChar(s, '\'')
	if s == "" {
		return netip.AddrPort{}, false
	}

	if endpoint, err := netip.ParseAddrPort(s); err == nil {
		return normalizeAddrPort(endpoint), true
	}

	s = trimMatchedPair(s, '[', ']')

	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.AddrPort{}, false
	}

	return netip.AddrPortFrom(normalizeIP(ip), 0), true
}

// parseRemoteAddr parses a connection's native remote endpoint.
//
// netip.ParseAddrPort is preferred; a bare address without a port is
// accepted as a fallback for servers that expose only the peer IP. An
// invalid endpoint yields the zero AddrPort (IsValid() == false).
func parseRemoteAddr(s string) netip.AddrPort {
	if s == "" {
		return netip.AddrPort{}
	}

	if endpoint, err := netip.ParseAddrPort(s); err == nil {
		return normalizeAddrPort(endpoint)
	}

	if ip, err := netip.ParseAddr(trimMatchedPair(s, '[', ']')); err == nil {
		return netip.AddrPortFrom(normalizeIP(ip), 0)
	}

	return netip.AddrPort{}
}

func normalizeAddrPort(endpoint netip.AddrPort) netip.AddrPort {
	addr := normalizeIP(endpoint.Addr())
	if addr == endpoint.Addr() {
		return endpoint
	}
	return netip.AddrPortFrom(addr, endpoint.Port())
}

func normalizeIP(ip netip.Addr) netip.Addr {
	if ip.Is4In6() {
		return ip.Unmap()
	}
	return ip
}

// trimMatchedPair removes one leading and trailing delimiter when both match.
func trimMatchedPair(s string, start, end byte) string {
	if len(s) < 2 {
		return s
	}

	if s[0] != start || s[len(s)-1] != end {
		return s
	}

	return s[1 : len(s)-1]
}

// trimMatchedChar removes one matching leading and trailing character.
func trimMatchedChar(s string, ch byte) string {
	return trimMatchedPair(s, ch, ch)
}
