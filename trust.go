package forwarded

import "net/netip"

// trustMatcher answers "is this address a trusted proxy" over the
// configured trusted addresses and networks, compiled into binary prefix
// tries at construction time. An uninitialized matcher means no trust
// restrictions are configured.
type trustMatcher struct {
	initialized bool
	ipv4Root    *prefixTrieNode
	ipv6Root    *prefixTrieNode
}

type prefixTrieNode struct {
	children [2]*prefixTrieNode
	terminal bool
}

// buildTrustMatcher compiles trusted proxy addresses and network prefixes
// into a matcher. Exact addresses are inserted as full-length prefixes.
func buildTrustMatcher(addrs []netip.Addr, prefixes []netip.Prefix) trustMatcher {
	matcher := trustMatcher{}
	if len(addrs) == 0 && len(prefixes) == 0 {
		return matcher
	}

	matcher.initialized = true

	for _, addr := range addrs {
		if !addr.IsValid() {
			continue
		}

		addr = normalizeIP(addr)
		matcher.insert(netip.PrefixFrom(addr, addr.BitLen()))
	}

	for _, prefix := range prefixes {
		matcher.insert(prefix)
	}

	return matcher
}

func (m *trustMatcher) insert(prefix netip.Prefix) {
	addr := prefix.Addr()
	if !addr.IsValid() {
		return
	}

	bits := prefix.Bits()
	if bits < 0 {
		return
	}
	if bits > addr.BitLen() {
		bits = addr.BitLen()
	}

	if addr.Is4() {
		if m.ipv4Root == nil {
			m.ipv4Root = &prefixTrieNode{}
		}

		bytes := addr.As4()
		insertPrefix(m.ipv4Root, bytes[:], bits)
		return
	}

	if m.ipv6Root == nil {
		m.ipv6Root = &prefixTrieNode{}
	}

	bytes := addr.As16()
	insertPrefix(m.ipv6Root, bytes[:], bits)
}

func insertPrefix(root *prefixTrieNode, addr []byte, bits int) {
	node := root
	if bits == 0 {
		node.terminal = true
		return
	}

	for bitIndex := 0; bitIndex < bits; bitIndex++ {
		bit := addrBit(addr, bitIndex)
		child := node.children[bit]
		if child == nil {
			child = &prefixTrieNode{}
			node.children[bit] = child
		}
		node = child
	}

	node.terminal = true
}

func (m trustMatcher) contains(ip netip.Addr) bool {
	if !m.initialized || !ip.IsValid() {
		return false
	}

	ip = normalizeIP(ip)

	if ip.Is4() {
		if m.ipv4Root == nil {
			return false
		}

		bytes := ip.As4()
		return trieContains(m.ipv4Root, bytes[:])
	}

	if m.ipv6Root == nil {
		return false
	}

	bytes := ip.As16()
	return trieContains(m.ipv6Root, bytes[:])
}

func trieContains(root *prefixTrieNode, addr []byte) bool {
	node := root
	if node == nil {
		return false
	}

	if node.terminal {
		return true
	}

	for bitIndex := 0; bitIndex < len(addr)*8; bitIndex++ {
		node = node.children[addrBit(addr, bitIndex)]
		if node == nil {
			return false
		}
		if node.terminal {
			return true
		}
	}

	return false
}

func addrBit(addr []byte, bitIndex int) int {
	byteIndex := bitIndex / 8
	shift := uint(7 - (bitIndex % 8))
	if ((addr[byteIndex] >> shift) & 1) == 1 {
		return 1
	}
	return 0
}
