package forwarded

// Character-class tables for forwarded scheme and host validation. They
// are built once at package initialization and never mutated, so lookups
// need no synchronization.
var (
	schemeChars = buildSchemeTable()
	hostChars   = buildHostTable()
)

// buildSchemeTable marks the characters allowed in a URI scheme per
// RFC 3986 section 3.1: ALPHA / DIGIT / "+" / "-" / ".".
func buildSchemeTable() [256]bool {
	var t [256]bool
	for c := 'a'; c <= 'z'; c++ {
		t[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		t[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = true
	}
	t['+'] = true
	t['-'] = true
	t['.'] = true
	return t
}

// buildHostTable marks the characters allowed in a registered host name.
// This is the RFC 3986 reg-name set minus percent-encoding and the
// sub-delims "* + , ; =", matching the stricter subset accepted by common
// HTTP servers.
func buildHostTable() [256]bool {
	var t [256]bool
	for c := 'a'; c <= 'z'; c++ {
		t[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		t[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = true
	}
	for _, c := range []byte{'!', '$', '&', '\'', '(', ')', '-', '.', '_', '~'} {
		t[c] = true
	}
	return t
}

func isSchemeChar(c byte) bool {
	return schemeChars[c]
}

func isHostChar(c byte) bool {
	return hostChars[c]
}

// validScheme reports whether s is a non-empty string of scheme
// characters.
func validScheme(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !isSchemeChar(s[i]) {
			return false
		}
	}

	return true
}

// validHost reports whether s is a well-formed host with an optional port
// suffix. IPv6 literals must be bracketed. The empty string is accepted;
// callers gate on emptiness.
func validHost(s string) bool {
	if s == "" {
		return true
	}

	if s[0] == '[' {
		return validBracketedIPv6(s)
	}

	if s[0] == ':' {
		// Port with no host.
		return false
	}

	i := 0
	for i < len(s) && isHostChar(s[i]) {
		i++
	}

	return validPortSuffix(s[i:])
}

// validBracketedIPv6 validates an IPv6 literal of the form "[...]" with an
// optional port suffix. The shortest accepted literal is "[::1]".
func validBracketedIPv6(s string) bool {
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == ']':
			if i < 4 {
				// Too short to be a valid IPv6 literal.
				return false
			}
			return validPortSuffix(s[i+1:])
		case isHexDigit(c), c == ':', c == '.':
			// Keep scanning.
		default:
			return false
		}
	}

	// No closing bracket.
	return false
}

// validPortSuffix reports whether s is empty or a ':' followed by one or
// more ASCII digits.
func validPortSuffix(s string) bool {
	if s == "" {
		return true
	}

	if s[0] != ':' || len(s) == 1 {
		return false
	}

	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

func isHexDigit(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	default:
		return false
	}
}
