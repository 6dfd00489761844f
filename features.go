package forwarded

import "strings"

// Features selects which forwarded headers the resolver honors.
//
// Values combine with bitwise OR, for example
// ForwardedFor | ForwardedProto | ForwardedHost.
type Features uint8

const (
	// ForwardedFor honors the forwarded client address header
	// (X-Forwarded-For by default).
	ForwardedFor Features = 1 << iota
	// ForwardedProto honors the forwarded scheme header
	// (X-Forwarded-Proto by default).
	ForwardedProto
	// ForwardedHost honors the forwarded host header
	// (X-Forwarded-Host by default).
	ForwardedHost
)

// allFeatures is the full supported feature mask.
const allFeatures = ForwardedFor | ForwardedProto | ForwardedHost

// Feature labels used in log attributes and metrics.
const (
	featureFor   = "for"
	featureProto = "proto"
	featureHost  = "host"
)

// Has reports whether every bit in feature is enabled in f.
func (f Features) Has(feature Features) bool {
	return f&feature == feature
}

// String returns the canonical text representation of f.
func (f Features) String() string {
	if f == 0 {
		return "none"
	}

	parts := make([]string, 0, 3)
	if f.Has(ForwardedFor) {
		parts = append(parts, featureFor)
	}
	if f.Has(ForwardedProto) {
		parts = append(parts, featureProto)
	}
	if f.Has(ForwardedHost) {
		parts = append(parts, featureHost)
	}

	if f&^allFeatures != 0 {
		parts = append(parts, "unknown")
	}

	return strings.Join(parts, "|")
}

// valid reports whether f enables at least one supported feature and no
// unsupported bits.
func (f Features) valid() bool {
	return f != 0 && f&^allFeatures == 0
}
