package forwarded

import (
	"fmt"
	"net/netip"
)

const (
	// DefaultMaxChainLength is the maximum number of hops allowed in a
	// forwarded header chain. This prevents DoS attacks using extremely
	// long header values that could cause excessive memory allocation or
	// CPU usage during parsing. 100 accommodates complex multi-region,
	// multi-CDN setups while still providing protection. Typical proxy
	// chains rarely exceed 5-10 entries.
	DefaultMaxChainLength = 100

	// Default forwarded header names.
	DefaultForwardedForHeader   = "X-Forwarded-For"
	DefaultForwardedProtoHeader = "X-Forwarded-Proto"
	DefaultForwardedHostHeader  = "X-Forwarded-Host"

	// Default headers preserving pre-rewrite values.
	DefaultOriginalForHeader   = "X-Original-For"
	DefaultOriginalProtoHeader = "X-Original-Proto"
	DefaultOriginalHostHeader  = "X-Original-Host"

	// forwardedHeaderName is the RFC 7239 combined header consumed when
	// UseForwardedHeader is enabled.
	forwardedHeaderName = "Forwarded"
)

// Option configures a Resolver.
//
// Construct options using package-provided option builder functions.
type Option func(*Config) error

// SetValue represents an optional per-call override value.
//
// Use Set(v) to mark an override as explicitly provided.
type SetValue[T any] struct {
	v   T
	set bool
}

// Set marks a value as explicitly set for OverrideOptions.
func Set[T any](value T) SetValue[T] {
	return SetValue[T]{v: value, set: true}
}

// isSet reports whether a value was explicitly provided.
func (s SetValue[T]) isSet() bool {
	return s.set
}

// value returns the stored value.
func (s SetValue[T]) value() T {
	return s.v
}

// OverrideOptions applies per-call policy overrides.
//
// Only policy-related fields are overrideable. Logger and Metrics remain
// fixed at resolver construction time. Trusted proxies and networks
// replace, rather than extend, the configured values when set.
type OverrideOptions struct {
	Features        SetValue[Features]
	ForwardLimit    SetValue[int]
	TrustedProxies  SetValue[[]netip.Addr]
	TrustedNetworks SetValue[[]netip.Prefix]

	RequireHeaderSymmetry   SetValue[bool]
	RelaxedHeaderValidation SetValue[bool]
	MaxChainLength          SetValue[int]
	DebugInfo               SetValue[bool]
}

func (o OverrideOptions) hasSetValues() bool {
	return o.Features.isSet() ||
		o.ForwardLimit.isSet() ||
		o.TrustedProxies.isSet() ||
		o.TrustedNetworks.isSet() ||
		o.RequireHeaderSymmetry.isSet() ||
		o.RelaxedHeaderValidation.isSet() ||
		o.MaxChainLength.isSet() ||
		o.DebugInfo.isSet()
}

// Config holds resolver configuration state.
//
// It is mutated by Option functions during construction and override
// merging. All fields are unexported; use option builders to configure.
type Config struct {
	features     Features
	forwardLimit int

	trustedProxies  []netip.Addr
	trustedNetworks []netip.Prefix
	trustMatch      trustMatcher

	requireSymmetry   bool
	relaxedValidation bool
	maxChainLength    int
	useForwardedRFC   bool
	debugMode         bool

	forwardedForHeader   string
	forwardedProtoHeader string
	forwardedHostHeader  string
	originalForHeader    string
	originalProtoHeader  string
	originalHostHeader   string

	logger  Logger
	metrics Metrics

	metricsFactory    func() (Metrics, error)
	useMetricsFactory bool
}

var (
	// loopbackProxyCIDRs contains loopback networks, trusted by default
	// for apps behind a reverse proxy running on the same host.
	loopbackProxyCIDRs = []netip.Prefix{
		mustParsePrefix("127.0.0.0/8"),
		mustParsePrefix("::1/128"),
	}

	// privateProxyCIDRs contains private-network ranges commonly used for
	// trusted upstream proxies in VM and internal network deployments.
	privateProxyCIDRs = []netip.Prefix{
		mustParsePrefix("10.0.0.0/8"),
		mustParsePrefix("172.16.0.0/12"),
		mustParsePrefix("192.168.0.0/16"),
		mustParsePrefix("fc00::/7"),
	}
)

func mustParsePrefix(cidr string) netip.Prefix {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in CIDR %q: %v", cidr, err))
	}
	return prefix
}

func clonePrefixes(prefixes []netip.Prefix) []netip.Prefix {
	if prefixes == nil {
		return nil
	}
	cloned := make([]netip.Prefix, len(prefixes))
	copy(cloned, prefixes)
	return cloned
}

func cloneAddrs(addrs []netip.Addr) []netip.Addr {
	if addrs == nil {
		return nil
	}
	cloned := make([]netip.Addr, len(addrs))
	copy(cloned, addrs)
	return cloned
}

func normalizeTrustedNetworks(prefixes []netip.Prefix) ([]netip.Prefix, error) {
	normalized := make([]netip.Prefix, 0, len(prefixes))
	for _, prefix := range prefixes {
		if !prefix.IsValid() {
			return nil, fmt.Errorf("invalid trusted network %q", prefix)
		}
		normalized = append(normalized, prefix.Masked())
	}

	return normalized, nil
}

func mergeUniquePrefixes(existing []netip.Prefix, additions ...netip.Prefix) []netip.Prefix {
	if len(existing) == 0 && len(additions) == 0 {
		return nil
	}

	merged := make([]netip.Prefix, 0, len(existing)+len(additions))
	seen := make(map[netip.Prefix]struct{}, len(existing)+len(additions))

	for _, prefix := range existing {
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		merged = append(merged, prefix)
	}

	for _, prefix := range additions {
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		merged = append(merged, prefix)
	}

	return merged
}

func mergeUniqueAddrs(existing []netip.Addr, additions ...netip.Addr) []netip.Addr {
	if len(existing) == 0 && len(additions) == 0 {
		return nil
	}

	merged := make([]netip.Addr, 0, len(existing)+len(additions))
	seen := make(map[netip.Addr]struct{}, len(existing)+len(additions))

	for _, addr := range existing {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		merged = append(merged, addr)
	}

	for _, addr := range additions {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		merged = append(merged, addr)
	}

	return merged
}

func appendTrustedNetworks(c *Config, prefixes ...netip.Prefix) {
	if len(prefixes) == 0 {
		return
	}

	c.trustedNetworks = mergeUniquePrefixes(c.trustedNetworks, prefixes...)
}

// hasTrustRestrictions reports whether any trusted proxies or networks are
// configured. An empty trust policy means every proxy is trusted.
func (c *Config) hasTrustRestrictions() bool {
	return len(c.trustedProxies) > 0 || len(c.trustedNetworks) > 0
}

func defaultConfig() *Config {
	return &Config{
		features:       ForwardedFor | ForwardedProto,
		forwardLimit:   0,
		maxChainLength: DefaultMaxChainLength,

		// Trust only same-host proxies until configured otherwise. Use
		// TrustAllProxies to clear the trust policy entirely.
		trustedNetworks: clonePrefixes(loopbackProxyCIDRs),

		forwardedForHeader:   DefaultForwardedForHeader,
		forwardedProtoHeader: DefaultForwardedProtoHeader,
		forwardedHostHeader:  DefaultForwardedHostHeader,
		originalForHeader:    DefaultOriginalForHeader,
		originalProtoHeader:  DefaultOriginalProtoHeader,
		originalHostHeader:   DefaultOriginalHostHeader,

		logger:  noopLogger{},
		metrics: noopMetrics{},
	}
}

func applyOptions(c *Config, opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}

	return nil
}

func configFromOptions(opts ...Option) (*Config, error) {
	cfg := defaultConfig()

	if err := applyOptions(cfg, opts...); err != nil {
		return nil, err
	}

	cfg.trustMatch = buildTrustMatcher(cfg.trustedProxies, cfg.trustedNetworks)

	if cfg.useMetricsFactory {
		if cfg.metricsFactory == nil {
			return nil, fmt.Errorf("metrics factory cannot be nil")
		}
	}

	validationConfig := cfg
	if cfg.useMetricsFactory {
		validationConfig = cfg.clone()
		validationConfig.metrics = noopMetrics{}
	}

	if err := validationConfig.validate(); err != nil {
		return nil, err
	}

	if cfg.useMetricsFactory {
		metrics, err := cfg.metricsFactory()
		if err != nil {
			return nil, err
		}
		cfg.metrics = metrics

		if err := cfg.validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) clone() *Config {
	return &Config{
		features:             c.features,
		forwardLimit:         c.forwardLimit,
		trustedProxies:       cloneAddrs(c.trustedProxies),
		trustedNetworks:      clonePrefixes(c.trustedNetworks),
		trustMatch:           c.trustMatch,
		requireSymmetry:      c.requireSymmetry,
		relaxedValidation:    c.relaxedValidation,
		maxChainLength:       c.maxChainLength,
		useForwardedRFC:      c.useForwardedRFC,
		debugMode:            c.debugMode,
		forwardedForHeader:   c.forwardedForHeader,
		forwardedProtoHeader: c.forwardedProtoHeader,
		forwardedHostHeader:  c.forwardedHostHeader,
		originalForHeader:    c.originalForHeader,
		originalProtoHeader:  c.originalProtoHeader,
		originalHostHeader:   c.originalHostHeader,
		logger:               c.logger,
		metrics:              c.metrics,
		metricsFactory:       c.metricsFactory,
		useMetricsFactory:    c.useMetricsFactory,
	}
}

func (c *Config) withOverrides(overrides ...OverrideOptions) (*Config, error) {
	if len(overrides) == 0 {
		return c, nil
	}

	hasOverrides := false

	for _, override := range overrides {
		if override.hasSetValues() {
			hasOverrides = true
			break
		}
	}

	if !hasOverrides {
		return c, nil
	}

	effective := c.clone()
	trustOverridden := false

	for _, override := range overrides {
		if !override.hasSetValues() {
			continue
		}

		if override.Features.isSet() {
			effective.features = override.Features.value()
		}
		if override.ForwardLimit.isSet() {
			effective.forwardLimit = override.ForwardLimit.value()
		}

		if override.TrustedProxies.isSet() {
			addrs := cloneAddrs(override.TrustedProxies.value())
			for _, addr := range addrs {
				if !addr.IsValid() {
					return nil, fmt.Errorf("invalid trusted proxy address %q", addr)
				}
			}

			effective.trustedProxies = mergeUniqueAddrs(nil, addrs...)
			trustOverridden = true
		}
		if override.TrustedNetworks.isSet() {
			normalized, err := normalizeTrustedNetworks(override.TrustedNetworks.value())
			if err != nil {
				return nil, err
			}

			effective.trustedNetworks = mergeUniquePrefixes(nil, normalized...)
			trustOverridden = true
		}

		if override.RequireHeaderSymmetry.isSet() {
			effective.requireSymmetry = override.RequireHeaderSymmetry.value()
		}
		if override.RelaxedHeaderValidation.isSet() {
			effective.relaxedValidation = override.RelaxedHeaderValidation.value()
		}
		if override.MaxChainLength.isSet() {
			effective.maxChainLength = override.MaxChainLength.value()
		}
		if override.DebugInfo.isSet() {
			effective.debugMode = override.DebugInfo.value()
		}
	}

	if trustOverridden {
		effective.trustMatch = buildTrustMatcher(effective.trustedProxies, effective.trustedNetworks)
	}

	if err := effective.validate(); err != nil {
		return nil, err
	}

	return effective, nil
}
