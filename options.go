package forwarded

import (
	"fmt"
	"net/netip"
)

// WithFeatures sets which forwarded headers the resolver honors.
func WithFeatures(features Features) Option {
	return func(c *Config) error {
		c.features = features
		return nil
	}
}

// ForwardLimit caps the number of hops trusted per request, regardless of
// header length. Zero means unlimited.
func ForwardLimit(limit int) Option {
	return func(c *Config) error {
		c.forwardLimit = limit
		return nil
	}
}

// TrustProxyAddrs adds individually trusted upstream proxy addresses.
func TrustProxyAddrs(addrs ...netip.Addr) Option {
	addrs = cloneAddrs(addrs)

	return func(c *Config) error {
		for _, addr := range addrs {
			if !addr.IsValid() {
				return fmt.Errorf("invalid proxy address %q", addr)
			}
		}

		c.trustedProxies = mergeUniqueAddrs(c.trustedProxies, addrs...)
		return nil
	}
}

// TrustProxyPrefixes adds trusted proxy network prefixes.
func TrustProxyPrefixes(prefixes ...netip.Prefix) Option {
	prefixes = clonePrefixes(prefixes)

	return func(c *Config) error {
		normalized, err := normalizeTrustedNetworks(prefixes)
		if err != nil {
			return err
		}

		appendTrustedNetworks(c, normalized...)
		return nil
	}
}

// TrustLoopbackProxy adds loopback CIDRs to trusted proxy ranges.
//
// Loopback ranges are already trusted by default; the option exists to
// restore them after TrustAllProxies.
func TrustLoopbackProxy() Option {
	return func(c *Config) error {
		appendTrustedNetworks(c, loopbackProxyCIDRs...)
		return nil
	}
}

// TrustPrivateProxyRanges adds private network CIDRs to trusted proxy
// ranges.
func TrustPrivateProxyRanges() Option {
	return func(c *Config) error {
		appendTrustedNetworks(c, privateProxyCIDRs...)
		return nil
	}
}

// TrustAllProxies clears the trust policy. With no trusted proxies or
// networks configured, every hop in the chain is trusted up to the
// forward limit.
//
// Only use this when an outer layer already guarantees that forwarded
// headers cannot be spoofed.
func TrustAllProxies() Option {
	return func(c *Config) error {
		c.trustedProxies = nil
		c.trustedNetworks = nil
		return nil
	}
}

// RequireHeaderSymmetry configures strict mode: all enabled headers must
// report equal hop counts and every hop value must validate, or the
// resolution aborts with no side effects.
func RequireHeaderSymmetry(require bool) Option {
	return func(c *Config) error {
		c.requireSymmetry = require
		return nil
	}
}

// RelaxedHeaderValidation skips syntactic validation of forwarded scheme
// and host values, accepting them verbatim.
func RelaxedHeaderValidation(relaxed bool) Option {
	return func(c *Config) error {
		c.relaxedValidation = relaxed
		return nil
	}
}

// MaxChainLength sets the maximum number of entries accepted in forwarded
// header chains.
func MaxChainLength(max int) Option {
	return func(c *Config) error {
		c.maxChainLength = max
		return nil
	}
}

// UseForwardedHeader switches the resolver to the RFC 7239 Forwarded
// header. Its for/proto/host parameters feed the same features and trust
// walk as the X-Forwarded-* triple.
func UseForwardedHeader() Option {
	return func(c *Config) error {
		c.useForwardedRFC = true
		return nil
	}
}

// WithHeaderNames overrides the forwarded header names consumed for the
// for, proto, and host features.
func WithHeaderNames(forName, protoName, hostName string) Option {
	return func(c *Config) error {
		c.forwardedForHeader = forName
		c.forwardedProtoHeader = protoName
		c.forwardedHostHeader = hostName
		return nil
	}
}

// WithOriginalHeaderNames overrides the header names that preserve
// pre-rewrite values.
func WithOriginalHeaderNames(forName, protoName, hostName string) Option {
	return func(c *Config) error {
		c.originalForHeader = forName
		c.originalProtoHeader = protoName
		c.originalHostHeader = hostName
		return nil
	}
}

// WithLogger sets the logger implementation used for debug events.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets a concrete metrics implementation.
//
// If previously configured, a metrics factory is disabled.
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) error {
		c.metrics = metrics
		c.metricsFactory = nil
		c.useMetricsFactory = false
		return nil
	}
}

// WithMetricsFactory configures a lazy metrics constructor.
//
// The factory is invoked only for the final winning metrics option after
// option validation succeeds.
func WithMetricsFactory(factory func() (Metrics, error)) Option {
	return func(c *Config) error {
		if factory == nil {
			return fmt.Errorf("metrics factory cannot be nil")
		}

		c.metricsFactory = factory
		c.useMetricsFactory = true
		return nil
	}
}

// WithDebugInfo controls whether walk-debug metadata is included in
// resolutions.
func WithDebugInfo(enable bool) Option {
	return func(c *Config) error {
		c.debugMode = enable
		return nil
	}
}
