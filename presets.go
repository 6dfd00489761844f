package forwarded

// PresetLoopbackReverseProxy configures resolution for apps behind a
// reverse proxy on the same host (for example NGINX on localhost).
//
// It trusts loopback proxy CIDRs and honors the forwarded address and
// scheme.
func PresetLoopbackReverseProxy() Option {
	return func(c *Config) error {
		return applyOptions(c,
			WithFeatures(ForwardedFor|ForwardedProto),
			TrustLoopbackProxy(),
		)
	}
}

// PresetPrivateNetworkProxy configures resolution for apps behind reverse
// proxies in a typical VM or private-network setup.
//
// It trusts loopback and private proxy CIDRs and honors the forwarded
// address, scheme, and host.
func PresetPrivateNetworkProxy() Option {
	return func(c *Config) error {
		return applyOptions(c,
			WithFeatures(ForwardedFor|ForwardedProto|ForwardedHost),
			TrustLoopbackProxy(),
			TrustPrivateProxyRanges(),
		)
	}
}

// PresetSanitizingProxy configures resolution for apps whose outer proxy
// overwrites the forwarded headers rather than appending to them, such as
// a dedicated load balancer that drops client-supplied values.
//
// The nearest hop is consumed unconditionally and farther hops are
// ignored, so a client cannot smuggle extra entries past the proxy.
func PresetSanitizingProxy() Option {
	return func(c *Config) error {
		return applyOptions(c,
			WithFeatures(ForwardedFor|ForwardedProto|ForwardedHost),
			TrustAllProxies(),
			ForwardLimit(1),
		)
	}
}
