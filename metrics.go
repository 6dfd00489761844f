package forwarded

// Metrics records resolution outcomes and security events emitted by
// Resolver.
//
// Implementations should be safe for concurrent use, as a single Resolver
// instance is typically shared across many goroutines.
type Metrics interface {
	// RecordResolutionApplied is called once per applied feature ("for",
	// "proto", "host") when a request field is rewritten.
	RecordResolutionApplied(feature string)
	// RecordResolutionAborted is called when a resolution aborts with no
	// side effects, labeled by abort reason.
	RecordResolutionAborted(reason string)
	// RecordSecurityEvent is called when the resolver observes a
	// security-relevant condition.
	RecordSecurityEvent(event string)
}

// noopMetrics is the default Metrics implementation when metrics are not
// explicitly configured.
type noopMetrics struct{}

func (noopMetrics) RecordResolutionApplied(string) {}

func (noopMetrics) RecordResolutionAborted(string) {}

func (noopMetrics) RecordSecurityEvent(string) {}
