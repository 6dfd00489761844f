package forwarded

import (
	"context"
)

// Logger records trust-walk events emitted by Resolver.
//
// Implementations should be safe for concurrent use, as a single Resolver
// instance is typically shared across many goroutines.
//
// The provided context comes from the inbound HTTP request and can carry
// tracing metadata (for example, trace or span IDs).
//
// The interface intentionally mirrors slog's DebugContext signature, so
// *slog.Logger can be used directly without an adapter. All resolver
// outcomes, including aborts and untrusted-proxy stops, are debug-level
// events: they are normal per-request conditions, not server faults.
type Logger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
}

// noopLogger is the default Logger implementation when logging is not
// explicitly configured.
type noopLogger struct{}

func (noopLogger) DebugContext(context.Context, string, ...any) {}
