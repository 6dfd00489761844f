package forwarded

import (
	"context"
	"net/http"
	"net/netip"
	"net/url"
	"sync"
	"testing"
)

func mustNewResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()

	resolver, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return resolver
}

func mustConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	cfg, err := configFromOptions(opts...)
	if err != nil {
		t.Fatalf("configFromOptions() error = %v", err)
	}

	return cfg
}

func mustParseCIDRs(t *testing.T, cidrs ...string) []netip.Prefix {
	t.Helper()

	prefixes, err := ParseCIDRs(cidrs...)
	if err != nil {
		t.Fatalf("ParseCIDRs() error = %v", err)
	}

	return prefixes
}

func newTestRequest(remoteAddr string) *http.Request {
	return &http.Request{
		RemoteAddr: remoteAddr,
		Host:       "internal.example",
		URL:        &url.URL{Path: "/"},
		Header:     make(http.Header),
	}
}

type logRecord struct {
	msg   string
	attrs map[string]any
}

// captureLogger records debug events for assertions.
type captureLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (l *captureLogger) DebugContext(_ context.Context, msg string, args ...any) {
	attrs := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs[key] = args[i+1]
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, logRecord{msg: msg, attrs: attrs})
}

func (l *captureLogger) recordsWithEvent(event string) []logRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []logRecord
	for _, record := range l.records {
		if record.attrs["event"] == event {
			matched = append(matched, record)
		}
	}
	return matched
}

// captureMetrics counts recorded metrics for assertions.
type captureMetrics struct {
	mu      sync.Mutex
	applied map[string]int
	aborted map[string]int
	events  map[string]int
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{
		applied: make(map[string]int),
		aborted: make(map[string]int),
		events:  make(map[string]int),
	}
}

func (m *captureMetrics) RecordResolutionApplied(feature string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied[feature]++
}

func (m *captureMetrics) RecordResolutionAborted(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted[reason]++
}

func (m *captureMetrics) RecordSecurityEvent(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event]++
}

func (m *captureMetrics) appliedCount(feature string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied[feature]
}

func (m *captureMetrics) abortedCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborted[reason]
}

func (m *captureMetrics) eventCount(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[event]
}
