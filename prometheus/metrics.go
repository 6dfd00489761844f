package prometheus

import (
	"errors"
	"fmt"

	"github.com/abczzz13/forwarded"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics is a Prometheus-backed implementation of
// forwarded.Metrics.
type PrometheusMetrics struct {
	resolutionsApplied *prom.CounterVec
	resolutionsAborted *prom.CounterVec
	securityEvents     *prom.CounterVec
}

// WithMetrics returns a forwarded option that installs Prometheus-backed
// metrics using prom.DefaultRegisterer.
func WithMetrics() forwarded.Option {
	return withMetricsFactory(New)
}

// WithRegisterer returns a forwarded option that installs
// Prometheus-backed metrics using the provided registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used.
func WithRegisterer(registerer prom.Registerer) forwarded.Option {
	return withMetricsFactory(func() (*PrometheusMetrics, error) {
		return NewWithRegisterer(registerer)
	})
}

// withMetricsFactory adapts a PrometheusMetrics constructor into a
// forwarded option. The factory runs lazily so collectors are only
// registered when this option ends up the winning metrics option.
func withMetricsFactory(factory func() (*PrometheusMetrics, error)) forwarded.Option {
	return forwarded.WithMetricsFactory(func() (forwarded.Metrics, error) {
		return factory()
	})
}

// New creates PrometheusMetrics and registers its collectors on
// prom.DefaultRegisterer.
func New() (*PrometheusMetrics, error) {
	return NewWithRegisterer(prom.DefaultRegisterer)
}

// NewWithRegisterer creates PrometheusMetrics and registers its collectors
// on the given registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used. If the metrics are
// already registered, existing compatible collectors are reused.
func NewWithRegisterer(registerer prom.Registerer) (*PrometheusMetrics, error) {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}

	resolutionsAppliedCollector := prom.NewCounterVec(
		prom.CounterOpts{
			Name: "forwarded_resolutions_applied_total",
			Help: "Total number of forwarded-header resolutions applied to requests, labeled by feature (for, proto, host).",
		},
		[]string{"feature"},
	)
	resolutionsAbortedCollector := prom.NewCounterVec(
		prom.CounterOpts{
			Name: "forwarded_resolutions_aborted_total",
			Help: "Total number of forwarded-header resolutions aborted with no side effects, labeled by reason.",
		},
		[]string{"reason"},
	)
	securityEventsCollector := prom.NewCounterVec(
		prom.CounterOpts{
			Name: "forwarded_security_events_total",
			Help: "Security-related events during forwarded-header resolution, labeled by event.",
		},
		[]string{"event"},
	)

	resolutionsApplied, err := registerCounterVec(registerer, resolutionsAppliedCollector, "forwarded_resolutions_applied_total")
	if err != nil {
		return nil, err
	}

	resolutionsAborted, err := registerCounterVec(registerer, resolutionsAbortedCollector, "forwarded_resolutions_aborted_total")
	if err != nil {
		return nil, err
	}

	securityEvents, err := registerCounterVec(registerer, securityEventsCollector, "forwarded_security_events_total")
	if err != nil {
		return nil, err
	}

	return &PrometheusMetrics{
		resolutionsApplied: resolutionsApplied,
		resolutionsAborted: resolutionsAborted,
		securityEvents:     securityEvents,
	}, nil
}

func registerCounterVec(registerer prom.Registerer, collector *prom.CounterVec, metricName string) (*prom.CounterVec, error) {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prom.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(*prom.CounterVec)
			if ok {
				return existing, nil
			}
			return nil, fmt.Errorf("metric %q already registered with incompatible collector type %T", metricName, alreadyRegistered.ExistingCollector)
		}

		return nil, fmt.Errorf("register metric %q: %w", metricName, err)
	}

	return collector, nil
}

// RecordResolutionApplied increments forwarded_resolutions_applied_total
// for the provided feature label.
func (m *PrometheusMetrics) RecordResolutionApplied(feature string) {
	m.resolutionsApplied.WithLabelValues(feature).Inc()
}

// RecordResolutionAborted increments forwarded_resolutions_aborted_total
// for the provided reason label.
func (m *PrometheusMetrics) RecordResolutionAborted(reason string) {
	m.resolutionsAborted.WithLabelValues(reason).Inc()
}

// RecordSecurityEvent increments forwarded_security_events_total for the
// provided event label.
func (m *PrometheusMetrics) RecordSecurityEvent(event string) {
	m.securityEvents.WithLabelValues(event).Inc()
}
