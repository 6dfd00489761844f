package prometheus_test

import (
	"fmt"
	"net/http"

	"github.com/abczzz13/forwarded"
	forwardedprom "github.com/abczzz13/forwarded/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
)

func appliedCount(registry *prom.Registry, feature string) float64 {
	metricFamilies, err := registry.Gather()
	if err != nil {
		panic(err)
	}

	for _, family := range metricFamilies {
		if family.GetName() != "forwarded_resolutions_applied_total" {
			continue
		}

		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == "feature" && pair.GetValue() == feature {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}

	return 0
}

func ExampleWithRegisterer() {
	registry := prom.NewRegistry()

	resolver, err := forwarded.New(
		forwarded.WithFeatures(forwarded.ForwardedFor),
		forwarded.TrustAllProxies(),
		forwardedprom.WithRegisterer(registry),
	)
	if err != nil {
		panic(err)
	}

	req := &http.Request{
		RemoteAddr: "10.0.0.1:12345",
		Header:     make(http.Header),
	}
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	if _, err := resolver.Apply(req); err != nil {
		panic(err)
	}

	fmt.Println(req.RemoteAddr)
	fmt.Printf("%.0f\n", appliedCount(registry, "for"))
	// Output:
	// 1.1.1.1:0
	// 1
}

func ExampleNewWithRegisterer() {
	registry := prom.NewRegistry()

	metrics, err := forwardedprom.NewWithRegisterer(registry)
	if err != nil {
		panic(err)
	}

	resolver, err := forwarded.New(
		forwarded.WithFeatures(forwarded.ForwardedFor),
		forwarded.TrustAllProxies(),
		forwarded.WithMetrics(metrics),
	)
	if err != nil {
		panic(err)
	}

	req := &http.Request{
		RemoteAddr: "10.0.0.1:12345",
		Header:     make(http.Header),
	}
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	if _, err := resolver.Apply(req); err != nil {
		panic(err)
	}

	fmt.Printf("%.0f\n", appliedCount(registry, "for"))
	// Output: 1
}
