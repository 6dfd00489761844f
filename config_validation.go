package forwarded

import (
	"fmt"
	"reflect"
)

func (c *Config) validate() error {
	if !c.features.valid() {
		return fmt.Errorf("invalid feature set %q: enable at least one of ForwardedFor, ForwardedProto, ForwardedHost", c.features)
	}
	if c.forwardLimit < 0 {
		return fmt.Errorf("forwardLimit must be >= 0, got %d", c.forwardLimit)
	}
	if c.maxChainLength <= 0 {
		return fmt.Errorf("maxChainLength must be > 0, got %d", c.maxChainLength)
	}

	if err := c.validateHeaderNames(); err != nil {
		return err
	}

	if isNilLogger(c.logger) {
		return fmt.Errorf("logger cannot be nil")
	}
	if isNilMetrics(c.metrics) {
		return fmt.Errorf("metrics cannot be nil")
	}
	return nil
}

func (c *Config) validateHeaderNames() error {
	names := []struct {
		kind string
		name string
	}{
		{"forwarded-for header", c.forwardedForHeader},
		{"forwarded-proto header", c.forwardedProtoHeader},
		{"forwarded-host header", c.forwardedHostHeader},
		{"original-for header", c.originalForHeader},
		{"original-proto header", c.originalProtoHeader},
		{"original-host header", c.originalHostHeader},
	}

	seen := make(map[string]string, len(names))
	for _, entry := range names {
		if entry.name == "" {
			return fmt.Errorf("%s name cannot be empty", entry.kind)
		}

		if other, ok := seen[entry.name]; ok {
			return fmt.Errorf("%s and %s cannot share the name %q", entry.kind, other, entry.name)
		}
		seen[entry.name] = entry.kind
	}

	return nil
}

func isNilLogger(logger Logger) bool {
	return isNilInterface(logger)
}

func isNilMetrics(metrics Metrics) bool {
	return isNilInterface(metrics)
}

func isNilInterface(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
