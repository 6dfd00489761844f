package forwarded

import (
	"errors"
	"fmt"
	"strings"
)

// forwardedElement is one parsed RFC 7239 Forwarded element, retaining
// the raw text so unconsumed elements can be re-serialized.
type forwardedElement struct {
	raw    string
	forVal string
	proto  string
	host   string
}

// collectForwardedChains parses one or more Forwarded header values into
// per-feature chains. Elements arrive in wire order; parameters for
// disabled features are ignored. Each element contributes one slot per
// feature so the chains stay positionally aligned.
func (c *Config) collectForwardedChains(values []string) (headerChains, error) {
	if len(values) == 0 {
		return headerChains{}, nil
	}

	elements, err := c.parseForwardedElements(values)
	if err != nil {
		return headerChains{}, err
	}
	if len(elements) == 0 {
		return headerChains{}, nil
	}

	chains := headerChains{
		rawForwarded: make([]string, len(elements)),
	}
	if c.features.Has(ForwardedFor) {
		chains.forValues = make([]string, len(elements))
	}
	if c.features.Has(ForwardedProto) {
		chains.protoValues = make([]string, len(elements))
	}
	if c.features.Has(ForwardedHost) {
		chains.hostValues = make([]string, len(elements))
	}

	for i, element := range elements {
		chains.rawForwarded[i] = element.raw
		if chains.forValues != nil {
			chains.forValues[i] = element.forVal
		}
		if chains.protoValues != nil {
			chains.protoValues[i] = element.proto
		}
		if chains.hostValues != nil {
			chains.hostValues[i] = element.host
		}
	}

	return chains, nil
}

// parseForwardedElements splits Forwarded header values into elements,
// extracting the for, proto, and host parameters. Any parse failure is
// converted to an ErrMalformedForwarded resolution error. The element
// count is bounded by the configured maxChainLength.
func (c *Config) parseForwardedElements(values []string) ([]forwardedElement, error) {
	elements := make([]forwardedElement, 0, typicalChainCapacity)

	for _, value := range values {
		err := scanForwardedSegments(value, ',', func(elementText string) error {
			element, parseErr := parseForwardedElement(elementText)
			if parseErr != nil {
				return parseErr
			}

			if len(elements) >= c.maxChainLength {
				return &ChainTooLongError{
					ResolutionError: ResolutionError{
						Err:    ErrChainTooLong,
						Header: forwardedHeaderName,
					},
					ChainLength: len(elements) + 1,
					MaxLength:   c.maxChainLength,
				}
			}

			elements = append(elements, element)
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrChainTooLong) {
				return nil, err
			}

			return nil, malformedForwardedError(err)
		}
	}

	return elements, nil
}

// malformedForwardedError wraps low-level parse errors as a resolution
// error tagged with ErrMalformedForwarded.
func malformedForwardedError(err error) error {
	return &ResolutionError{
		Err:    fmt.Errorf("%w: %w", ErrMalformedForwarded, err),
		Header: forwardedHeaderName,
	}
}

// parseForwardedElement parses a single Forwarded element.
//
// It allows arbitrary additional parameters, treats parameter names
// case-insensitively, and rejects duplicate for/proto/host parameters in
// the same element.
func parseForwardedElement(elementText string) (forwardedElement, error) {
	element := forwardedElement{raw: elementText}
	seen := make(map[string]struct{}, 3)

	err := scanForwardedSegments(elementText, ';', func(param string) error {
		eq := strings.IndexByte(param, '=')
		if eq <= 0 {
			return fmt.Errorf("invalid forwarded parameter %q", param)
		}

		key := strings.ToLower(strings.TrimSpace(param[:eq]))
		value := strings.TrimSpace(param[eq+1:])
		if key == "" {
			return fmt.Errorf("empty parameter key in %q", param)
		}
		if value == "" {
			return fmt.Errorf("empty parameter value for %q", key)
		}

		switch key {
		case "for", "proto", "host":
		default:
			return nil
		}

		if _, duplicate := seen[key]; duplicate {
			return fmt.Errorf("duplicate %s parameter in element %q", key, elementText)
		}
		seen[key] = struct{}{}

		parsedValue, parseErr := parseForwardedParamValue(value)
		if parseErr != nil {
			return parseErr
		}

		switch key {
		case "for":
			element.forVal = parsedValue
		case "proto":
			element.proto = parsedValue
		case "host":
			element.host = parsedValue
		}
		return nil
	})
	if err != nil {
		return forwardedElement{}, err
	}

	return element, nil
}

// scanForwardedSegments splits value by delimiter while respecting quoted
// segments and escape sequences inside quoted strings.
func scanForwardedSegments(value string, delimiter byte, onSegment func(string) error) error {
	start := 0
	inQuotes := false
	escaped := false

	for i := 0; i <= len(value); i++ {
		if i == len(value) {
			if inQuotes {
				return fmt.Errorf("unterminated quoted string in %q", value)
			}
			if escaped {
				return fmt.Errorf("unterminated escape in %q", value)
			}
		} else {
			ch := value[i]

			if escaped {
				escaped = false
				continue
			}

			if ch == '\\' && inQuotes {
				escaped = true
				continue
			}

			if ch == '"' {
				inQuotes = !inQuotes
				continue
			}

			if ch != delimiter || inQuotes {
				continue
			}
		}

		segment := strings.TrimSpace(value[start:i])
		if segment != "" {
			if err := onSegment(segment); err != nil {
				return err
			}
		}

		start = i + 1
	}

	return nil
}

// parseForwardedParamValue parses a Forwarded parameter value.
//
// The value may be an unquoted token or a quoted string. For quoted
// strings, escaping is resolved by unquoteForwardedValue.
func parseForwardedParamValue(value string) (string, error) {
	if value[0] == '"' {
		unquoted, err := unquoteForwardedValue(value)
		if err != nil {
			return "", err
		}
		value = strings.TrimSpace(unquoted)
	}

	if value == "" {
		return "", fmt.Errorf("empty quoted parameter value")
	}

	return value, nil
}

// unquoteForwardedValue removes surrounding quotes from a Forwarded
// quoted string and resolves backslash escapes.
func unquoteForwardedValue(value string) (string, error) {
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return "", fmt.Errorf("invalid quoted string %q", value)
	}

	inner := value[1 : len(value)-1]
	if strings.IndexByte(inner, '\\') == -1 {
		if strings.IndexByte(inner, '"') != -1 {
			return "", fmt.Errorf("unexpected quote in %q", value)
		}

		return inner, nil
	}

	var b strings.Builder
	b.Grow(len(inner))
	escaped := false

	for i := 1; i < len(value)-1; i++ {
		ch := value[i]

		if escaped {
			b.WriteByte(ch)
			escaped = false
			continue
		}

		if ch == '\\' {
			escaped = true
			continue
		}

		if ch == '"' {
			return "", fmt.Errorf("unexpected quote in %q", value)
		}

		b.WriteByte(ch)
	}

	if escaped {
		return "", fmt.Errorf("unterminated escape in %q", value)
	}

	return b.String(), nil
}
