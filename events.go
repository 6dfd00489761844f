package forwarded

const (
	securityEventHeaderAsymmetry    = "header_asymmetry"
	securityEventInvalidValue       = "invalid_forwarded_value"
	securityEventUntrustedProxy     = "untrusted_proxy"
	securityEventChainTooLong       = "chain_too_long"
	securityEventMalformedForwarded = "malformed_forwarded"
)
