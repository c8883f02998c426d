package utils

import (
	"time"
)

// Request context keys
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Voice webhook constants
const (
	// DefaultWebhookTimeout bounds a single webhook invocation, below the provider's 15s limit
	DefaultWebhookTimeout = 10 * time.Second

	// DefaultDeliveryGuardTTL keeps delivery markers long enough to cover provider retries
	DefaultDeliveryGuardTTL = 24 * time.Hour

	// InboundCallTag is attached to leads created from unrecognised callers
	InboundCallTag = "inbound-call"

	// UnknownCallerName is the display name of leads created from unrecognised callers
	UnknownCallerName = "Unknown Caller"
)
