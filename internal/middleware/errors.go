package middleware

// Common error codes used by middleware and handlers.
const (
	ErrorCodeInternal          = "INTERNAL_ERROR"
	ErrorCodeUnauthorized      = "UNAUTHORIZED"
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrorCodeRequestTimeout    = "REQUEST_TIMEOUT"
)

const (
	ErrorMessageInternal          = "An internal error occurred"
	ErrorMessageUnauthorized      = "Unauthorized"
	ErrorMessageRateLimitExceeded = "Too many requests"
	ErrorMessageRequestTimeout    = "Request timeout"
)
