// Package reliability classifies upstream failures so callers can tell
// transient provider conditions from permanent ones. Nothing in the
// generation pipeline retries automatically; the classification feeds
// error reporting and metrics.
package reliability

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
