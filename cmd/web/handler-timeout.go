package main

import (
	"net/http"
	"time"
)

const timeoutBody = `{"error":"request timed out","retryable":true}`

// timeoutHandler responds with 503 Service Unavailable when the handler does not meet the deadline.
//
// Streaming handlers must not be wrapped because the timeout writer cannot flush.
func timeoutHandler(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, timeoutBody)
}
