package contexthelpers

import (
	"context"
)

// ClientID identifies the browser session that issued the request. Empty when the session has not been loaded.
func ClientID(ctx context.Context) string {
	clientID, ok := ctx.Value(clientIDContextKey).(string)
	if !ok {
		return ""
	}

	return clientID
}

func RequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDContextKey).(string)
	if !ok {
		return ""
	}

	return requestID
}

func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}
