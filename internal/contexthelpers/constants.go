package contexthelpers

type contextKey string

const (
	clientIDContextKey  = contextKey("clientID")
	requestIDContextKey = contextKey("requestID")
	csrfTokenContextKey = contextKey("csrfToken")
)
