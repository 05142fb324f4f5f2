package contexthelpers

import (
	"context"
	"net/http"
)

func SetClientID(r *http.Request, clientID string) *http.Request {
	ctx := context.WithValue(r.Context(), clientIDContextKey, clientID)
	return r.WithContext(ctx)
}

func SetRequestID(r *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
	return r.WithContext(ctx)
}

func SetCSRFToken(r *http.Request, csrfToken string) *http.Request {
	ctx := context.WithValue(r.Context(), csrfTokenContextKey, csrfToken)
	return r.WithContext(ctx)
}
