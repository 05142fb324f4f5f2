package main

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/justinas/nosurf"
	"github.com/myrjola/chronicler/internal/contexthelpers"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/logging"
	"log/slog"
	"net/http"
	"time"
)

const clientIDSessionKey = "clientID"

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the Flusher of the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			start     = time.Now()
			requestID = uuid.NewString()
		)
		ctx := logging.WithAttrs(r.Context(),
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("uri", r.URL.RequestURI()))
		r = contexthelpers.SetRequestID(r.WithContext(ctx), requestID)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		app.logger.LogAttrs(ctx, slog.LevelDebug, "handled request",
			slog.String("proto", r.Proto),
			slog.Int("status", recorder.status),
			slog.Duration("duration", time.Since(start)))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.New(fmt.Sprintf("panic: %v", err)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// clientSession makes sure the browser session carries a client id. The review state machine is keyed by it.
func (app *application) clientSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientID := app.sessionManager.GetString(ctx, clientIDSessionKey)
		if clientID == "" {
			clientID = uuid.NewString()
			app.sessionManager.Put(ctx, clientIDSessionKey, clientID)
		}
		r = contexthelpers.SetClientID(r, clientID)
		next.ServeHTTP(w, r.WithContext(logging.WithAttrs(r.Context(), slog.String("client_id", clientID))))
	})
}

// serverSentEventMiddleware makes our session library scs work with Server Sent Events (SSE).
// Use this instead of app.sessionManager.LoadAndSave.
// See https://github.com/alexedwards/scs/issues/141#issuecomment-1807075358
func (app *application) serverSentEventMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		cookie, err := r.Cookie(app.sessionManager.Cookie.Name)
		if err == nil {
			token = cookie.Value
		}
		ctx, err := app.sessionManager.Load(r.Context(), token)
		if err != nil {
			app.serverError(w, r, errors.Wrap(err, "load session"))
			return
		}
		clientID := app.sessionManager.GetString(ctx, clientIDSessionKey)
		r = contexthelpers.SetClientID(r.WithContext(ctx), clientID)

		next.ServeHTTP(w, r)
	})
}

func commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCSRFToken(r, nosurf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// noSurf implements CSRF protection using https://github.com/justinas/nosurf
//
// Clients fetch the token from GET /api/session and send it in the X-CSRF-Token header.
func (app *application) noSurf(next http.Handler) http.Handler {
	csrfHandler := nosurf.New(next)
	csrfHandler.SetBaseCookie(http.Cookie{ //nolint:exhaustruct // defaults for the rest.
		HttpOnly: true,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	csrfHandler.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.clientError(w, r, http.StatusForbidden, errors.Wrap(nosurf.Reason(r), "csrf check"))
	}))
	return csrfHandler
}
