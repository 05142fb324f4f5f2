package main

import (
	"github.com/justinas/alice"
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	session := alice.New(app.sessionManager.LoadAndSave, app.clientSession)
	api := session.Append(func(next http.Handler) http.Handler {
		return timeoutHandler(next, app.requestTimeout())
	})
	stream := alice.New(app.serverSentEventMiddleware)

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.Handle("GET /api/session", session.ThenFunc(app.apiSession))

	mux.Handle("POST /analyze-campaign", api.ThenFunc(app.analyzeCampaign))
	mux.Handle("POST /apply-suggestions", api.ThenFunc(app.applySuggestions))
	mux.Handle("POST /reset-intelligence-run", api.ThenFunc(app.resetIntelligenceRun))
	mux.Handle("POST /cancel-review", api.ThenFunc(app.cancelReview))
	mux.Handle("GET /review-state", api.ThenFunc(app.reviewState))
	mux.Handle("POST /analyze-session", api.ThenFunc(app.analyzeSession))

	mux.Handle("GET /suggestions", api.ThenFunc(app.listSuggestions))
	mux.Handle("PATCH /suggestions", api.ThenFunc(app.resolveSuggestion))

	mux.Handle("GET /sessions/{sessionID}", api.ThenFunc(app.getSession))
	mux.Handle("PUT /sessions/{sessionID}", api.ThenFunc(app.saveSession))

	mux.Handle("POST /expand-notes", api.ThenFunc(app.expandNotes))
	mux.Handle("GET /expand-notes/{expansionID}/stream", stream.ThenFunc(app.streamExpansion))

	return alice.New(app.recoverPanic, app.logRequest, secureHeaders, app.noSurf, commonContext).Then(mux)
}
