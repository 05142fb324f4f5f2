package main

import (
	"github.com/myrjola/chronicler/internal/contexthelpers"
	"net/http"
)

type apiSessionResponse struct {
	ClientID  string `json:"clientId"`
	CSRFToken string `json:"csrfToken"`
}

// apiSession hands the CSRF token to the review UI. Unsafe requests must echo it in the X-CSRF-Token header.
func (app *application) apiSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app.writeJSON(w, r, http.StatusOK, apiSessionResponse{
		ClientID:  contexthelpers.ClientID(ctx),
		CSRFToken: contexthelpers.CSRFToken(ctx),
	})
}
