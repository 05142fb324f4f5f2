package main

import (
	"github.com/myrjola/chronicler/internal/models"
	"net/http"
)

func (app *application) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := app.sessions.Get(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, session)
}

type saveSessionRequest struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Summary string `json:"summary"`
	Notes   string `json:"notes"`
	DMNotes string `json:"dmNotes"`
	// Version is the version the edit is based on.
	Version int64 `json:"version"`
}

// saveSession writes an edited session. A stale version responds 409 with the current version.
func (app *application) saveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := requireField("title", req.Title); err != nil {
		app.handleError(w, r, err)
		return
	}
	saved, err := app.sessions.Save(r.Context(), models.Session{ //nolint:exhaustruct // campaign and number are not editable.
		ID:      r.PathValue("sessionID"),
		Title:   req.Title,
		Date:    req.Date,
		Summary: req.Summary,
		Notes:   req.Notes,
		DMNotes: req.DMNotes,
		Version: req.Version,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, saved)
}
