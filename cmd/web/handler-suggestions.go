package main

import (
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/repositories"
	"log/slog"
	"net/http"
)

type suggestionsResponse struct {
	Suggestions []models.IntelligenceSuggestion `json:"suggestions"`
}

// listSuggestions serves GET /suggestions?campaignId=&status=&characterId= for the character indicator.
func (app *application) listSuggestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	campaignID := query.Get("campaignId")
	if err := requireField("campaignId", campaignID); err != nil {
		app.handleError(w, r, err)
		return
	}
	r, ctx := withCampaign(r, campaignID)

	filter := repositories.SuggestionFilter{CharacterID: nil, Status: nil}
	if characterID := query.Get("characterId"); characterID != "" {
		filter.CharacterID = &characterID
	}
	if status := query.Get("status"); status != "" {
		parsed := models.SuggestionStatus(status)
		switch parsed {
		case models.SuggestionStatusPending, models.SuggestionStatusApproved, models.SuggestionStatusRejected:
			filter.Status = &parsed
		default:
			app.handleError(w, r, errors.Wrap(errInvalidBody, "unknown status", slog.String("status", status)))
			return
		}
	}

	suggestions, err := app.intelligence.ListSuggestions(ctx, campaignID, filter)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}

type resolveSuggestionRequest struct {
	SuggestionID string `json:"suggestionId"`
	Action       string `json:"action"`
}

// resolveSuggestion serves PATCH /suggestions. Approving applies the suggestion.
func (app *application) resolveSuggestion(w http.ResponseWriter, r *http.Request) {
	var req resolveSuggestionRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := requireField("suggestionId", req.SuggestionID); err != nil {
		app.handleError(w, r, err)
		return
	}
	var approve bool
	switch req.Action {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		app.handleError(w, r, errors.Wrap(errInvalidBody, "action must be approve or reject",
			slog.String("action", req.Action)))
		return
	}

	resolved, err := app.intelligence.ResolveSuggestion(r.Context(), req.SuggestionID, approve)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, resolved)
}
