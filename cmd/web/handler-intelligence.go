package main

import (
	"context"
	"encoding/json"
	"github.com/myrjola/chronicler/internal/contexthelpers"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/intelligence"
	"github.com/myrjola/chronicler/internal/logging"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/review"
	"log/slog"
	"net/http"
	"time"
)

const noNewContentMessage = "No new content since last analysis"

type campaignRequest struct {
	CampaignID string `json:"campaignId"`
	AIProvider string `json:"aiProvider"`
}

type analyzeResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
	Stats       intelligence.Stats  `json:"stats"`
}

type noNewContentResponse struct {
	NoNewContent bool   `json:"noNewContent"`
	Message      string `json:"message"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// withCampaign adds the campaign id to the log attributes of the request.
func withCampaign(r *http.Request, campaignID string) (*http.Request, context.Context) {
	ctx := logging.WithAttrs(r.Context(), slog.String("campaign_id", campaignID))
	return r.WithContext(ctx), ctx
}

func reviewKey(ctx context.Context, campaignID string) review.Key {
	return review.Key{ClientID: contexthelpers.ClientID(ctx), CampaignID: campaignID}
}

func (app *application) analyzeCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := requireField("campaignId", req.CampaignID); err != nil {
		app.handleError(w, r, err)
		return
	}
	r, ctx := withCampaign(r, req.CampaignID)

	analysis, err := app.reviews.BeginAnalysis(ctx, reviewKey(ctx, req.CampaignID))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	result, err := app.intelligence.Analyze(ctx, req.CampaignID, req.AIProvider)
	if err != nil {
		analysis.Fail(ctx)
		app.handleError(w, r, err)
		return
	}
	analysis.Review(ctx, len(result.Suggestions))

	if result.NoNewContent {
		app.writeJSON(w, r, http.StatusOK, noNewContentResponse{NoNewContent: true, Message: noNewContentMessage})
		return
	}
	app.writeJSON(w, r, http.StatusOK, analyzeResponse{Suggestions: result.Suggestions, Stats: result.Stats})
}

type applySuggestionsRequest struct {
	CampaignID  string            `json:"campaignId"`
	Suggestions []json.RawMessage `json:"suggestions"`
}

type applySuggestionsResponse struct {
	Success bool `json:"success"`
	intelligence.ApplyResult
}

func (app *application) applySuggestions(w http.ResponseWriter, r *http.Request) {
	var req applySuggestionsRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := requireField("campaignId", req.CampaignID); err != nil {
		app.handleError(w, r, err)
		return
	}
	if req.Suggestions == nil {
		app.handleError(w, r, errors.Wrap(errInvalidBody, "missing suggestions"))
		return
	}
	r, ctx := withCampaign(r, req.CampaignID)

	done, err := app.reviews.BeginApply(ctx, reviewKey(ctx, req.CampaignID))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	defer done()

	// The writes and the watermark advance finish even when the client goes away.
	result, err := app.intelligence.Apply(context.WithoutCancel(ctx), req.CampaignID, req.Suggestions)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, applySuggestionsResponse{Success: true, ApplyResult: result})
}

func (app *application) resetIntelligenceRun(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := requireField("campaignId", req.CampaignID); err != nil {
		app.handleError(w, r, err)
		return
	}
	r, ctx := withCampaign(r, req.CampaignID)
	if err := app.intelligence.Reset(ctx, req.CampaignID); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "reset intelligence run")
	app.writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}

func (app *application) cancelReview(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := requireField("campaignId", req.CampaignID); err != nil {
		app.handleError(w, r, err)
		return
	}
	r, ctx := withCampaign(r, req.CampaignID)
	if err := app.reviews.Cancel(ctx, reviewKey(ctx, req.CampaignID)); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}

type reviewStateResponse struct {
	review.Snapshot
	Watermark *time.Time `json:"lastIntelligenceRun"`
}

func (app *application) reviewState(w http.ResponseWriter, r *http.Request) {
	campaignID := r.URL.Query().Get("campaignId")
	if err := requireField("campaignId", campaignID); err != nil {
		app.handleError(w, r, err)
		return
	}
	r, ctx := withCampaign(r, campaignID)
	watermark, err := app.intelligence.Watermark(ctx, campaignID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, reviewStateResponse{
		Snapshot:  app.reviews.Get(reviewKey(ctx, campaignID)),
		Watermark: watermark,
	})
}

type analyzeSessionRequest struct {
	CampaignID string `json:"campaignId"`
	SessionID  string `json:"sessionId"`
	AIProvider string `json:"aiProvider"`
	// Persist stores the suggestions as pending for review from the character view.
	Persist bool `json:"persist"`
}

type analyzeSessionResponse struct {
	Suggestions []models.Suggestion             `json:"suggestions"`
	Stats       intelligence.Stats              `json:"stats"`
	Persisted   []models.IntelligenceSuggestion `json:"persisted,omitempty"`
}

func (app *application) analyzeSession(w http.ResponseWriter, r *http.Request) {
	var req analyzeSessionRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := errors.Join(
		requireField("campaignId", req.CampaignID),
		requireField("sessionId", req.SessionID),
	); err != nil {
		app.handleError(w, r, err)
		return
	}
	r, ctx := withCampaign(r, req.CampaignID)
	ctx = logging.WithAttrs(ctx, slog.String("session_id", req.SessionID))
	r = r.WithContext(ctx)

	session, err := app.sessions.Get(ctx, req.SessionID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if session.CampaignID != req.CampaignID {
		app.clientError(w, r, http.StatusNotFound, errors.New("session belongs to another campaign"))
		return
	}

	analysis, err := app.reviews.BeginAnalysis(ctx, reviewKey(ctx, req.CampaignID))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	result, err := app.intelligence.AnalyzeSession(ctx, req.SessionID, req.AIProvider, req.Persist)
	if err != nil {
		analysis.Fail(ctx)
		app.handleError(w, r, err)
		return
	}
	analysis.Review(ctx, len(result.Suggestions))
	app.writeJSON(w, r, http.StatusOK, analyzeSessionResponse{
		Suggestions: result.Suggestions,
		Stats:       result.Stats,
		Persisted:   result.Persisted,
	})
}
