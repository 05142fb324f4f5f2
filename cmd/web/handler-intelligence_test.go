package main

import (
	"context"
	"encoding/json"
	"github.com/myrjola/chronicler/internal/e2etest"
	"github.com/stretchr/testify/require"
	"net/http"
	"testing"
)

const demoResponse = `{"suggestions": [
  {
    "suggestion_type": "important_person",
    "character_name": "Torik",
    "character_id": "demo-torik",
    "suggested_value": {"name": "Betar", "relationship": "brother"},
    "source_excerpt": "Torik found his brother Betar in a cage",
    "ai_reasoning": "Stated in the notes.",
    "confidence": "high"
  },
  {
    "suggestion_type": "status_change",
    "character_name": "Betar",
    "suggested_value": "captive",
    "source_excerpt": "Betar in a cage at the black market",
    "confidence": "medium"
  },
  {
    "suggestion_type": "quote",
    "character_name": "Torik",
    "suggested_value": "Never again.",
    "source_excerpt": "Never again, Torik swore.",
    "confidence": "low"
  }
]}`

type analyzeBody struct {
	Suggestions  []json.RawMessage `json:"suggestions"`
	Stats        map[string]int    `json:"stats"`
	NoNewContent bool              `json:"noNewContent"`
	Message      string            `json:"message"`
	Error        string            `json:"error"`
	Retryable    bool              `json:"retryable"`
}

type reviewStateBody struct {
	State               string  `json:"state"`
	Pending             int     `json:"pending"`
	LastIntelligenceRun *string `json:"lastIntelligenceRun"`
}

func TestAnalyzeApplyCycle(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	server.model.SetCompletion(demoResponse)
	client := server.Client()

	var analyzed analyzeBody
	status, err := client.DoJSON(ctx, http.MethodPost, "/analyze-campaign",
		map[string]string{"campaignId": "demo"}, &analyzed)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, analyzed.Error)
	require.Len(t, analyzed.Suggestions, 2, "ungrounded quote is dropped")
	require.Equal(t, 1, analyzed.Stats["sessionsAnalyzed"])
	require.Equal(t, 2, analyzed.Stats["totalCharacters"])
	require.Equal(t, 1, analyzed.Stats["dropped"])

	var state reviewStateBody
	status, err = client.DoJSON(ctx, http.MethodGet, "/review-state?campaignId=demo", nil, &state)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "review", state.State)
	require.Equal(t, 2, state.Pending)
	require.Nil(t, state.LastIntelligenceRun)

	var applied struct {
		Success      bool              `json:"success"`
		AppliedCount int               `json:"appliedCount"`
		Failures     []json.RawMessage `json:"failures"`
	}
	status, err = client.DoJSON(ctx, http.MethodPost, "/apply-suggestions", map[string]any{
		"campaignId":  "demo",
		"suggestions": analyzed.Suggestions,
	}, &applied)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.True(t, applied.Success)
	require.Equal(t, 2, applied.AppliedCount)
	require.Empty(t, applied.Failures)

	status, err = client.DoJSON(ctx, http.MethodGet, "/review-state?campaignId=demo", nil, &state)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "idle", state.State)
	require.NotNil(t, state.LastIntelligenceRun)

	var again analyzeBody
	status, err = client.DoJSON(ctx, http.MethodPost, "/analyze-campaign",
		map[string]string{"campaignId": "demo"}, &again)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.True(t, again.NoNewContent)
	require.Equal(t, "No new content since last analysis", again.Message)
	require.Len(t, server.model.Requests(), 1, "no model call without new content")

	status, err = client.DoJSON(ctx, http.MethodPost, "/reset-intelligence-run",
		map[string]string{"campaignId": "demo"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	status, err = client.DoJSON(ctx, http.MethodPost, "/analyze-campaign",
		map[string]string{"campaignId": "demo"}, &again)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.False(t, again.NoNewContent)
	require.Len(t, server.model.Requests(), 2)

	status, err = client.DoJSON(ctx, http.MethodPost, "/cancel-review", map[string]string{"campaignId": "demo"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	status, err = client.DoJSON(ctx, http.MethodPost, "/cancel-review", map[string]string{"campaignId": "demo"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, status, "nothing left to cancel")
}

func TestAnalyzeCampaign_errors(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	client := server.Client()

	tests := []struct {
		name      string
		body      any
		setup     func()
		want      int
		retryable bool
	}{
		{
			name: "unknown campaign",
			body: map[string]string{"campaignId": "nope"},
			want: http.StatusNotFound,
		},
		{
			name: "missing campaign id",
			body: map[string]string{},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown field",
			body: map[string]string{"campaignId": "demo", "campaign": "demo"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown provider",
			body: map[string]string{"campaignId": "demo", "aiProvider": "clippy"},
			want: http.StatusBadRequest,
		},
		{
			name:      "model failure",
			body:      map[string]string{"campaignId": "demo"},
			setup:     func() { server.model.SetStatus(http.StatusInternalServerError) },
			want:      http.StatusBadGateway,
			retryable: true,
		},
		{
			name:      "model answers with prose",
			body:      map[string]string{"campaignId": "demo"},
			setup:     func() { server.model.SetStatus(0); server.model.SetCompletion("I cannot help with that.") },
			want:      http.StatusBadGateway,
			retryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			var body analyzeBody
			status, err := client.DoJSON(ctx, http.MethodPost, "/analyze-campaign", tt.body, &body)
			require.NoError(t, err)
			require.Equal(t, tt.want, status, body.Error)
			require.NotEmpty(t, body.Error)
			require.Equal(t, tt.retryable, body.Retryable)
		})
	}

	var state reviewStateBody
	status, err := client.DoJSON(ctx, http.MethodGet, "/review-state?campaignId=demo", nil, &state)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "idle", state.State, "failed analyses leave the review idle")
}

func TestApplySuggestions_partialFailure(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	client := server.Client()

	var applied struct {
		AppliedCount int `json:"appliedCount"`
		Failures     []struct {
			Reason string `json:"reason"`
		} `json:"failures"`
	}
	status, err := client.DoJSON(ctx, http.MethodPost, "/apply-suggestions", map[string]any{
		"campaignId": "demo",
		"suggestions": []any{
			map[string]any{
				"suggestion_type": "story_hook",
				"character_name":  "Torik",
				"suggested_value": "Who sold Betar?",
				"source_excerpt":  "at the black market",
				"confidence":      "high",
			},
			map[string]any{
				"suggestion_type": "secret_revealed",
				"character_name":  "Nobody",
				"suggested_value": "Nothing",
				"source_excerpt":  "at the black market",
				"confidence":      "high",
			},
		},
	}, &applied)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, applied.AppliedCount)
	require.Len(t, applied.Failures, 1)
	require.NotEmpty(t, applied.Failures[0].Reason)

	var state reviewStateBody
	status, err = client.DoJSON(ctx, http.MethodGet, "/review-state?campaignId=demo", nil, &state)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, state.LastIntelligenceRun, "watermark advances when anything was applied")

	status, err = client.DoJSON(ctx, http.MethodPost, "/apply-suggestions", map[string]any{
		"campaignId":  "demo",
		"suggestions": []any{"not a suggestion"},
	}, &applied)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, applied.AppliedCount)
	require.Len(t, applied.Failures, 1)
}

func TestCSRFProtection(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	client := server.Client()

	_, err := client.Session(ctx)
	require.NoError(t, err)
	resp, err := client.DoWithoutCSRF(ctx, http.MethodPost, "/analyze-campaign", map[string]string{"campaignId": "demo"})
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, server.model.Requests())
}

func TestReviewIsPerClient(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	server.model.SetCompletion(demoResponse)

	first := server.Client()
	second, err := e2etest.NewClient(server.URL())
	require.NoError(t, err)

	status, err := first.DoJSON(ctx, http.MethodPost, "/analyze-campaign", map[string]string{"campaignId": "demo"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	var state reviewStateBody
	status, err = second.DoJSON(ctx, http.MethodGet, "/review-state?campaignId=demo", nil, &state)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "idle", state.State)

	status, err = first.DoJSON(ctx, http.MethodGet, "/review-state?campaignId=demo", nil, &state)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "review", state.State)
}

func TestAnalyzeSession_persistAndResolve(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	server.model.SetCompletion(demoResponse)
	client := server.Client()

	var analyzed struct {
		Suggestions []json.RawMessage `json:"suggestions"`
		Persisted   []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"persisted"`
	}
	status, err := client.DoJSON(ctx, http.MethodPost, "/analyze-session", map[string]any{
		"campaignId": "demo",
		"sessionId":  "demo-session-1",
		"persist":    true,
	}, &analyzed)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, analyzed.Persisted, 2)

	var listed struct {
		Suggestions []struct {
			ID string `json:"id"`
		} `json:"suggestions"`
	}
	status, err = client.DoJSON(ctx, http.MethodGet,
		"/suggestions?campaignId=demo&characterId=demo-torik&status=pending", nil, &listed)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, listed.Suggestions, 1)

	var resolved struct {
		Suggestion struct {
			Status string `json:"status"`
		} `json:"suggestion"`
	}
	status, err = client.DoJSON(ctx, http.MethodPatch, "/suggestions", map[string]string{
		"suggestionId": listed.Suggestions[0].ID,
		"action":       "approve",
	}, &resolved)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "approved", resolved.Suggestion.Status)

	status, err = client.DoJSON(ctx, http.MethodGet, "/suggestions?campaignId=demo&status=bogus", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, status)

	status, err = client.DoJSON(ctx, http.MethodPatch, "/suggestions", map[string]string{
		"suggestionId": listed.Suggestions[0].ID,
		"action":       "maybe",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, status)

	status, err = client.DoJSON(ctx, http.MethodPost, "/analyze-session", map[string]any{
		"campaignId": "other",
		"sessionId":  "demo-session-1",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
}
