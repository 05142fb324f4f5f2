package ai_test

import (
	"context"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"testing"
)

func TestOpenAI_Complete(t *testing.T) {
	server := testhelpers.NewOpenAIServer(t)
	server.SetCompletion(`{"suggestions": []}`)
	model := ai.NewOpenAI("test-key", server.URL, "", testhelpers.NewLogger(io.Discard))

	got, err := model.Complete(context.Background(), ai.Request{
		System:    "You are the campaign archivist.",
		Prompt:    "SESSIONS: none",
		JSON:      true,
		MaxTokens: 0,
	})
	require.NoError(t, err)
	require.Equal(t, `{"suggestions": []}`, got)

	requests := server.Requests()
	require.Len(t, requests, 1)
	require.Equal(t, ai.DefaultOpenAIModel, requests[0]["model"])
	require.InDelta(t, ai.MaxTokens, requests[0]["max_tokens"], 0)
	require.Equal(t, map[string]any{"type": "json_object"}, requests[0]["response_format"])
	messages, ok := requests[0]["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
}

func TestOpenAI_Stream(t *testing.T) {
	server := testhelpers.NewOpenAIServer(t)
	server.SetChunks("## TITLE\n", "The Gilded ", "Cage\n")
	model := ai.NewOpenAI("test-key", server.URL, "gpt-test", testhelpers.NewLogger(io.Discard))

	var got []string
	err := model.Stream(context.Background(), ai.Request{Prompt: "notes"}, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"## TITLE\n", "The Gilded ", "Cage\n"}, got)
	require.Equal(t, "gpt-test", server.Requests()[0]["model"])
	require.Nil(t, server.Requests()[0]["response_format"])
}

func TestOpenAI_errorStatus(t *testing.T) {
	server := testhelpers.NewOpenAIServer(t)
	server.SetStatus(http.StatusServiceUnavailable)
	model := ai.NewOpenAI("test-key", server.URL, "", testhelpers.NewLogger(io.Discard))

	_, err := model.Complete(context.Background(), ai.Request{Prompt: "x"})
	require.Error(t, err)
	err = model.Stream(context.Background(), ai.Request{Prompt: "x"}, func(string) error { return nil })
	require.Error(t, err)
}
