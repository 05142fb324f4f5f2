package intelligence

import (
	"encoding/json"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{name: "bare object", response: `{"suggestions": []}`, want: `{"suggestions": []}`},
		{
			name:     "code fence",
			response: "Here you go:\n```json\n{\"suggestions\": [{\"a\": 1}]}\n```\nDone.",
			want:     `{"suggestions": [{"a": 1}]}`,
		},
		{name: "prose around", response: `Sure! [{"a": "}"}] hope it helps {`, want: `[{"a": "}"}]`},
		{name: "escaped quote", response: `{"a": "say \"}\" now"} trailing`, want: `{"a": "say \"}\" now"}`},
		{name: "nothing", response: "no json here", want: ""},
		{name: "unterminated", response: `{"a": [1, 2`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, extractJSON(tt.response))
		})
	}
}

func TestRawSuggestions(t *testing.T) {
	items, err := rawSuggestions(`{"suggestions": [{"suggestion_type": "quote"}, {"suggestion_type": "story_hook"}]}`)
	require.NoError(t, err)
	require.Len(t, items, 2)

	items, err = rawSuggestions(`[{"suggestion_type": "quote"}]`)
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = rawSuggestions(`{"suggestion_type": "quote", "suggested_value": "Hi"}`)
	require.NoError(t, err)
	require.Equal(t, []json.RawMessage{json.RawMessage(`{"suggestion_type": "quote", "suggested_value": "Hi"}`)}, items)

	items, err = rawSuggestions(`{"suggestions": null}`)
	require.NoError(t, err)
	require.Empty(t, items)

	_, err = rawSuggestions(`{"answer": 42}`)
	require.Error(t, err)

	_, err = rawSuggestions(`{"suggestions": "none"}`)
	require.Error(t, err)
}

func TestParseSuggestions_grounding(t *testing.T) {
	source := "Torik found his brother Betar in a cage at the black market.\n“Stay close,” Torik said."
	items := []json.RawMessage{
		json.RawMessage(`{"suggestion_type": "quote", "character_name": "Torik", "suggested_value": "Stay close",
			"source_excerpt": "\"Stay close,\" Torik said", "confidence": "high"}`),
		json.RawMessage(`{"suggestion_type": "story_hook", "character_name": "Torik", "suggested_value": "Who?",
			"source_excerpt": "Torik found ... at the black market", "confidence": "high"}`),
		json.RawMessage(`{"suggestion_type": "story_hook", "character_name": "Torik", "suggested_value": "Who?",
			"source_excerpt": "at the black market ... Torik found", "confidence": "high"}`),
		json.RawMessage(`{"suggestion_type": "status_change", "character_name": "Torik", "suggested_value": "dead",
			"source_excerpt": "Torik died", "confidence": "high"}`),
	}
	suggestions, dropped := parseSuggestions(items, source)
	require.Len(t, suggestions, 2)
	require.Len(t, dropped, 2, "parts out of order and invented excerpts are dropped")
}
