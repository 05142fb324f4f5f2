package intelligence

import (
	"bytes"
	"encoding/json"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"log/slog"
	"strings"
)

// extractJSON finds the JSON document in a model response that may wrap it in prose or a code fence.
func extractJSON(response string) string {
	s := strings.TrimSpace(response)
	if start := strings.Index(s, "```"); start != -1 {
		rest := s[start+3:]
		if newline := strings.IndexByte(rest, '\n'); newline != -1 {
			rest = rest[newline+1:]
		}
		if end := strings.Index(rest, "```"); end != -1 {
			s = strings.TrimSpace(rest[:end])
		}
	}
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	open, closing := s[start], byte('}')
	if open == '[' {
		closing = ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// rawSuggestions splits the model response into one raw message per suggestion.
//
// The response may be a {"suggestions": [...]} object, a bare array or a single suggestion object.
func rawSuggestions(response string) ([]json.RawMessage, error) {
	document := extractJSON(response)
	if document == "" {
		return nil, errors.New("no JSON document in model response", slog.Int("response_length", len(response)))
	}
	if document[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(document), &items); err != nil {
			return nil, errors.Wrap(err, "decode suggestion array")
		}
		return items, nil
	}
	var envelope struct {
		Suggestions json.RawMessage `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(document), &envelope); err != nil {
		return nil, errors.Wrap(err, "decode suggestion envelope")
	}
	if len(envelope.Suggestions) == 0 {
		if bytes.Contains([]byte(document), []byte(`"suggestion_type"`)) {
			return []json.RawMessage{json.RawMessage(document)}, nil
		}
		return nil, errors.New("model response has no suggestions field")
	}
	if bytes.Equal(bytes.TrimSpace(envelope.Suggestions), []byte("null")) {
		return []json.RawMessage{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(envelope.Suggestions, &items); err != nil {
		return nil, errors.Wrap(err, "decode suggestions field")
	}
	return items, nil
}

// DroppedSuggestion is a model output item that failed validation.
type DroppedSuggestion struct {
	Raw    json.RawMessage
	Reason error
}

// parseSuggestions validates every item. Items failing the schema or the grounding check are dropped.
func parseSuggestions(items []json.RawMessage, sourceText string) ([]models.Suggestion, []DroppedSuggestion) {
	suggestions := make([]models.Suggestion, 0, len(items))
	var dropped []DroppedSuggestion
	for _, item := range items {
		suggestion, err := models.ParseSuggestion(item)
		if err != nil {
			dropped = append(dropped, DroppedSuggestion{Raw: item, Reason: err})
			continue
		}
		if !excerptGrounded(sourceText, suggestion.SourceExcerpt) {
			dropped = append(dropped, DroppedSuggestion{
				Raw: item,
				Reason: errors.New("source excerpt not found in session notes",
					slog.String("excerpt", suggestion.SourceExcerpt)),
			})
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, dropped
}
