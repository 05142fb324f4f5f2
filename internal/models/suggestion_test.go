package models_test

import (
	"encoding/json"
	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseSuggestion(t *testing.T) {
	torikID := "char-torik"
	tests := []struct {
		name    string
		input   string
		want    models.Suggestion
		wantErr bool
	}{
		{
			name: "important person",
			input: `{
				"suggestion_type": "important_person",
				"character_name": "Torik",
				"character_id": "char-torik",
				"field_name": "important_people",
				"current_value": null,
				"suggested_value": {"name": "Betar", "relationship": "brother", "notes": "found in a cage"},
				"source_excerpt": "Torik found his brother Betar in a cage",
				"ai_reasoning": "explicit statement",
				"confidence": "high"
			}`,
			want: models.Suggestion{
				Type:          models.SuggestionTypeImportantPerson,
				CharacterName: "Torik",
				CharacterID:   &torikID,
				FieldName:     "important_people",
				Value: models.ImportantPersonValue{
					Name:         "Betar",
					Relationship: "brother",
					Notes:        "found in a cage",
				},
				SourceExcerpt: "Torik found his brother Betar in a cage",
				AIReasoning:   "explicit statement",
				Confidence:    models.ConfidenceHigh,
			},
		},
		{
			name: "coerces type, confidence and bare string value",
			input: `{
				"suggestion_type": "Story-Hook",
				"character_name": "Torik",
				"suggested_value": "Who sold Betar?",
				"source_excerpt": "in a cage at the black market",
				"confidence": " MEDIUM "
			}`,
			want: models.Suggestion{
				Type:          models.SuggestionTypeStoryHook,
				CharacterName: "Torik",
				FieldName:     "story_hooks",
				Value:         models.StoryHookValue{Hook: "Who sold Betar?"},
				SourceExcerpt: "in a cage at the black market",
				Confidence:    models.ConfidenceMedium,
			},
		},
		{
			name: "npc detected falls back to payload name",
			input: `{
				"suggestion_type": "npc_detected",
				"suggested_value": {"name": "Betar", "status": "captive"},
				"source_excerpt": "his brother Betar",
				"confidence": "low"
			}`,
			want: models.Suggestion{
				Type:          models.SuggestionTypeNPCDetected,
				CharacterName: "Betar",
				Value:         models.NPCDetected{Name: "Betar", Status: "captive"},
				SourceExcerpt: "his brother Betar",
				Confidence:    models.ConfidenceLow,
			},
		},
		{
			name:    "unknown type",
			input:   `{"suggestion_type": "mood", "character_name": "Torik", "suggested_value": "sad", "source_excerpt": "x", "confidence": "high"}`,
			wantErr: true,
		},
		{
			name:    "unknown confidence",
			input:   `{"suggestion_type": "quote", "character_name": "Torik", "suggested_value": "Hi", "source_excerpt": "x", "confidence": "certain"}`,
			wantErr: true,
		},
		{
			name:    "missing excerpt",
			input:   `{"suggestion_type": "quote", "character_name": "Torik", "suggested_value": "Hi", "confidence": "high"}`,
			wantErr: true,
		},
		{
			name:    "missing character name",
			input:   `{"suggestion_type": "status_change", "suggested_value": "dead", "source_excerpt": "x", "confidence": "high"}`,
			wantErr: true,
		},
		{
			name:    "payload does not match type",
			input:   `{"suggestion_type": "relationship", "character_name": "Torik", "suggested_value": {"name": "Betar"}, "source_excerpt": "x", "confidence": "high"}`,
			wantErr: true,
		},
		{
			name:    "payload of wrong kind",
			input:   `{"suggestion_type": "quest_detected", "suggested_value": [1, 2], "source_excerpt": "x", "confidence": "high"}`,
			wantErr: true,
		},
		{
			name:    "missing payload",
			input:   `{"suggestion_type": "secret_revealed", "character_name": "Torik", "source_excerpt": "x", "confidence": "high"}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			input:   `"status_change"`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := models.ParseSuggestion([]byte(tt.input))
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrSuggestionShape)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseSuggestion() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSuggestion_JSONWireFormat(t *testing.T) {
	label := "sibling"
	original := models.Suggestion{
		Type:          models.SuggestionTypeRelationship,
		CharacterName: "Torik",
		FieldName:     "relationships",
		Value: models.RelationshipValue{
			RelatedCharacterName: "Betar",
			RelationshipType:     "family",
			RelationshipLabel:    label,
		},
		SourceExcerpt: "his brother Betar",
		Confidence:    models.ConfidenceHigh,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	require.Equal(t, "relationship", wire["suggestion_type"])
	require.Nil(t, wire["current_value"])
	require.Equal(t, map[string]any{
		"related_character_name": "Betar",
		"relationship_type":      "family",
		"relationship_label":     "sibling",
	}, wire["suggested_value"])

	var decoded models.Suggestion
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)
}

func TestSuggestion_UnmarshalInvalid(t *testing.T) {
	var s models.Suggestion
	err := json.Unmarshal([]byte(`{"suggestion_type": "quote"}`), &s)
	require.True(t, errors.Is(err, models.ErrSuggestionShape))
}

func TestSuggestionType_ordering(t *testing.T) {
	require.True(t, models.SuggestionTypeNPCDetected.CreatesEntity())
	require.False(t, models.SuggestionTypeRelationship.CreatesEntity())
	require.True(t, models.SuggestionTypeRelationship.TargetsCharacter())
	require.False(t, models.SuggestionTypeEncounterDetected.TargetsCharacter())
}

func TestImportantPerson_SameAs(t *testing.T) {
	a := models.ImportantPerson{Name: "Betar", Relationship: "Brother", Notes: "caged"}
	require.True(t, a.SameAs(models.ImportantPerson{Name: " betar", Relationship: "brother", Notes: ""}))
	require.False(t, a.SameAs(models.ImportantPerson{Name: "Betar", Relationship: "rival", Notes: ""}))
}
