package models

import (
	"bytes"
	"encoding/json"
	"github.com/myrjola/chronicler/internal/errors"
	"log/slog"
	"strings"
	"time"
)

// ErrSuggestionShape is returned when a suggestion does not match the schema of its suggestion_type.
var ErrSuggestionShape = errors.NewSentinel("suggestion shape mismatch")

type SuggestionType string

const (
	SuggestionTypeStatusChange      SuggestionType = "status_change"
	SuggestionTypeSecretRevealed    SuggestionType = "secret_revealed"
	SuggestionTypeStoryHook         SuggestionType = "story_hook"
	SuggestionTypeQuote             SuggestionType = "quote"
	SuggestionTypeImportantPerson   SuggestionType = "important_person"
	SuggestionTypeRelationship      SuggestionType = "relationship"
	SuggestionTypeTimelineEvent     SuggestionType = "timeline_event"
	SuggestionTypeNPCDetected       SuggestionType = "npc_detected"
	SuggestionTypeLocationDetected  SuggestionType = "location_detected"
	SuggestionTypeQuestDetected     SuggestionType = "quest_detected"
	SuggestionTypeEncounterDetected SuggestionType = "encounter_detected"
)

// SuggestionTypes lists every recognized suggestion type.
var SuggestionTypes = []SuggestionType{ //nolint:gochecknoglobals // read-only enum
	SuggestionTypeStatusChange,
	SuggestionTypeSecretRevealed,
	SuggestionTypeStoryHook,
	SuggestionTypeQuote,
	SuggestionTypeImportantPerson,
	SuggestionTypeRelationship,
	SuggestionTypeTimelineEvent,
	SuggestionTypeNPCDetected,
	SuggestionTypeLocationDetected,
	SuggestionTypeQuestDetected,
	SuggestionTypeEncounterDetected,
}

// ParseSuggestionType coerces s into a SuggestionType. Case, padding and "-" or " " separators are tolerated.
func ParseSuggestionType(s string) (SuggestionType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, t := range SuggestionTypes {
		if string(t) == normalized {
			return t, true
		}
	}
	return "", false
}

// TargetsCharacter reports whether suggestions of type t mutate an existing character resolved from character_name.
func (t SuggestionType) TargetsCharacter() bool {
	switch t { //nolint:exhaustive // the rest create new entities.
	case SuggestionTypeStatusChange, SuggestionTypeSecretRevealed, SuggestionTypeStoryHook, SuggestionTypeQuote,
		SuggestionTypeImportantPerson, SuggestionTypeRelationship:
		return true
	default:
		return false
	}
}

// CreatesEntity reports whether suggestions of type t create a new entity that other suggestions may reference.
func (t SuggestionType) CreatesEntity() bool {
	switch t { //nolint:exhaustive // the rest mutate or reference existing entities.
	case SuggestionTypeNPCDetected, SuggestionTypeLocationDetected, SuggestionTypeQuestDetected:
		return true
	default:
		return false
	}
}

// defaultFieldName is the Character field targeted by t when the model leaves field_name empty.
func (t SuggestionType) defaultFieldName() string {
	switch t { //nolint:exhaustive // entity creating types have no field.
	case SuggestionTypeStatusChange:
		return "status"
	case SuggestionTypeSecretRevealed:
		return "secrets"
	case SuggestionTypeStoryHook:
		return "story_hooks"
	case SuggestionTypeQuote:
		return "quotes"
	case SuggestionTypeImportantPerson:
		return "important_people"
	case SuggestionTypeRelationship:
		return "relationships"
	default:
		return ""
	}
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence coerces s into a Confidence ignoring case and padding.
func ParseConfidence(s string) (Confidence, bool) {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c, true
	default:
		return "", false
	}
}

// Suggestion is a typed, model-produced proposal to change one entity, grounded in a quoted source excerpt.
//
// Value holds the suggested_value and its concrete type always matches Type.
type Suggestion struct {
	Type          SuggestionType
	CharacterName string
	CharacterID   *string
	FieldName     string
	CurrentValue  json.RawMessage
	Value         SuggestedValue
	SourceExcerpt string
	AIReasoning   string
	Confidence    Confidence
}

type suggestionWire struct {
	SuggestionType string          `json:"suggestion_type"`
	CharacterName  string          `json:"character_name"`
	CharacterID    *string         `json:"character_id"`
	FieldName      string          `json:"field_name"`
	CurrentValue   json.RawMessage `json:"current_value"`
	SuggestedValue json.RawMessage `json:"suggested_value"`
	SourceExcerpt  string          `json:"source_excerpt"`
	AIReasoning    string          `json:"ai_reasoning"`
	Confidence     string          `json:"confidence"`
}

// MarshalJSON encodes the suggestion in the wire format shared with the review UI.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	var (
		value []byte
		err   error
	)
	if s.Value != nil {
		if value, err = json.Marshal(s.Value); err != nil {
			return nil, errors.Wrap(err, "marshal suggested value")
		}
	}
	wire := suggestionWire{
		SuggestionType: string(s.Type),
		CharacterName:  s.CharacterName,
		CharacterID:    s.CharacterID,
		FieldName:      s.FieldName,
		CurrentValue:   s.CurrentValue,
		SuggestedValue: value,
		SourceExcerpt:  s.SourceExcerpt,
		AIReasoning:    s.AIReasoning,
		Confidence:     string(s.Confidence),
	}
	out, err := json.Marshal(wire)
	if err != nil {
		return nil, errors.Wrap(err, "marshal suggestion")
	}
	return out, nil
}

// UnmarshalJSON validates data with ParseSuggestion.
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSuggestion(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSuggestion decodes a single wire suggestion and validates it against the schema of its type.
//
// Every failure wraps ErrSuggestionShape.
func ParseSuggestion(data []byte) (Suggestion, error) {
	var wire suggestionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Suggestion{}, shapeError("decode suggestion", err)
	}

	suggestionType, ok := ParseSuggestionType(wire.SuggestionType)
	if !ok {
		return Suggestion{}, shapeError("unknown suggestion type", nil,
			slog.String("suggestion_type", wire.SuggestionType))
	}
	confidence, ok := ParseConfidence(wire.Confidence)
	if !ok {
		return Suggestion{}, shapeError("unknown confidence", nil, slog.String("confidence", wire.Confidence))
	}
	if strings.TrimSpace(wire.SourceExcerpt) == "" {
		return Suggestion{}, shapeError("missing source excerpt", nil,
			slog.String("suggestion_type", string(suggestionType)))
	}

	value, err := decodeSuggestedValue(suggestionType, wire.SuggestedValue)
	if err != nil {
		return Suggestion{}, err
	}

	characterName := strings.TrimSpace(wire.CharacterName)
	if characterName == "" {
		if npc, isNPC := value.(NPCDetected); isNPC {
			characterName = npc.Name
		}
	}
	if suggestionType.TargetsCharacter() && characterName == "" {
		return Suggestion{}, shapeError("missing character name", nil,
			slog.String("suggestion_type", string(suggestionType)))
	}

	var characterID *string
	if wire.CharacterID != nil && strings.TrimSpace(*wire.CharacterID) != "" {
		id := strings.TrimSpace(*wire.CharacterID)
		characterID = &id
	}

	fieldName := strings.TrimSpace(wire.FieldName)
	if fieldName == "" {
		fieldName = suggestionType.defaultFieldName()
	}

	currentValue := wire.CurrentValue
	if trimmed := bytes.TrimSpace(currentValue); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		currentValue = nil
	}

	return Suggestion{
		Type:          suggestionType,
		CharacterName: characterName,
		CharacterID:   characterID,
		FieldName:     fieldName,
		CurrentValue:  currentValue,
		Value:         value,
		SourceExcerpt: strings.TrimSpace(wire.SourceExcerpt),
		AIReasoning:   strings.TrimSpace(wire.AIReasoning),
		Confidence:    confidence,
	}, nil
}

func shapeError(msg string, cause error, attrs ...slog.Attr) error {
	if cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	return errors.Wrap(ErrSuggestionShape, msg, attrs...)
}

// SuggestionStatus is the review state of a persisted suggestion.
type SuggestionStatus string

const (
	SuggestionStatusPending  SuggestionStatus = "pending"
	SuggestionStatusApproved SuggestionStatus = "approved"
	SuggestionStatusRejected SuggestionStatus = "rejected"
)

// IntelligenceSuggestion is a suggestion persisted for asynchronous review from the character view.
type IntelligenceSuggestion struct {
	ID          string           `json:"id"`
	CampaignID  string           `json:"campaignId"`
	CharacterID *string          `json:"characterId"`
	SessionID   *string          `json:"sessionId"`
	Suggestion  Suggestion       `json:"suggestion"`
	Status      SuggestionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	ResolvedAt  *time.Time       `json:"resolvedAt"`
}
