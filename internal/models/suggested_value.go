package models

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

// SuggestedValue is the payload of a Suggestion. The concrete type is selected by the suggestion_type tag.
type SuggestedValue interface {
	SuggestionType() SuggestionType
	// primary fills the single required field from a bare JSON string.
	primary(s string) SuggestedValue
	validate() error
}

type StatusChange struct {
	Status string `json:"status"`
}

type SecretRevealed struct {
	Secret string `json:"secret"`
}

type StoryHookValue struct {
	Hook string `json:"hook"`
}

type QuoteValue struct {
	Quote   string `json:"quote"`
	Context string `json:"context,omitempty"`
}

type ImportantPersonValue struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Notes        string `json:"notes,omitempty"`
}

type RelationshipValue struct {
	RelatedCharacterName string  `json:"related_character_name"`
	RelatedCharacterID   *string `json:"related_character_id,omitempty"`
	RelationshipType     string  `json:"relationship_type"`
	RelationshipLabel    string  `json:"relationship_label,omitempty"`
}

type TimelineEventValue struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	EventType   string `json:"event_type,omitempty"`
}

type NPCDetected struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

type LocationDetected struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

type QuestDetected struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

type EncounterDetected struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
}

func (StatusChange) SuggestionType() SuggestionType         { return SuggestionTypeStatusChange }
func (SecretRevealed) SuggestionType() SuggestionType       { return SuggestionTypeSecretRevealed }
func (StoryHookValue) SuggestionType() SuggestionType       { return SuggestionTypeStoryHook }
func (QuoteValue) SuggestionType() SuggestionType           { return SuggestionTypeQuote }
func (ImportantPersonValue) SuggestionType() SuggestionType { return SuggestionTypeImportantPerson }
func (RelationshipValue) SuggestionType() SuggestionType    { return SuggestionTypeRelationship }
func (TimelineEventValue) SuggestionType() SuggestionType   { return SuggestionTypeTimelineEvent }
func (NPCDetected) SuggestionType() SuggestionType          { return SuggestionTypeNPCDetected }
func (LocationDetected) SuggestionType() SuggestionType     { return SuggestionTypeLocationDetected }
func (QuestDetected) SuggestionType() SuggestionType        { return SuggestionTypeQuestDetected }
func (EncounterDetected) SuggestionType() SuggestionType    { return SuggestionTypeEncounterDetected }

func (v StatusChange) primary(s string) SuggestedValue {
	v.Status = s
	return v
}

func (v SecretRevealed) primary(s string) SuggestedValue {
	v.Secret = s
	return v
}

func (v StoryHookValue) primary(s string) SuggestedValue {
	v.Hook = s
	return v
}

func (v QuoteValue) primary(s string) SuggestedValue {
	v.Quote = s
	return v
}

func (v ImportantPersonValue) primary(s string) SuggestedValue {
	v.Name = s
	return v
}

func (v RelationshipValue) primary(s string) SuggestedValue {
	v.RelatedCharacterName = s
	return v
}

func (v TimelineEventValue) primary(s string) SuggestedValue {
	v.Title = s
	return v
}

func (v NPCDetected) primary(s string) SuggestedValue {
	v.Name = s
	return v
}

func (v LocationDetected) primary(s string) SuggestedValue {
	v.Name = s
	return v
}

func (v QuestDetected) primary(s string) SuggestedValue {
	v.Name = s
	return v
}

func (v EncounterDetected) primary(s string) SuggestedValue {
	v.Title = s
	return v
}

func requireFields(t SuggestionType, fields map[string]string) error {
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return shapeError("missing suggested value field", nil,
				slog.String("suggestion_type", string(t)), slog.String("field", name))
		}
	}
	return nil
}

func (v StatusChange) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"status": v.Status})
}

func (v SecretRevealed) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"secret": v.Secret})
}

func (v StoryHookValue) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"hook": v.Hook})
}

func (v QuoteValue) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"quote": v.Quote})
}

func (v ImportantPersonValue) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"name": v.Name, "relationship": v.Relationship})
}

func (v RelationshipValue) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{
		"related_character_name": v.RelatedCharacterName,
		"relationship_type":      v.RelationshipType,
	})
}

func (v TimelineEventValue) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"title": v.Title})
}

func (v NPCDetected) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"name": v.Name})
}

func (v LocationDetected) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"name": v.Name})
}

func (v QuestDetected) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"name": v.Name})
}

func (v EncounterDetected) validate() error {
	return requireFields(v.SuggestionType(), map[string]string{"title": v.Title})
}

func emptyValue(t SuggestionType) SuggestedValue {
	switch t {
	case SuggestionTypeStatusChange:
		return StatusChange{}
	case SuggestionTypeSecretRevealed:
		return SecretRevealed{}
	case SuggestionTypeStoryHook:
		return StoryHookValue{}
	case SuggestionTypeQuote:
		return QuoteValue{}
	case SuggestionTypeImportantPerson:
		return ImportantPersonValue{}
	case SuggestionTypeRelationship:
		return RelationshipValue{}
	case SuggestionTypeTimelineEvent:
		return TimelineEventValue{}
	case SuggestionTypeNPCDetected:
		return NPCDetected{}
	case SuggestionTypeLocationDetected:
		return LocationDetected{}
	case SuggestionTypeQuestDetected:
		return QuestDetected{}
	case SuggestionTypeEncounterDetected:
		return EncounterDetected{}
	default:
		return nil
	}
}

// decodeInto unmarshals raw into a fresh T.
func decodeInto[T SuggestedValue](raw []byte) (SuggestedValue, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by the caller.
	}
	return v, nil
}

func decodeObject(t SuggestionType, raw []byte) (SuggestedValue, error) {
	switch t {
	case SuggestionTypeStatusChange:
		return decodeInto[StatusChange](raw)
	case SuggestionTypeSecretRevealed:
		return decodeInto[SecretRevealed](raw)
	case SuggestionTypeStoryHook:
		return decodeInto[StoryHookValue](raw)
	case SuggestionTypeQuote:
		return decodeInto[QuoteValue](raw)
	case SuggestionTypeImportantPerson:
		return decodeInto[ImportantPersonValue](raw)
	case SuggestionTypeRelationship:
		return decodeInto[RelationshipValue](raw)
	case SuggestionTypeTimelineEvent:
		return decodeInto[TimelineEventValue](raw)
	case SuggestionTypeNPCDetected:
		return decodeInto[NPCDetected](raw)
	case SuggestionTypeLocationDetected:
		return decodeInto[LocationDetected](raw)
	case SuggestionTypeQuestDetected:
		return decodeInto[QuestDetected](raw)
	case SuggestionTypeEncounterDetected:
		return decodeInto[EncounterDetected](raw)
	default:
		return nil, shapeError("unknown suggestion type", nil, slog.String("suggestion_type", string(t)))
	}
}

// decodeSuggestedValue parses raw into the payload type selected by t.
//
// A bare JSON string is accepted and fills the primary field of the payload.
func decodeSuggestedValue(t SuggestionType, raw json.RawMessage) (SuggestedValue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, shapeError("missing suggested value", nil, slog.String("suggestion_type", string(t)))
	}

	var (
		value SuggestedValue
		err   error
	)
	if trimmed[0] == '"' {
		var s string
		if err = json.Unmarshal(trimmed, &s); err != nil {
			return nil, shapeError("decode suggested value", err, slog.String("suggestion_type", string(t)))
		}
		value = emptyValue(t).primary(strings.TrimSpace(s))
	} else {
		if value, err = decodeObject(t, trimmed); err != nil {
			return nil, shapeError("decode suggested value", err, slog.String("suggestion_type", string(t)))
		}
	}

	if err = value.validate(); err != nil {
		return nil, err
	}
	return value, nil
}
