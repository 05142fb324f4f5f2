package models

import (
	"strings"
	"time"
)

type CharacterType string

const (
	CharacterTypePC  CharacterType = "pc"
	CharacterTypeNPC CharacterType = "npc"
)

// ImportantPerson is an entry of Character.ImportantPeople. Entries are unique by name and relationship.
type ImportantPerson struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Notes        string `json:"notes"`
}

// SameAs reports whether p and other describe the same person in the same role, ignoring case and padding.
func (p ImportantPerson) SameAs(other ImportantPerson) bool {
	return strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(other.Name)) &&
		strings.EqualFold(strings.TrimSpace(p.Relationship), strings.TrimSpace(other.Relationship))
}

type StoryHook struct {
	Hook      string `json:"hook"`
	SessionID string `json:"sessionId,omitempty"`
}

type Quote struct {
	Quote   string `json:"quote"`
	Context string `json:"context,omitempty"`
}

// Character is a player character or an NPC.
//
// Version is bumped on every write so that concurrent writers can detect lost updates.
type Character struct {
	ID                string            `json:"id"`
	CampaignID        string            `json:"campaignId"`
	Name              string            `json:"name"`
	Type              CharacterType     `json:"type"`
	Status            string            `json:"status"`
	Summary           string            `json:"summary"`
	Description       string            `json:"description"`
	Personality       string            `json:"personality"`
	Goals             string            `json:"goals"`
	Secrets           string            `json:"secrets"`
	ImportantPeople   []ImportantPerson `json:"importantPeople"`
	StoryHooks        []StoryHook       `json:"storyHooks"`
	Quotes            []Quote           `json:"quotes"`
	CurrentLocationID *string           `json:"currentLocationId"`
	Version           int64             `json:"version"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// CharacterRelationship is a directed edge from CharacterID to RelatedCharacterID.
type CharacterRelationship struct {
	ID                 string    `json:"id"`
	CampaignID         string    `json:"campaignId"`
	CharacterID        string    `json:"characterId"`
	RelatedCharacterID string    `json:"relatedCharacterId"`
	RelationshipType   string    `json:"relationshipType"`
	RelationshipLabel  *string   `json:"relationshipLabel"`
	CreatedAt          time.Time `json:"createdAt"`
}
