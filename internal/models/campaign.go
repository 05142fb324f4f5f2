package models

import "time"

// Campaign owns sessions, characters, locations, quests and timeline events.
//
// LastIntelligenceRun is the watermark of the Campaign Intelligence pipeline. Nil means that nothing has been
// analyzed yet and the next analysis covers every session.
type Campaign struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	LastIntelligenceRun *time.Time `json:"lastIntelligenceRun"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// Session is one played game session. Notes may contain HTML from the rich text editor.
type Session struct {
	ID            string    `json:"id"`
	CampaignID    string    `json:"campaignId"`
	SessionNumber int       `json:"sessionNumber"`
	Title         string    `json:"title"`
	Date          string    `json:"date"`
	Summary       string    `json:"summary"`
	Notes         string    `json:"notes"`
	DMNotes       string    `json:"dmNotes"`
	Version       int64     `json:"version"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Location struct {
	ID          string `json:"id"`
	CampaignID  string `json:"campaignId"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type Quest struct {
	ID          string `json:"id"`
	CampaignID  string `json:"campaignId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

const (
	TimelineEventTypeEvent     = "event"
	TimelineEventTypeEncounter = "encounter"
)

type TimelineEvent struct {
	ID           string    `json:"id"`
	CampaignID   string    `json:"campaignId"`
	SessionID    *string   `json:"sessionId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	EventType    string    `json:"eventType"`
	CharacterIDs []string  `json:"characterIds"`
	CreatedAt    time.Time `json:"createdAt"`
}
