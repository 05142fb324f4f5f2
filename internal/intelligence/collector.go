package intelligence

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/notes"
	"github.com/myrjola/chronicler/internal/repositories"
	"log/slog"
	"strings"
	"time"
)

// AnalyzedSession is a session with its notes converted to plain text.
type AnalyzedSession struct {
	models.Session
	PlainNotes   string
	PlainDMNotes string
}

// Text is everything quotable from the session.
func (s AnalyzedSession) Text() string {
	return s.Title + "\n" + s.Summary + "\n" + s.PlainNotes + "\n" + s.PlainDMNotes
}

// CollectedCharacter is a character together with whether it changed since the last intelligence run.
type CollectedCharacter struct {
	models.Character
	ChangedSinceLastRun bool
}

// Payload is the content of one analysis.
type Payload struct {
	Campaign      models.Campaign
	Characters    []CollectedCharacter
	Relationships []models.CharacterRelationship
	Sessions      []AnalyzedSession
	Watermark     *time.Time
}

// NoNewContent reports whether the campaign has been analyzed before and no session changed since.
func (p Payload) NoNewContent() bool {
	return p.Watermark != nil && len(p.Sessions) == 0
}

// Text concatenates the quotable text of all sessions.
func (p Payload) Text() string {
	var text strings.Builder
	for _, session := range p.Sessions {
		text.WriteString(session.Text())
		text.WriteString("\n")
	}
	return text.String()
}

// Collector gathers the characters and new sessions of a campaign.
type Collector struct {
	campaigns     *repositories.CampaignRepository
	characters    *repositories.CharacterRepository
	relationships *repositories.RelationshipRepository
	sessions      *repositories.SessionRepository
	logger        *slog.Logger
}

func NewCollector(
	campaigns *repositories.CampaignRepository,
	characters *repositories.CharacterRepository,
	relationships *repositories.RelationshipRepository,
	sessions *repositories.SessionRepository,
	logger *slog.Logger,
) *Collector {
	return &Collector{
		campaigns:     campaigns,
		characters:    characters,
		relationships: relationships,
		sessions:      sessions,
		logger:        logger.With("source", "Collector"),
	}
}

// Collect returns every character of the campaign and the sessions updated after its watermark.
//
// All sessions are returned when the campaign has no watermark. Unknown campaigns return
// repositories.ErrNotFound, other failures wrap ErrCollection.
func (c *Collector) Collect(ctx context.Context, campaignID string) (Payload, error) {
	campaign, err := c.campaigns.Get(ctx, campaignID)
	if err != nil {
		return Payload{}, collectionError(err, "get campaign", campaignID)
	}
	sessions, err := c.sessions.ListByCampaign(ctx, campaignID, campaign.LastIntelligenceRun)
	if err != nil {
		return Payload{}, collectionError(err, "list sessions", campaignID)
	}
	return c.collect(ctx, campaign, sessions)
}

// CollectSession returns the campaign content for analyzing a single session regardless of the watermark.
func (c *Collector) CollectSession(ctx context.Context, sessionID string) (Payload, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return Payload{}, collectionError(err, "get session", "")
	}
	campaign, err := c.campaigns.Get(ctx, session.CampaignID)
	if err != nil {
		return Payload{}, collectionError(err, "get campaign", session.CampaignID)
	}
	return c.collect(ctx, campaign, []models.Session{session})
}

func (c *Collector) collect(ctx context.Context, campaign models.Campaign, sessions []models.Session) (Payload, error) {
	characters, err := c.characters.List(ctx, campaign.ID)
	if err != nil {
		return Payload{}, collectionError(err, "list characters", campaign.ID)
	}
	relationships, err := c.relationships.List(ctx, campaign.ID)
	if err != nil {
		return Payload{}, collectionError(err, "list relationships", campaign.ID)
	}

	payload := Payload{
		Campaign:      campaign,
		Characters:    make([]CollectedCharacter, 0, len(characters)),
		Relationships: relationships,
		Sessions:      make([]AnalyzedSession, 0, len(sessions)),
		Watermark:     campaign.LastIntelligenceRun,
	}
	for _, character := range characters {
		changed := campaign.LastIntelligenceRun == nil || character.UpdatedAt.After(*campaign.LastIntelligenceRun)
		payload.Characters = append(payload.Characters, CollectedCharacter{
			Character:           character,
			ChangedSinceLastRun: changed,
		})
	}
	for _, session := range sessions {
		analyzed := AnalyzedSession{Session: session, PlainNotes: "", PlainDMNotes: ""}
		if analyzed.PlainNotes, err = notes.PlainText(session.Notes); err != nil {
			return Payload{}, collectionError(err, "convert session notes", campaign.ID)
		}
		if analyzed.PlainDMNotes, err = notes.PlainText(session.DMNotes); err != nil {
			return Payload{}, collectionError(err, "convert dm notes", campaign.ID)
		}
		payload.Sessions = append(payload.Sessions, analyzed)
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "collected campaign content",
		slog.String("campaign_id", campaign.ID),
		slog.Int("characters", len(payload.Characters)),
		slog.Int("sessions", len(payload.Sessions)))
	return payload, nil
}

func collectionError(err error, msg string, campaignID string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return errors.Wrap(err, msg, slog.String("campaign_id", campaignID))
	}
	return errors.Wrap(errors.Join(ErrCollection, err), msg, slog.String("campaign_id", campaignID))
}
