package intelligence

import (
	"context"
	"encoding/json"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/repositories"
	"log/slog"
	"slices"
	"strings"
)

// Failure is a suggestion that could not be applied.
type Failure struct {
	Suggestion json.RawMessage `json:"suggestion"`
	Reason     string          `json:"reason"`
}

// ApplyResult reports the outcome of applying a batch of suggestions.
type ApplyResult struct {
	AppliedCount int       `json:"appliedCount"`
	Failures     []Failure `json:"failures"`
}

// Applier writes approved suggestions to the entity store.
type Applier struct {
	characters    *repositories.CharacterRepository
	relationships *repositories.RelationshipRepository
	locations     *repositories.LocationRepository
	quests        *repositories.QuestRepository
	timeline      *repositories.TimelineRepository
	watermarks    *Watermarks
	logger        *slog.Logger
}

func NewApplier(
	characters *repositories.CharacterRepository,
	relationships *repositories.RelationshipRepository,
	locations *repositories.LocationRepository,
	quests *repositories.QuestRepository,
	timeline *repositories.TimelineRepository,
	watermarks *Watermarks,
	logger *slog.Logger,
) *Applier {
	return &Applier{
		characters:    characters,
		relationships: relationships,
		locations:     locations,
		quests:        quests,
		timeline:      timeline,
		watermarks:    watermarks,
		logger:        logger.With("source", "Applier"),
	}
}

type pendingSuggestion struct {
	raw        json.RawMessage
	suggestion models.Suggestion
}

// Apply validates and applies every item independently. Each item is one atomic write so a failure never leaves
// an item half applied and never affects the other items.
//
// Entity creating suggestions are applied first so that later items in the same batch can reference them. The
// campaign watermark advances to now when at least one item was applied.
func (a *Applier) Apply(ctx context.Context, campaignID string, items []json.RawMessage) (ApplyResult, error) {
	result := ApplyResult{AppliedCount: 0, Failures: []Failure{}}
	pending := make([]pendingSuggestion, 0, len(items))
	for _, item := range items {
		suggestion, err := models.ParseSuggestion(item)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Suggestion: item, Reason: err.Error()})
			continue
		}
		pending = append(pending, pendingSuggestion{raw: item, suggestion: suggestion})
	}
	return a.apply(ctx, campaignID, pending, result, true)
}

// ApplySuggestions applies already validated suggestions. Unlike Apply it leaves the watermark alone because the
// suggestions may come from a single session while other sessions are still unanalyzed.
func (a *Applier) ApplySuggestions(
	ctx context.Context,
	campaignID string,
	suggestions []models.Suggestion,
) (ApplyResult, error) {
	pending := make([]pendingSuggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		raw, err := json.Marshal(suggestion)
		if err != nil {
			return ApplyResult{}, errors.Wrap(err, "encode suggestion")
		}
		pending = append(pending, pendingSuggestion{raw: raw, suggestion: suggestion})
	}
	return a.apply(ctx, campaignID, pending, ApplyResult{AppliedCount: 0, Failures: []Failure{}}, false)
}

func (a *Applier) apply(
	ctx context.Context,
	campaignID string,
	pending []pendingSuggestion,
	result ApplyResult,
	advanceWatermark bool,
) (ApplyResult, error) {
	characters, err := a.characters.List(ctx, campaignID)
	if err != nil {
		return ApplyResult{}, errors.Wrap(err, "list characters", slog.String("campaign_id", campaignID))
	}
	resolver := NewResolver(characters)

	slices.SortStableFunc(pending, func(x, y pendingSuggestion) int {
		return creationRank(x.suggestion.Type) - creationRank(y.suggestion.Type)
	})

	for _, p := range pending {
		if err = a.applyOne(ctx, campaignID, resolver, p.suggestion); err != nil {
			level := slog.LevelWarn
			if !errors.Is(err, ErrUnresolved) && !errors.Is(err, ErrAlreadyExists) {
				level = slog.LevelError
			}
			a.logger.LogAttrs(ctx, level, "suggestion not applied",
				slog.String("campaign_id", campaignID),
				slog.String("suggestion_type", string(p.suggestion.Type)),
				errors.SlogError(err))
			result.Failures = append(result.Failures, Failure{Suggestion: p.raw, Reason: err.Error()})
			continue
		}
		result.AppliedCount++
	}

	if advanceWatermark && result.AppliedCount > 0 {
		if err = a.watermarks.AdvanceToNow(ctx, campaignID); err != nil {
			return result, errors.Wrap(err, "advance watermark", slog.String("campaign_id", campaignID))
		}
	}
	a.logger.LogAttrs(ctx, slog.LevelInfo, "applied suggestions",
		slog.String("campaign_id", campaignID),
		slog.Int("applied", result.AppliedCount),
		slog.Int("failed", len(result.Failures)))
	return result, nil
}

func creationRank(t models.SuggestionType) int {
	if t.CreatesEntity() {
		return 0
	}
	return 1
}

func (a *Applier) applyOne(
	ctx context.Context,
	campaignID string,
	resolver *Resolver,
	s models.Suggestion,
) error {
	switch v := s.Value.(type) {
	case models.StatusChange:
		return a.updateCharacter(ctx, resolver, s, func(c *models.Character) bool {
			if c.Status == v.Status {
				return false
			}
			c.Status = v.Status
			return true
		})
	case models.SecretRevealed:
		return a.updateCharacter(ctx, resolver, s, func(c *models.Character) bool {
			merged, changed := mergeSecret(c.Secrets, v.Secret)
			c.Secrets = merged
			return changed
		})
	case models.StoryHookValue:
		return a.updateCharacter(ctx, resolver, s, func(c *models.Character) bool {
			for _, hook := range c.StoryHooks {
				if strings.EqualFold(strings.TrimSpace(hook.Hook), strings.TrimSpace(v.Hook)) {
					return false
				}
			}
			c.StoryHooks = append(c.StoryHooks, models.StoryHook{Hook: v.Hook, SessionID: ""})
			return true
		})
	case models.QuoteValue:
		return a.updateCharacter(ctx, resolver, s, func(c *models.Character) bool {
			for _, quote := range c.Quotes {
				if strings.EqualFold(strings.TrimSpace(quote.Quote), strings.TrimSpace(v.Quote)) {
					return false
				}
			}
			c.Quotes = append(c.Quotes, models.Quote{Quote: v.Quote, Context: v.Context})
			return true
		})
	case models.ImportantPersonValue:
		person := models.ImportantPerson{Name: v.Name, Relationship: v.Relationship, Notes: v.Notes}
		return a.updateCharacter(ctx, resolver, s, func(c *models.Character) bool {
			if slices.ContainsFunc(c.ImportantPeople, person.SameAs) {
				return false
			}
			c.ImportantPeople = append(c.ImportantPeople, person)
			return true
		})
	case models.RelationshipValue:
		return a.addRelationship(ctx, campaignID, resolver, s, v)
	case models.TimelineEventValue:
		return a.addTimelineEvent(ctx, campaignID, resolver, s, models.TimelineEvent{ //nolint:exhaustruct // defaults
			CampaignID:  campaignID,
			Title:       v.Title,
			Description: v.Description,
			EventType:   v.EventType,
		})
	case models.EncounterDetected:
		description := v.Description
		if v.Outcome != "" {
			description = strings.TrimSpace(description + "\n\nOutcome: " + v.Outcome)
		}
		return a.addTimelineEvent(ctx, campaignID, resolver, s, models.TimelineEvent{ //nolint:exhaustruct // defaults
			CampaignID:  campaignID,
			Title:       v.Title,
			Description: description,
			EventType:   models.TimelineEventTypeEncounter,
		})
	case models.NPCDetected:
		return a.addNPC(ctx, campaignID, resolver, v)
	case models.LocationDetected:
		_, _, err := a.locations.Create(ctx, models.Location{
			ID:          "",
			CampaignID:  campaignID,
			Name:        v.Name,
			Type:        v.Type,
			Description: v.Description,
		})
		return err
	case models.QuestDetected:
		_, _, err := a.quests.Create(ctx, models.Quest{
			ID:          "",
			CampaignID:  campaignID,
			Name:        v.Name,
			Description: v.Description,
			Status:      v.Status,
		})
		return err
	default:
		return errors.Wrap(ErrSuggestionShape, "unsupported suggestion value",
			slog.String("suggestion_type", string(s.Type)))
	}
}

// maxWriteAttempts bounds the re-read loop when a concurrent writer bumps the character version.
const maxWriteAttempts = 2

// updateCharacter applies mutate to a fresh copy of the target character and writes it with a compare-and-swap
// on its version. mutate returns false when the change is already present.
func (a *Applier) updateCharacter(
	ctx context.Context,
	resolver *Resolver,
	s models.Suggestion,
	mutate func(c *models.Character) bool,
) error {
	target, err := resolver.Resolve(s.CharacterID, s.CharacterName)
	if err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		var current models.Character
		if current, err = a.characters.Get(ctx, target.ID); err != nil {
			return err
		}
		if !mutate(&current) {
			return nil
		}
		var updated models.Character
		updated, err = a.characters.Update(ctx, current)
		if errors.Is(err, repositories.ErrConflict) && attempt < maxWriteAttempts {
			continue
		}
		if err != nil {
			return err
		}
		resolver.Add(updated)
		return nil
	}
}

// mergeSecret appends secret as a new paragraph unless an equal paragraph is already present.
func mergeSecret(existing, secret string) (string, bool) {
	secret = strings.TrimSpace(secret)
	for _, paragraph := range strings.Split(existing, "\n\n") {
		if normalizeParagraph(paragraph) == normalizeParagraph(secret) {
			return existing, false
		}
	}
	if strings.TrimSpace(existing) == "" {
		return secret, true
	}
	return strings.TrimRight(existing, "\n") + "\n\n" + secret, true
}

func normalizeParagraph(paragraph string) string {
	return strings.ToLower(strings.TrimRight(strings.Join(strings.Fields(paragraph), " "), "."))
}

func (a *Applier) addRelationship(
	ctx context.Context,
	campaignID string,
	resolver *Resolver,
	s models.Suggestion,
	v models.RelationshipValue,
) error {
	from, err := resolver.Resolve(s.CharacterID, s.CharacterName)
	if err != nil {
		return err
	}
	to, err := resolver.Resolve(v.RelatedCharacterID, v.RelatedCharacterName)
	if err != nil {
		return err
	}
	if from.ID == to.ID {
		return errors.Wrap(ErrUnresolved, "character cannot relate to itself", slog.String("name", from.Name))
	}
	var label *string
	if v.RelationshipLabel != "" {
		label = &v.RelationshipLabel
	}
	_, err = a.relationships.Insert(ctx, models.CharacterRelationship{ //nolint:exhaustruct // generated fields
		CampaignID:         campaignID,
		CharacterID:        from.ID,
		RelatedCharacterID: to.ID,
		RelationshipType:   strings.ToLower(strings.TrimSpace(v.RelationshipType)),
		RelationshipLabel:  label,
	})
	return err
}

func (a *Applier) addTimelineEvent(
	ctx context.Context,
	campaignID string,
	resolver *Resolver,
	s models.Suggestion,
	event models.TimelineEvent,
) error {
	event.CampaignID = campaignID
	event.CharacterIDs = []string{}
	if s.CharacterName != "" || s.CharacterID != nil {
		character, err := resolver.Resolve(s.CharacterID, s.CharacterName)
		if err != nil {
			return err
		}
		event.CharacterIDs = append(event.CharacterIDs, character.ID)
	}
	_, created, err := a.timeline.Create(ctx, event)
	if err != nil {
		return err
	}
	if !created {
		return errors.Wrap(ErrAlreadyExists, "timeline event", slog.String("title", event.Title))
	}
	return nil
}

func (a *Applier) addNPC(ctx context.Context, campaignID string, resolver *Resolver, v models.NPCDetected) error {
	if resolver.Known(v.Name) {
		return nil
	}
	status := v.Status
	if status == "" {
		status = "alive"
	}
	created, err := a.characters.Create(ctx, models.Character{ //nolint:exhaustruct // generated fields
		CampaignID:  campaignID,
		Name:        v.Name,
		Type:        models.CharacterTypeNPC,
		Status:      status,
		Description: v.Description,
	})
	if err != nil {
		return err
	}
	resolver.Add(created)
	return nil
}
