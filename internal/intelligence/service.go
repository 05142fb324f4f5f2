// Package intelligence turns session notes into reviewable suggestions for character records and applies the
// approved ones.
package intelligence

import (
	"context"
	"encoding/json"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/notes"
	"github.com/myrjola/chronicler/internal/repositories"
	"github.com/myrjola/chronicler/internal/sqlite"
	"golang.org/x/sync/singleflight"
	"log/slog"
	"time"
)

// AnalyzeResult is either a list of suggestions with stats or the NoNewContent marker.
type AnalyzeResult struct {
	Suggestions  []models.Suggestion `json:"suggestions"`
	Stats        Stats               `json:"stats"`
	NoNewContent bool                `json:"noNewContent,omitempty"`
}

// Service is the entry point of the Campaign Intelligence pipeline.
type Service struct {
	collector   *Collector
	generator   *Generator
	applier     *Applier
	watermarks  *Watermarks
	prompts     *Prompts
	providers   *ai.Providers
	campaigns   *repositories.CampaignRepository
	sessions    *repositories.SessionRepository
	characters  *repositories.CharacterRepository
	suggestions *repositories.SuggestionRepository
	inflight    singleflight.Group
	logger      *slog.Logger
}

// New wires the pipeline on top of database. modelTimeout bounds every model call.
func New(
	database *sqlite.Database,
	providers *ai.Providers,
	modelTimeout time.Duration,
	logger *slog.Logger,
) (*Service, error) {
	prompts, err := LoadPrompts()
	if err != nil {
		return nil, err
	}
	tokens, err := notes.NewTokenCounter()
	if err != nil {
		return nil, err
	}
	var (
		campaigns     = repositories.NewCampaignRepository(database, logger)
		sessions      = repositories.NewSessionRepository(database, logger)
		characters    = repositories.NewCharacterRepository(database, logger)
		relationships = repositories.NewRelationshipRepository(database, logger)
		watermarks    = NewWatermarks(campaigns)
	)
	return &Service{
		collector: NewCollector(campaigns, characters, relationships, sessions, logger),
		generator: NewGenerator(providers, prompts, tokens, modelTimeout, logger),
		applier: NewApplier(
			characters,
			relationships,
			repositories.NewLocationRepository(database, logger),
			repositories.NewQuestRepository(database, logger),
			repositories.NewTimelineRepository(database, logger),
			watermarks,
			logger,
		),
		watermarks:  watermarks,
		prompts:     prompts,
		providers:   providers,
		campaigns:   campaigns,
		sessions:    sessions,
		characters:  characters,
		suggestions: repositories.NewSuggestionRepository(database, logger),
		inflight:    singleflight.Group{},
		logger:      logger.With("source", "intelligence.Service"),
	}, nil
}

// Analyze suggests updates from the sessions changed since the last intelligence run.
//
// Concurrent calls for the same campaign and provider share one model call.
func (s *Service) Analyze(ctx context.Context, campaignID, provider string) (AnalyzeResult, error) {
	key := campaignID + "\x00" + provider
	value, err, shared := s.inflight.Do(key, func() (any, error) {
		// The model call outlives a cancelled first caller so that joined callers still get a result.
		return s.analyze(context.WithoutCancel(ctx), campaignID, provider)
	})
	if err != nil {
		return AnalyzeResult{}, err //nolint:wrapcheck // wrapped inside analyze.
	}
	if shared {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "joined in-flight analysis", slog.String("campaign_id", campaignID))
	}
	return value.(AnalyzeResult), nil //nolint:forcetypeassert // only analyze results are stored.
}

func (s *Service) analyze(ctx context.Context, campaignID, provider string) (AnalyzeResult, error) {
	payload, err := s.collector.Collect(ctx, campaignID)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if payload.NoNewContent() {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "no new content since last intelligence run",
			slog.String("campaign_id", campaignID), slog.Time("watermark", *payload.Watermark))
		return AnalyzeResult{Suggestions: nil, Stats: Stats{}, NoNewContent: true}, nil //nolint:exhaustruct // empty
	}
	if len(payload.Sessions) == 0 {
		return AnalyzeResult{
			Suggestions:  []models.Suggestion{},
			Stats:        computeStats(payload, nil),
			NoNewContent: false,
		}, nil
	}
	generation, err := s.generator.Generate(ctx, payload, provider)
	if err != nil {
		return AnalyzeResult{}, err
	}
	return AnalyzeResult{Suggestions: generation.Suggestions, Stats: generation.Stats, NoNewContent: false}, nil
}

// SessionAnalysis is the result of analyzing one session.
type SessionAnalysis struct {
	AnalyzeResult
	// Persisted holds the stored suggestions when persisting was requested.
	Persisted []models.IntelligenceSuggestion
}

// AnalyzeSession suggests updates from a single session regardless of the watermark. With persist the
// suggestions are stored as pending for later review.
func (s *Service) AnalyzeSession(
	ctx context.Context,
	sessionID, provider string,
	persist bool,
) (SessionAnalysis, error) {
	payload, err := s.collector.CollectSession(ctx, sessionID)
	if err != nil {
		return SessionAnalysis{}, err
	}
	generation, err := s.generator.Generate(ctx, payload, provider)
	if err != nil {
		return SessionAnalysis{}, err
	}
	analysis := SessionAnalysis{
		AnalyzeResult: AnalyzeResult{Suggestions: generation.Suggestions, Stats: generation.Stats, NoNewContent: false},
		Persisted:     nil,
	}
	if !persist || len(generation.Suggestions) == 0 {
		return analysis, nil
	}

	characters := make([]models.Character, 0, len(payload.Characters))
	for _, character := range payload.Characters {
		characters = append(characters, character.Character)
	}
	resolver := NewResolver(characters)
	records := make([]models.IntelligenceSuggestion, 0, len(generation.Suggestions))
	for _, suggestion := range generation.Suggestions {
		record := models.IntelligenceSuggestion{ //nolint:exhaustruct // generated fields
			CampaignID: payload.Campaign.ID,
			SessionID:  &sessionID,
			Suggestion: suggestion,
		}
		if suggestion.Type.TargetsCharacter() {
			if character, resolveErr := resolver.Resolve(suggestion.CharacterID, suggestion.CharacterName); resolveErr == nil {
				record.CharacterID = &character.ID
			}
		}
		records = append(records, record)
	}
	if analysis.Persisted, err = s.suggestions.CreateBatch(ctx, records); err != nil {
		return SessionAnalysis{}, errors.Wrap(err, "persist suggestions", slog.String("session_id", sessionID))
	}
	return analysis, nil
}

// Apply applies the reviewed suggestions of a campaign.
func (s *Service) Apply(ctx context.Context, campaignID string, items []json.RawMessage) (ApplyResult, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return ApplyResult{}, err
	}
	return s.applier.Apply(ctx, campaignID, items)
}

// Session returns the play session with the given id.
func (s *Service) Session(ctx context.Context, sessionID string) (models.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Reset clears the watermark of the campaign so that the next analysis covers every session.
func (s *Service) Reset(ctx context.Context, campaignID string) error {
	return s.watermarks.Reset(ctx, campaignID)
}

// Watermark returns the last intelligence run of the campaign.
func (s *Service) Watermark(ctx context.Context, campaignID string) (*time.Time, error) {
	return s.watermarks.Get(ctx, campaignID)
}

// ListSuggestions returns the persisted suggestions of a campaign.
func (s *Service) ListSuggestions(
	ctx context.Context,
	campaignID string,
	filter repositories.SuggestionFilter,
) ([]models.IntelligenceSuggestion, error) {
	return s.suggestions.List(ctx, campaignID, filter)
}

// ResolvedSuggestion is a reviewed persisted suggestion. Result is set for approvals.
type ResolvedSuggestion struct {
	Suggestion models.IntelligenceSuggestion `json:"suggestion"`
	Result     *ApplyResult                  `json:"result,omitempty"`
}

// ResolveSuggestion approves or rejects a pending suggestion. Approving applies it. A suggestion that fails to
// apply stays pending.
func (s *Service) ResolveSuggestion(ctx context.Context, id string, approve bool) (ResolvedSuggestion, error) {
	if !approve {
		rejected, err := s.suggestions.Resolve(ctx, id, models.SuggestionStatusRejected)
		if err != nil {
			return ResolvedSuggestion{}, err
		}
		return ResolvedSuggestion{Suggestion: rejected, Result: nil}, nil
	}

	approved, err := s.suggestions.Resolve(ctx, id, models.SuggestionStatusApproved)
	if err != nil {
		return ResolvedSuggestion{}, err
	}
	result, err := s.applier.ApplySuggestions(ctx, approved.CampaignID, []models.Suggestion{approved.Suggestion})
	if err != nil || result.AppliedCount == 0 {
		if reopenErr := s.suggestions.Reopen(ctx, id); reopenErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "reopen suggestion failed", errors.SlogError(reopenErr))
		}
		if err != nil {
			return ResolvedSuggestion{}, err
		}
		approved.Status = models.SuggestionStatusPending
		approved.ResolvedAt = nil
	}
	return ResolvedSuggestion{Suggestion: approved, Result: &result}, nil
}

// ExpandNotesRequest asks for a write-up of quick notes.
type ExpandNotesRequest struct {
	CampaignID string
	Notes      string
	Provider   string
}

// ExpandNotes streams a model write-up of quick notes split into sections. onDelta receives the section text as
// soon as the section it belongs to is known.
func (s *Service) ExpandNotes(
	ctx context.Context,
	req ExpandNotesRequest,
	onDelta func(delta notes.SectionDelta) error,
) (notes.Expansion, error) {
	model, err := s.providers.Get(req.Provider)
	if err != nil {
		return notes.Expansion{}, err
	}
	input := ExpandNotesInput{CampaignName: "", Characters: nil, Notes: req.Notes}
	if input.Notes, err = notes.PlainText(req.Notes); err != nil {
		return notes.Expansion{}, err
	}
	if req.CampaignID != "" {
		var campaign models.Campaign
		if campaign, err = s.campaigns.Get(ctx, req.CampaignID); err != nil {
			return notes.Expansion{}, err
		}
		input.CampaignName = campaign.Name
		var characters []models.Character
		if characters, err = s.characters.List(ctx, req.CampaignID); err != nil {
			return notes.Expansion{}, errors.Wrap(err, "list characters")
		}
		for _, character := range characters {
			input.Characters = append(input.Characters, character.Name)
		}
	}
	modelReq, err := s.prompts.ExpandNotes(input)
	if err != nil {
		return notes.Expansion{}, err
	}

	var (
		parser    = notes.NewSectionParser()
		expansion notes.Expansion
	)
	emit := func(deltas []notes.SectionDelta) error {
		expansion.Add(deltas...)
		for _, delta := range deltas {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
		return nil
	}
	modelCtx, cancel := context.WithTimeout(ctx, s.generator.timeout)
	defer cancel()
	if err = model.Stream(modelCtx, modelReq, func(chunk string) error {
		return emit(parser.Feed(chunk))
	}); err != nil {
		return notes.Expansion{}, errors.Wrap(errors.Join(ErrGeneration, err), "stream notes expansion")
	}
	if err = emit(parser.Flush()); err != nil {
		return notes.Expansion{}, err
	}
	return expansion.Trimmed(), nil
}
