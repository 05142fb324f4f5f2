package intelligence

import (
	"context"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/notes"
	"log/slog"
	"strings"
	"time"
)

// Stats summarizes one analysis.
type Stats struct {
	SessionsAnalyzed int `json:"sessionsAnalyzed"`
	// CharactersUpdated counts the distinct characters targeted by the suggestions.
	CharactersUpdated int `json:"charactersUpdated"`
	// TotalCharacters counts the characters of the campaign.
	TotalCharacters int `json:"totalCharacters"`
	// TotalRelationships counts the relationship suggestions.
	TotalRelationships int `json:"totalRelationships"`
	PromptTokens       int `json:"promptTokens"`
	Dropped            int `json:"dropped"`
}

// Generation is the validated output of one model call.
type Generation struct {
	Suggestions []models.Suggestion
	Dropped     []DroppedSuggestion
	Stats       Stats
}

// Generator asks a model for suggestions about a collected payload.
type Generator struct {
	providers *ai.Providers
	prompts   *Prompts
	tokens    *notes.TokenCounter
	timeout   time.Duration
	logger    *slog.Logger
}

func NewGenerator(
	providers *ai.Providers,
	prompts *Prompts,
	tokens *notes.TokenCounter,
	timeout time.Duration,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		providers: providers,
		prompts:   prompts,
		tokens:    tokens,
		timeout:   timeout,
		logger:    logger.With("source", "Generator"),
	}
}

// Generate returns the suggestions the model grounds in the payload sessions.
//
// Model failures, timeouts and unparseable responses wrap ErrGeneration and no partial list is returned.
// Individual malformed or ungrounded items are dropped and logged.
func (g *Generator) Generate(ctx context.Context, payload Payload, provider string) (Generation, error) {
	model, err := g.providers.Get(provider)
	if err != nil {
		return Generation{}, err
	}
	req, err := g.prompts.Analyze(payload)
	if err != nil {
		return Generation{}, err
	}
	promptTokens, err := g.tokens.Count(req.System + req.Prompt)
	if err != nil {
		return Generation{}, err
	}

	start := time.Now()
	modelCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	response, err := model.Complete(modelCtx, req)
	if err != nil {
		attrs := []slog.Attr{slog.String("provider", provider), slog.Duration("elapsed", time.Since(start))}
		if errors.Is(modelCtx.Err(), context.DeadlineExceeded) {
			attrs = append(attrs, slog.Duration("timeout", g.timeout))
		}
		return Generation{}, errors.Wrap(errors.Join(ErrGeneration, err), "model completion", attrs...)
	}

	items, err := rawSuggestions(response)
	if err != nil {
		return Generation{}, errors.Wrap(errors.Join(ErrGeneration, err), "parse model response")
	}
	suggestions, dropped := parseSuggestions(items, payload.Text())
	for _, d := range dropped {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "dropped suggestion",
			slog.String("campaign_id", payload.Campaign.ID), errors.SlogError(d.Reason))
	}

	stats := computeStats(payload, suggestions)
	stats.PromptTokens = promptTokens
	stats.Dropped = len(dropped)
	g.logger.LogAttrs(ctx, slog.LevelInfo, "generated suggestions",
		slog.String("campaign_id", payload.Campaign.ID),
		slog.Int("suggestions", len(suggestions)),
		slog.Int("dropped", len(dropped)),
		slog.Int("prompt_tokens", promptTokens),
		slog.Duration("elapsed", time.Since(start)))
	return Generation{Suggestions: suggestions, Dropped: dropped, Stats: stats}, nil
}

func computeStats(payload Payload, suggestions []models.Suggestion) Stats {
	characters := make(map[string]struct{})
	relationships := 0
	for _, suggestion := range suggestions {
		if suggestion.Type.TargetsCharacter() && suggestion.CharacterName != "" {
			characters[strings.ToLower(suggestion.CharacterName)] = struct{}{}
		}
		if suggestion.Type == models.SuggestionTypeRelationship {
			relationships++
		}
	}
	return Stats{
		SessionsAnalyzed:   len(payload.Sessions),
		CharactersUpdated:  len(characters),
		TotalCharacters:    len(payload.Characters),
		TotalRelationships: relationships,
		PromptTokens:       0,
		Dropped:            0,
	}
}

func excerptGrounded(sourceText, excerpt string) bool {
	return notes.ContainsExcerpt(sourceText, excerpt)
}
