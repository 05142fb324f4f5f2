package repositories_test

import (
	"context"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/repositories"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

func TestLocationRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewLocationRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	existing, created, err := repo.Create(ctx, models.Location{CampaignID: "c1", Name: "black market"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "c1-market", existing.ID)

	location, created, err := repo.Create(ctx, models.Location{CampaignID: "c1", Name: "Sewers", Type: "dungeon"})
	require.NoError(t, err)
	require.True(t, created)

	found, err := repo.FindByName(ctx, "c1", "SEWERS")
	require.NoError(t, err)
	require.Equal(t, location, found)

	locations, err := repo.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, locations, 2)

	_, err = repo.FindByName(ctx, "c2", "Sewers")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestQuestRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewQuestRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	_, created, err := repo.Create(ctx, models.Quest{CampaignID: "c1", Name: "Free Betar"})
	require.NoError(t, err)
	require.False(t, created)

	quest, created, err := repo.Create(ctx, models.Quest{CampaignID: "c1", Name: "Find the buyer"})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "active", quest.Status)

	quests, err := repo.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, quests, 2)
}

func TestTimelineRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewTimelineRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))
	sessionID := "c1-s2"

	event, created, err := repo.Create(ctx, models.TimelineEvent{
		CampaignID:   "c1",
		SessionID:    &sessionID,
		Title:        "Betar found",
		Description:  "In a cage.",
		CharacterIDs: []string{"c1-torik", "c1-betar"},
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, models.TimelineEventTypeEvent, event.EventType)

	duplicate, created, err := repo.Create(ctx, models.TimelineEvent{
		CampaignID:  "c1",
		Title:       "betar FOUND",
		Description: "In a cage.",
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, event.ID, duplicate.ID)

	_, created, err = repo.Create(ctx, models.TimelineEvent{
		CampaignID:  "c1",
		Title:       "Betar found",
		Description: "Again, in another cage.",
	})
	require.NoError(t, err)
	require.True(t, created, "same title with another description is a separate event")

	events, err := repo.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	var first models.TimelineEvent
	for _, e := range events {
		if e.ID == event.ID {
			first = e
		}
	}
	require.Equal(t, []string{"c1-torik", "c1-betar"}, first.CharacterIDs)
	require.Equal(t, &sessionID, first.SessionID)
}

func TestSuggestionRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewSuggestionRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))
	torikID := "c1-torik"
	sessionID := "c1-s2"

	created, err := repo.CreateBatch(ctx, []models.IntelligenceSuggestion{
		{
			CampaignID:  "c1",
			CharacterID: &torikID,
			SessionID:   &sessionID,
			Suggestion: models.Suggestion{
				Type:          models.SuggestionTypeQuote,
				CharacterName: "Torik",
				FieldName:     "quotes",
				Value:         models.QuoteValue{Quote: "I will find you.", Context: ""},
				SourceExcerpt: "I will find you.",
				Confidence:    models.ConfidenceHigh,
			},
		},
		{
			CampaignID: "c1",
			SessionID:  &sessionID,
			Suggestion: models.Suggestion{
				Type:          models.SuggestionTypeLocationDetected,
				Value:         models.LocationDetected{Name: "Sewers"},
				SourceExcerpt: "down into the sewers",
				Confidence:    models.ConfidenceLow,
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	all, err := repo.List(ctx, "c1", repositories.SuggestionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	forTorik, err := repo.List(ctx, "c1", repositories.SuggestionFilter{CharacterID: &torikID})
	require.NoError(t, err)
	require.Len(t, forTorik, 1)
	require.Equal(t, created[0].Suggestion, forTorik[0].Suggestion)
	require.Equal(t, models.SuggestionStatusPending, forTorik[0].Status)

	rejected, err := repo.Resolve(ctx, created[1].ID, models.SuggestionStatusRejected)
	require.NoError(t, err)
	require.Equal(t, models.SuggestionStatusRejected, rejected.Status)
	require.NotNil(t, rejected.ResolvedAt)

	_, err = repo.Resolve(ctx, created[1].ID, models.SuggestionStatusApproved)
	require.ErrorIs(t, err, repositories.ErrConflict)

	pending := models.SuggestionStatusPending
	open, err := repo.List(ctx, "c1", repositories.SuggestionFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, repo.Reopen(ctx, created[1].ID))
	open, err = repo.List(ctx, "c1", repositories.SuggestionFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, open, 2)

	_, err = repo.Resolve(ctx, "missing", models.SuggestionStatusApproved)
	require.ErrorIs(t, err, repositories.ErrNotFound)
}
