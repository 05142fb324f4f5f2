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

func TestRelationshipRepository_Insert(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewRelationshipRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))
	label := "brother"
	edge := models.CharacterRelationship{
		CampaignID:         "c1",
		CharacterID:        "c1-torik",
		RelatedCharacterID: "c1-betar",
		RelationshipType:   "family",
		RelationshipLabel:  &label,
	}

	inserted, err := repo.Insert(ctx, edge)
	require.NoError(t, err)
	require.True(t, inserted)

	// The same endpoints and type are stored once.
	inserted, err = repo.Insert(ctx, edge)
	require.NoError(t, err)
	require.False(t, inserted)

	edge.RelationshipType = "ally"
	inserted, err = repo.Insert(ctx, edge)
	require.NoError(t, err)
	require.True(t, inserted)

	relationships, err := repo.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, relationships, 2)
	require.Equal(t, &label, relationships[0].RelationshipLabel)

	_, err = repo.Insert(ctx, models.CharacterRelationship{
		CampaignID:         "c1",
		CharacterID:        "c1-torik",
		RelatedCharacterID: "missing",
		RelationshipType:   "family",
	})
	require.Error(t, err, "foreign keys are enforced")
}
