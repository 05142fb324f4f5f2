package repositories

import (
	"context"
	"database/sql"
	"github.com/google/uuid"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/sqlite"
	"log/slog"
	"time"
)

// RelationshipRepository stores directed character relationship edges.
type RelationshipRepository struct {
	database *sqlite.Database
	logger   *slog.Logger
}

func NewRelationshipRepository(database *sqlite.Database, logger *slog.Logger) *RelationshipRepository {
	return &RelationshipRepository{
		database: database,
		logger:   logger.With("source", "RelationshipRepository"),
	}
}

type relationshipRow struct {
	ID                 string         `db:"id"`
	CampaignID         string         `db:"campaign_id"`
	CharacterID        string         `db:"character_id"`
	RelatedCharacterID string         `db:"related_character_id"`
	RelationshipType   string         `db:"relationship_type"`
	RelationshipLabel  sql.NullString `db:"relationship_label"`
	CreatedAt          int64          `db:"created_at"`
}

func (r *RelationshipRepository) List(ctx context.Context, campaignID string) ([]models.CharacterRelationship, error) {
	var rows []relationshipRow
	stmt := `SELECT id, campaign_id, character_id, related_character_id, relationship_type, relationship_label, created_at
FROM character_relationships
WHERE campaign_id = ?
ORDER BY created_at, id`
	if err := r.database.ReadOnly.SelectContext(ctx, &rows, stmt, campaignID); err != nil {
		return nil, errors.Wrap(err, "list relationships", slog.String("campaign_id", campaignID))
	}
	relationships := make([]models.CharacterRelationship, 0, len(rows))
	for _, row := range rows {
		relationships = append(relationships, models.CharacterRelationship{
			ID:                 row.ID,
			CampaignID:         row.CampaignID,
			CharacterID:        row.CharacterID,
			RelatedCharacterID: row.RelatedCharacterID,
			RelationshipType:   row.RelationshipType,
			RelationshipLabel:  fromNullString(row.RelationshipLabel),
			CreatedAt:          fromMillis(row.CreatedAt),
		})
	}
	return relationships, nil
}

// Insert adds the edge unless an edge with the same endpoints and type exists. It reports whether a row was added.
func (r *RelationshipRepository) Insert(ctx context.Context, relationship models.CharacterRelationship) (bool, error) {
	if relationship.ID == "" {
		relationship.ID = uuid.NewString()
	}
	stmt := `INSERT OR IGNORE INTO character_relationships
    (id, campaign_id, character_id, related_character_id, relationship_type, relationship_label, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt,
		relationship.ID,
		relationship.CampaignID,
		relationship.CharacterID,
		relationship.RelatedCharacterID,
		relationship.RelationshipType,
		toNullString(relationship.RelationshipLabel),
		toMillis(time.Now()),
	)
	if err != nil {
		return false, errors.Wrap(err, "insert relationship",
			slog.String("character_id", relationship.CharacterID),
			slog.String("related_character_id", relationship.RelatedCharacterID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return affected > 0, nil
}
