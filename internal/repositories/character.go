package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/sqlite"
	"log/slog"
	"time"
)

// CharacterRepository stores characters. Every write bumps Character.Version.
type CharacterRepository struct {
	database *sqlite.Database
	logger   *slog.Logger
}

func NewCharacterRepository(database *sqlite.Database, logger *slog.Logger) *CharacterRepository {
	return &CharacterRepository{
		database: database,
		logger:   logger.With("source", "CharacterRepository"),
	}
}

type characterRow struct {
	ID                string         `db:"id"`
	CampaignID        string         `db:"campaign_id"`
	Name              string         `db:"name"`
	Type              string         `db:"type"`
	Status            string         `db:"status"`
	Summary           string         `db:"summary"`
	Description       string         `db:"description"`
	Personality       string         `db:"personality"`
	Goals             string         `db:"goals"`
	Secrets           string         `db:"secrets"`
	ImportantPeople   string         `db:"important_people"`
	StoryHooks        string         `db:"story_hooks"`
	Quotes            string         `db:"quotes"`
	CurrentLocationID sql.NullString `db:"current_location_id"`
	Version           int64          `db:"version"`
	UpdatedAt         int64          `db:"updated_at"`
}

func (row characterRow) toModel() (models.Character, error) {
	character := models.Character{
		ID:                row.ID,
		CampaignID:        row.CampaignID,
		Name:              row.Name,
		Type:              models.CharacterType(row.Type),
		Status:            row.Status,
		Summary:           row.Summary,
		Description:       row.Description,
		Personality:       row.Personality,
		Goals:             row.Goals,
		Secrets:           row.Secrets,
		ImportantPeople:   nil,
		StoryHooks:        nil,
		Quotes:            nil,
		CurrentLocationID: fromNullString(row.CurrentLocationID),
		Version:           row.Version,
		UpdatedAt:         fromMillis(row.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(row.ImportantPeople), &character.ImportantPeople); err != nil {
		return models.Character{}, errors.Wrap(err, "decode important people", slog.String("character_id", row.ID))
	}
	if err := json.Unmarshal([]byte(row.StoryHooks), &character.StoryHooks); err != nil {
		return models.Character{}, errors.Wrap(err, "decode story hooks", slog.String("character_id", row.ID))
	}
	if err := json.Unmarshal([]byte(row.Quotes), &character.Quotes); err != nil {
		return models.Character{}, errors.Wrap(err, "decode quotes", slog.String("character_id", row.ID))
	}
	return character, nil
}

// jsonList encodes a list column. STRICT tables reject blobs in TEXT columns so the result is a string.
func jsonList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", errors.Wrap(err, "encode list column")
	}
	return string(data), nil
}

const characterColumns = `id, campaign_id, name, type, status, summary, description, personality, goals, secrets,
       important_people, story_hooks, quotes, current_location_id, version, updated_at`

func (r *CharacterRepository) Get(ctx context.Context, id string) (models.Character, error) {
	return r.get(ctx, r.database.ReadOnly, id)
}

func (r *CharacterRepository) get(ctx context.Context, q sqlx.QueryerContext, id string) (models.Character, error) {
	var row characterRow
	stmt := `SELECT ` + characterColumns + ` FROM characters WHERE id = ?`
	if err := sqlx.GetContext(ctx, q, &row, stmt, id); err != nil {
		return models.Character{}, notFound(err, "get character", slog.String("character_id", id))
	}
	return row.toModel()
}

// List returns every character of the campaign ordered by name.
func (r *CharacterRepository) List(ctx context.Context, campaignID string) ([]models.Character, error) {
	var rows []characterRow
	stmt := `SELECT ` + characterColumns + ` FROM characters WHERE campaign_id = ? ORDER BY name COLLATE NOCASE, id`
	if err := r.database.ReadOnly.SelectContext(ctx, &rows, stmt, campaignID); err != nil {
		return nil, errors.Wrap(err, "list characters", slog.String("campaign_id", campaignID))
	}
	characters := make([]models.Character, 0, len(rows))
	for _, row := range rows {
		character, err := row.toModel()
		if err != nil {
			return nil, err
		}
		characters = append(characters, character)
	}
	return characters, nil
}

// Create inserts a new character with version 1. An empty ID is generated.
func (r *CharacterRepository) Create(ctx context.Context, character models.Character) (models.Character, error) {
	if character.ID == "" {
		character.ID = uuid.NewString()
	}
	character.Version = 1
	character.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	args, err := characterArgs(character)
	if err != nil {
		return models.Character{}, err
	}
	stmt := `INSERT INTO characters (` + characterColumns + `)
VALUES (@id, @campaign_id, @name, @type, @status, @summary, @description, @personality, @goals, @secrets,
        @important_people, @story_hooks, @quotes, @current_location_id, @version, @updated_at)`
	if _, err = r.database.ReadWrite.ExecContext(ctx, stmt, args...); err != nil {
		return models.Character{}, errors.Wrap(err, "insert character",
			slog.String("campaign_id", character.CampaignID), slog.String("name", character.Name))
	}
	return r.get(ctx, r.database.ReadWrite, character.ID)
}

// Update writes every mutable field of character in a single compare-and-swap statement on character.Version.
//
// A stale version returns a *ConflictError carrying the current version.
func (r *CharacterRepository) Update(ctx context.Context, character models.Character) (models.Character, error) {
	character.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	args, err := characterArgs(character)
	if err != nil {
		return models.Character{}, err
	}
	stmt := `UPDATE characters
SET name                = @name,
    type                = @type,
    status              = @status,
    summary             = @summary,
    description         = @description,
    personality         = @personality,
    goals               = @goals,
    secrets             = @secrets,
    important_people    = @important_people,
    story_hooks         = @story_hooks,
    quotes              = @quotes,
    current_location_id = @current_location_id,
    version             = version + 1,
    updated_at          = @updated_at
WHERE id = @id
  AND campaign_id = @campaign_id
  AND version = @version`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt, args...)
	if err != nil {
		return models.Character{}, errors.Wrap(err, "update character", slog.String("character_id", character.ID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Character{}, errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		current, getErr := r.get(ctx, r.database.ReadWrite, character.ID)
		if getErr != nil {
			return models.Character{}, getErr
		}
		return models.Character{}, errors.Wrap(&ConflictError{CurrentVersion: current.Version}, "update character",
			slog.String("character_id", character.ID), slog.Int64("version", character.Version))
	}
	return r.get(ctx, r.database.ReadWrite, character.ID)
}

func characterArgs(character models.Character) ([]any, error) {
	var (
		importantPeople string
		storyHooks      string
		quotes          string
		err             error
	)
	if importantPeople, err = jsonList(character.ImportantPeople); err != nil {
		return nil, err
	}
	if storyHooks, err = jsonList(character.StoryHooks); err != nil {
		return nil, err
	}
	if quotes, err = jsonList(character.Quotes); err != nil {
		return nil, err
	}
	characterType := character.Type
	if characterType == "" {
		characterType = models.CharacterTypeNPC
	}
	return []any{
		sql.Named("id", character.ID),
		sql.Named("campaign_id", character.CampaignID),
		sql.Named("name", character.Name),
		sql.Named("type", string(characterType)),
		sql.Named("status", character.Status),
		sql.Named("summary", character.Summary),
		sql.Named("description", character.Description),
		sql.Named("personality", character.Personality),
		sql.Named("goals", character.Goals),
		sql.Named("secrets", character.Secrets),
		sql.Named("important_people", importantPeople),
		sql.Named("story_hooks", storyHooks),
		sql.Named("quotes", quotes),
		sql.Named("current_location_id", toNullString(character.CurrentLocationID)),
		sql.Named("version", character.Version),
		sql.Named("updated_at", toMillis(character.UpdatedAt)),
	}, nil
}
