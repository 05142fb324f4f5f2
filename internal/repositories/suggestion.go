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

// SuggestionRepository persists intelligence suggestions awaiting review.
type SuggestionRepository struct {
	database *sqlite.Database
	logger   *slog.Logger
}

func NewSuggestionRepository(database *sqlite.Database, logger *slog.Logger) *SuggestionRepository {
	return &SuggestionRepository{
		database: database,
		logger:   logger.With("source", "SuggestionRepository"),
	}
}

const suggestionColumns = `id, campaign_id, character_id, session_id, suggestion_type, payload, status, created_at,
       resolved_at`

type suggestionRow struct {
	ID             string         `db:"id"`
	CampaignID     string         `db:"campaign_id"`
	CharacterID    sql.NullString `db:"character_id"`
	SessionID      sql.NullString `db:"session_id"`
	SuggestionType string         `db:"suggestion_type"`
	Payload        string         `db:"payload"`
	Status         string         `db:"status"`
	CreatedAt      int64          `db:"created_at"`
	ResolvedAt     sql.NullInt64  `db:"resolved_at"`
}

func (row suggestionRow) toModel() (models.IntelligenceSuggestion, error) {
	suggestion, err := models.ParseSuggestion([]byte(row.Payload))
	if err != nil {
		return models.IntelligenceSuggestion{}, errors.Wrap(err, "decode stored suggestion",
			slog.String("suggestion_id", row.ID))
	}
	return models.IntelligenceSuggestion{
		ID:          row.ID,
		CampaignID:  row.CampaignID,
		CharacterID: fromNullString(row.CharacterID),
		SessionID:   fromNullString(row.SessionID),
		Suggestion:  suggestion,
		Status:      models.SuggestionStatus(row.Status),
		CreatedAt:   fromMillis(row.CreatedAt),
		ResolvedAt:  fromNullableMillis(row.ResolvedAt),
	}, nil
}

// CreateBatch stores the suggestions as pending in one transaction and returns them with generated ids.
func (r *SuggestionRepository) CreateBatch(
	ctx context.Context,
	suggestions []models.IntelligenceSuggestion,
) (_ []models.IntelligenceSuggestion, err error) {
	var tx *sqlx.Tx
	if tx, err = r.database.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				r.logger.LogAttrs(ctx, slog.LevelError, "rollback failed", errors.SlogError(rollbackErr))
			}
		}
	}()

	now := time.Now().UTC().Truncate(time.Millisecond)
	stmt := `INSERT INTO intelligence_suggestions (` + suggestionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`
	created := make([]models.IntelligenceSuggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		suggestion.ID = uuid.NewString()
		suggestion.Status = models.SuggestionStatusPending
		suggestion.CreatedAt = now
		suggestion.ResolvedAt = nil
		var payload []byte
		if payload, err = json.Marshal(suggestion.Suggestion); err != nil {
			return nil, errors.Wrap(err, "encode suggestion")
		}
		if _, err = tx.ExecContext(ctx, stmt,
			suggestion.ID,
			suggestion.CampaignID,
			toNullString(suggestion.CharacterID),
			toNullString(suggestion.SessionID),
			string(suggestion.Suggestion.Type),
			string(payload),
			string(suggestion.Status),
			toMillis(now),
		); err != nil {
			return nil, errors.Wrap(err, "insert suggestion", slog.String("campaign_id", suggestion.CampaignID))
		}
		created = append(created, suggestion)
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit suggestions")
	}
	return created, nil
}

// SuggestionFilter narrows List. Nil fields match everything.
type SuggestionFilter struct {
	CharacterID *string
	Status      *models.SuggestionStatus
}

func (r *SuggestionRepository) List(
	ctx context.Context,
	campaignID string,
	filter SuggestionFilter,
) ([]models.IntelligenceSuggestion, error) {
	var (
		rows   []suggestionRow
		status sql.NullString
	)
	if filter.Status != nil {
		status = sql.NullString{String: string(*filter.Status), Valid: true}
	}
	stmt := `SELECT ` + suggestionColumns + `
FROM intelligence_suggestions
WHERE campaign_id = @campaign_id
  AND (@character_id IS NULL OR character_id = @character_id)
  AND (@status IS NULL OR status = @status)
ORDER BY created_at, id`
	if err := r.database.ReadOnly.SelectContext(ctx, &rows, stmt,
		sql.Named("campaign_id", campaignID),
		sql.Named("character_id", toNullString(filter.CharacterID)),
		sql.Named("status", status),
	); err != nil {
		return nil, errors.Wrap(err, "list suggestions", slog.String("campaign_id", campaignID))
	}
	suggestions := make([]models.IntelligenceSuggestion, 0, len(rows))
	for _, row := range rows {
		suggestion, err := row.toModel()
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

func (r *SuggestionRepository) Get(ctx context.Context, id string) (models.IntelligenceSuggestion, error) {
	var row suggestionRow
	stmt := `SELECT ` + suggestionColumns + ` FROM intelligence_suggestions WHERE id = ?`
	if err := r.database.ReadWrite.GetContext(ctx, &row, stmt, id); err != nil {
		return models.IntelligenceSuggestion{}, notFound(err, "get suggestion", slog.String("suggestion_id", id))
	}
	return row.toModel()
}

// Resolve moves a pending suggestion to status. Resolving an already resolved suggestion returns ErrConflict.
func (r *SuggestionRepository) Resolve(
	ctx context.Context,
	id string,
	status models.SuggestionStatus,
) (models.IntelligenceSuggestion, error) {
	stmt := `UPDATE intelligence_suggestions
SET status = ?, resolved_at = ?
WHERE id = ? AND status = 'pending'`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt, string(status), toMillis(time.Now()), id)
	if err != nil {
		return models.IntelligenceSuggestion{}, errors.Wrap(err, "resolve suggestion", slog.String("suggestion_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.IntelligenceSuggestion{}, errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		existing, getErr := r.Get(ctx, id)
		if getErr != nil {
			return models.IntelligenceSuggestion{}, getErr
		}
		return models.IntelligenceSuggestion{}, errors.Wrap(ErrConflict, "suggestion already resolved",
			slog.String("suggestion_id", id), slog.String("status", string(existing.Status)))
	}
	return r.Get(ctx, id)
}

// Reopen returns a resolved suggestion to pending. Used when applying an approved suggestion fails.
func (r *SuggestionRepository) Reopen(ctx context.Context, id string) error {
	stmt := `UPDATE intelligence_suggestions SET status = 'pending', resolved_at = NULL WHERE id = ?`
	if _, err := r.database.ReadWrite.ExecContext(ctx, stmt, id); err != nil {
		return errors.Wrap(err, "reopen suggestion", slog.String("suggestion_id", id))
	}
	return nil
}
