package repositories

import (
	"context"
	"database/sql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/sqlite"
	"log/slog"
	"time"
)

// SessionRepository stores played game sessions. Writes are guarded by an optimistic version.
type SessionRepository struct {
	database *sqlite.Database
	logger   *slog.Logger
}

func NewSessionRepository(database *sqlite.Database, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{
		database: database,
		logger:   logger.With("source", "SessionRepository"),
	}
}

type sessionRow struct {
	ID            string `db:"id"`
	CampaignID    string `db:"campaign_id"`
	SessionNumber int    `db:"session_number"`
	Title         string `db:"title"`
	Date          string `db:"date"`
	Summary       string `db:"summary"`
	Notes         string `db:"notes"`
	DMNotes       string `db:"dm_notes"`
	Version       int64  `db:"version"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (row sessionRow) toModel() models.Session {
	return models.Session{
		ID:            row.ID,
		CampaignID:    row.CampaignID,
		SessionNumber: row.SessionNumber,
		Title:         row.Title,
		Date:          row.Date,
		Summary:       row.Summary,
		Notes:         row.Notes,
		DMNotes:       row.DMNotes,
		Version:       row.Version,
		UpdatedAt:     fromMillis(row.UpdatedAt),
	}
}

const sessionColumns = `id, campaign_id, session_number, title, date, summary, notes, dm_notes, version, updated_at`

func (r *SessionRepository) Get(ctx context.Context, id string) (models.Session, error) {
	return r.get(ctx, r.database.ReadOnly, id)
}

func (r *SessionRepository) get(ctx context.Context, q sqlx.QueryerContext, id string) (models.Session, error) {
	var row sessionRow
	stmt := `SELECT ` + sessionColumns + ` FROM play_sessions WHERE id = ?`
	if err := sqlx.GetContext(ctx, q, &row, stmt, id); err != nil {
		return models.Session{}, notFound(err, "get session", slog.String("session_id", id))
	}
	return row.toModel(), nil
}

// ListByCampaign returns the sessions of the campaign ordered by session number.
//
// When after is non-nil only sessions updated strictly after it are returned.
func (r *SessionRepository) ListByCampaign(
	ctx context.Context,
	campaignID string,
	after *time.Time,
) ([]models.Session, error) {
	var rows []sessionRow
	stmt := `SELECT ` + sessionColumns + `
FROM play_sessions
WHERE campaign_id = @campaign_id
  AND (@after IS NULL OR updated_at > @after)
ORDER BY session_number`
	if err := r.database.ReadOnly.SelectContext(ctx, &rows, stmt,
		sql.Named("campaign_id", campaignID), sql.Named("after", nullableMillis(after))); err != nil {
		return nil, errors.Wrap(err, "list sessions", slog.String("campaign_id", campaignID))
	}
	sessions := make([]models.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toModel())
	}
	return sessions, nil
}

// Create inserts a new session with version 1. A zero UpdatedAt is set to the current time.
func (r *SessionRepository) Create(ctx context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now()
	}
	session.UpdatedAt = session.UpdatedAt.UTC().Truncate(time.Millisecond)
	session.Version = 1
	stmt := `INSERT INTO play_sessions (` + sessionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.database.ReadWrite.ExecContext(ctx, stmt,
		session.ID, session.CampaignID, session.SessionNumber, session.Title, session.Date, session.Summary,
		session.Notes, session.DMNotes, session.Version, toMillis(session.UpdatedAt)); err != nil {
		return models.Session{}, errors.Wrap(err, "insert session", slog.String("campaign_id", session.CampaignID))
	}
	return session, nil
}

// Save writes the editable fields of session when session.Version matches the stored version.
//
// A stale version returns a *ConflictError carrying the current version.
func (r *SessionRepository) Save(ctx context.Context, session models.Session) (models.Session, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	stmt := `UPDATE play_sessions
SET title      = @title,
    date       = @date,
    summary    = @summary,
    notes      = @notes,
    dm_notes   = @dm_notes,
    version    = version + 1,
    updated_at = @updated_at
WHERE id = @id
  AND version = @version`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt,
		sql.Named("title", session.Title),
		sql.Named("date", session.Date),
		sql.Named("summary", session.Summary),
		sql.Named("notes", session.Notes),
		sql.Named("dm_notes", session.DMNotes),
		sql.Named("updated_at", toMillis(now)),
		sql.Named("id", session.ID),
		sql.Named("version", session.Version),
	)
	if err != nil {
		return models.Session{}, errors.Wrap(err, "update session", slog.String("session_id", session.ID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Session{}, errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		current, getErr := r.get(ctx, r.database.ReadWrite, session.ID)
		if getErr != nil {
			return models.Session{}, getErr
		}
		return models.Session{}, errors.Wrap(&ConflictError{CurrentVersion: current.Version}, "save session",
			slog.String("session_id", session.ID), slog.Int64("version", session.Version))
	}
	return r.get(ctx, r.database.ReadWrite, session.ID)
}
