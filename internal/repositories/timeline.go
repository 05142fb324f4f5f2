package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/sqlite"
	"log/slog"
	"time"
)

type TimelineRepository struct {
	database *sqlite.Database
	logger   *slog.Logger
}

func NewTimelineRepository(database *sqlite.Database, logger *slog.Logger) *TimelineRepository {
	return &TimelineRepository{
		database: database,
		logger:   logger.With("source", "TimelineRepository"),
	}
}

const timelineColumns = `id, campaign_id, session_id, title, description, event_type, character_ids, created_at`

type timelineRow struct {
	ID           string         `db:"id"`
	CampaignID   string         `db:"campaign_id"`
	SessionID    sql.NullString `db:"session_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	EventType    string         `db:"event_type"`
	CharacterIDs string         `db:"character_ids"`
	CreatedAt    int64          `db:"created_at"`
}

func (row timelineRow) toModel() (models.TimelineEvent, error) {
	event := models.TimelineEvent{
		ID:           row.ID,
		CampaignID:   row.CampaignID,
		SessionID:    fromNullString(row.SessionID),
		Title:        row.Title,
		Description:  row.Description,
		EventType:    row.EventType,
		CharacterIDs: nil,
		CreatedAt:    fromMillis(row.CreatedAt),
	}
	if err := json.Unmarshal([]byte(row.CharacterIDs), &event.CharacterIDs); err != nil {
		return models.TimelineEvent{}, errors.Wrap(err, "decode character ids", slog.String("event_id", row.ID))
	}
	return event, nil
}

// List returns the timeline of the campaign in creation order.
func (r *TimelineRepository) List(ctx context.Context, campaignID string) ([]models.TimelineEvent, error) {
	var rows []timelineRow
	stmt := `SELECT ` + timelineColumns + ` FROM timeline_events WHERE campaign_id = ? ORDER BY created_at, id`
	if err := r.database.ReadOnly.SelectContext(ctx, &rows, stmt, campaignID); err != nil {
		return nil, errors.Wrap(err, "list timeline", slog.String("campaign_id", campaignID))
	}
	events := make([]models.TimelineEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toModel()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *TimelineRepository) find(ctx context.Context, campaignID, title, description string) (models.TimelineEvent, error) {
	var row timelineRow
	stmt := `SELECT ` + timelineColumns + ` FROM timeline_events
WHERE campaign_id = ? AND title = ? COLLATE NOCASE AND description = ?`
	if err := r.database.ReadWrite.GetContext(ctx, &row, stmt, campaignID, title, description); err != nil {
		return models.TimelineEvent{}, notFound(err, "find timeline event", slog.String("title", title))
	}
	return row.toModel()
}

// Create inserts the event unless one with the same title and description exists in the campaign. Events that
// share only a title, such as two fights at the same place, are kept apart.
func (r *TimelineRepository) Create(
	ctx context.Context,
	event models.TimelineEvent,
) (models.TimelineEvent, bool, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.EventType == "" {
		event.EventType = models.TimelineEventTypeEvent
	}
	event.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	characterIDs, err := jsonList(event.CharacterIDs)
	if err != nil {
		return models.TimelineEvent{}, false, err
	}
	if event.CharacterIDs == nil {
		event.CharacterIDs = []string{}
	}
	stmt := `INSERT OR IGNORE INTO timeline_events (` + timelineColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt,
		event.ID, event.CampaignID, toNullString(event.SessionID), event.Title, event.Description, event.EventType,
		characterIDs, toMillis(event.CreatedAt))
	if err != nil {
		return models.TimelineEvent{}, false, errors.Wrap(err, "insert timeline event", slog.String("title", event.Title))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.TimelineEvent{}, false, errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		existing, findErr := r.find(ctx, event.CampaignID, event.Title, event.Description)
		return existing, false, findErr
	}
	return event, true, nil
}
